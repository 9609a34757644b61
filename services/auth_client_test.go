package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"forum-engagement-system/models"

	"github.com/stretchr/testify/require"
)

func TestValidateToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if r.URL.Path != "/auth/validate" || r.Header.Get("Authorization") != "Bearer svc" || body["access_token"] != "good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(ValidateResponse{UserID: "u1", DeviceID: body["device_id"], Roles: []string{"moderator"}})
	}))
	defer srv.Close()

	c := NewAuthServiceClient(srv.URL, "svc")
	ctx := context.Background()

	resp, err := c.ValidateToken(ctx, "good", "d1")
	require.NoError(t, err)
	require.Equal(t, "u1", resp.UserID)
	require.Equal(t, "d1", resp.DeviceID)
	require.Equal(t, []string{"moderator"}, resp.Roles)

	_, err = c.ValidateToken(ctx, "bad", "d1")
	require.ErrorContains(t, err, "401")
}

func TestUserDirectorySearch(t *testing.T) {
	f := newFixture(t)
	users := NewUserDirectory(f.db)
	for _, name := range []string{"GearHead", "gearbox", "pistons"} {
		require.NoError(t, f.db.Create(&models.ForumUser{ExternalUserID: "ext-" + name, Username: name}).Error)
	}

	res, err := users.Search(context.Background(), "GEAR", 0)
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Equal(t, "GearHead", res[0].Username)
	require.Equal(t, "gearbox", res[1].Username)

	all, err := users.Search(context.Background(), "", 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
}
