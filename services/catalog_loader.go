package services

import (
	"fmt"

	"forum-engagement-system/models"

	"github.com/spf13/viper"
)

// catalogBadge and catalogLevel let a file omit is_active, which then
// defaults to true.
type catalogBadge struct {
	models.Badge `mapstructure:",squash"`
	Active       *bool `mapstructure:"is_active"`
}

type catalogLevel struct {
	models.Level `mapstructure:",squash"`
	Active       *bool `mapstructure:"is_active"`
}

func activeOrDefault(b *bool) bool {
	return b == nil || *b
}

// LoadCatalogFile reads badge and level definitions from a YAML, JSON or TOML
// file. A missing section falls back to the built-in defaults.
func LoadCatalogFile(path string) ([]models.Badge, []models.Level, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var rawBadges []catalogBadge
	if err := v.UnmarshalKey("badges", &rawBadges); err != nil {
		return nil, nil, fmt.Errorf("decode badges in %s: %w", path, err)
	}
	var rawLevels []catalogLevel
	if err := v.UnmarshalKey("levels", &rawLevels); err != nil {
		return nil, nil, fmt.Errorf("decode levels in %s: %w", path, err)
	}

	badges := DefaultBadges
	if len(rawBadges) > 0 {
		badges = make([]models.Badge, len(rawBadges))
		for i, rb := range rawBadges {
			badges[i] = rb.Badge
			badges[i].IsActive = activeOrDefault(rb.Active)
			if badges[i].RequirementCount == 0 {
				badges[i].RequirementCount = 1
			}
		}
	}
	levels := DefaultLevels
	if len(rawLevels) > 0 {
		levels = make([]models.Level, len(rawLevels))
		for i, rl := range rawLevels {
			levels[i] = rl.Level
			levels[i].IsActive = activeOrDefault(rl.Active)
		}
	}

	if err := ValidateBadges(badges); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := ValidateLevels(levels); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return badges, levels, nil
}
