package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures the REST layer maps to status codes.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindConflict
	KindNotFound
	KindPermission
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindPermission:
		return "permission"
	}
	return "unknown"
}

// Error is a typed domain error. Two errors match under errors.Is when their
// codes are equal, so wrapped or re-created values still compare.
type Error struct {
	Kind    ErrorKind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrDuplicateReport   = &Error{KindConflict, "duplicate_report", "you have already reported this reply"}
	ErrSelfReport        = &Error{KindConflict, "self_report", "you cannot report your own reply"}
	ErrSelfLike          = &Error{KindConflict, "self_like", "you cannot like your own content"}
	ErrSelfBookmark      = &Error{KindConflict, "self_bookmark", "you cannot bookmark your own topic"}
	ErrAlreadyLiked      = &Error{KindConflict, "already_liked", "already liked"}
	ErrAlreadyBookmarked = &Error{KindConflict, "already_bookmarked", "topic already bookmarked"}
	ErrInvalidTransition = &Error{KindConflict, "invalid_transition", "report has already been reviewed with a different outcome"}

	ErrReplyNotFound  = &Error{KindNotFound, "reply_not_found", "reply not found"}
	ErrTopicNotFound  = &Error{KindNotFound, "topic_not_found", "topic not found"}
	ErrReportNotFound = &Error{KindNotFound, "report_not_found", "report not found"}
	ErrReasonNotFound = &Error{KindNotFound, "reason_not_found", "report reason not found"}

	ErrNotReplyAuthor = &Error{KindPermission, "not_reply_author", "only the author can delete this reply"}
)

// Validation builds a validation error with a formatted message.
func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Code: "validation", Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a typed error anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
