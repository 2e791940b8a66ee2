package feedback

import (
	"errors"
	"strings"

	"github.com/joeyportfolio/portfolio/internal/store"
)

// User-facing banner messages.
const (
	MsgInitFailed       = "Failed to initialize feedback system. Please try again."
	MsgAutoCreateFailed = "Could not create feedback table automatically. Please contact support."
	MsgInitUnexpected   = "Failed to initialize feedback system."
	MsgLoadFailed       = "Failed to load feedback. Please try again later."
	MsgLoadUnexpected   = "An unexpected error occurred while loading feedback."
	MsgSubmitFailed     = "Failed to submit feedback. Please try again."
	MsgSubmitUnexpected = "An unexpected error occurred while submitting feedback."
	MsgRequiredFields   = "Name and message are required."
	MsgSettingUp        = "Setting up feedback system..."
	MsgEmpty            = "No feedback yet. Be the first to share your thoughts!"
	LabelSubmit         = "Submit Feedback"
	LabelSubmitting     = "Submitting..."
	LabelInitializing   = "Initializing..."
)

// errPanic marks a panic recovered at an async boundary.
var errPanic = errors.New("unexpected failure")

func unexpected(err error) bool {
	return errors.Is(err, errPanic) || store.KindOf(err) == store.KindUnknown
}

func initMessage(err error) string {
	switch {
	case errors.Is(err, ErrAutoCreateFailed):
		return MsgAutoCreateFailed
	case unexpected(err):
		return MsgInitUnexpected
	default:
		return MsgInitFailed
	}
}

func loadMessage(err error) string {
	if unexpected(err) {
		return MsgLoadUnexpected
	}
	return MsgLoadFailed
}

func submitMessage(err error) string {
	if unexpected(err) {
		return MsgSubmitUnexpected
	}
	return MsgSubmitFailed
}

// validateForm is the only client-side check: required fields.
func validateForm(name, message string) string {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(message) == "" {
		return MsgRequiredFields
	}
	return ""
}
