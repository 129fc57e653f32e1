// Package alert turns failures into the short messages shown to the user.
package alert

import (
	"errors"
	"fmt"
	"net/http"

	"ms-invoicing/internal/models"
	"ms-invoicing/internal/store"
)

// Alert is a message surfaced to the user once, on the next rendered page.
type Alert struct {
	Context          string `json:"context,omitempty"`
	Message          string `json:"message"`
	PermissionDenied bool   `json:"permissionDenied,omitempty"`
}

// UserError is a precondition or coercion failure whose message is shown verbatim.
type UserError struct {
	Message string
}

func (e *UserError) Error() string { return e.Message }

func UserErrorf(format string, args ...any) error {
	return &UserError{Message: fmt.Sprintf(format, args...)}
}

// ConfirmationError means the action needs an explicit yes before anything is written.
type ConfirmationError struct {
	Prompt string
}

func (e *ConfirmationError) Error() string { return "confirmation required: " + e.Prompt }

func NeedsConfirmation(prompt string) error {
	return &ConfirmationError{Prompt: prompt}
}

func Info(message string) Alert {
	return Alert{Message: message}
}

// FromError builds the alert for a failed action. context names the action,
// e.g. "adding student".
func FromError(context string, err error) Alert {
	var ue *UserError
	if errors.As(err, &ue) {
		return Alert{Context: context, Message: ue.Message}
	}
	var ce *ConfirmationError
	if errors.As(err, &ce) {
		return Alert{Context: context, Message: ce.Prompt}
	}
	if errors.Is(err, store.ErrPermissionDenied) {
		return Alert{
			Context:          context,
			PermissionDenied: true,
			Message: fmt.Sprintf("Permission Denied (%s):\nPlease update your store access rules to allow read/write access.\n\n"+
				"Check the STORE_DENY setting for this collection.", context),
		}
	}
	return Alert{Context: context, Message: fmt.Sprintf("Error %s: %s", context, err.Error())}
}

// Status maps a failure onto an HTTP status code.
func Status(err error) int {
	var ue *UserError
	var ce *ConfirmationError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ue):
		return http.StatusBadRequest
	case errors.As(err, &ce):
		return http.StatusConflict
	case errors.Is(err, store.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrUnknownField),
		errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrNegativeAmount),
		errors.Is(err, models.ErrAmountTooLarge):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
