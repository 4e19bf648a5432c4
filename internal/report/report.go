// Package report is the single error-reporting boundary. Every failure path
// funnels through here so the user sees uniform feedback instead of the
// some-paths-toast, some-paths-log-only mix the views would otherwise grow.
package report

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Anmol-345/Arcanus/internal/platform"
)

// Kind classifies a failure for presentation. Nothing here is retried and
// nothing is fatal to the process.
type Kind int

const (
	KindTransport Kind = iota
	KindAuth
	KindValidation
	KindNotFound
	KindRoomUnavailable
)

// ValidationError marks input the user can fix.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Invalid builds a ValidationError.
func Invalid(msg string) error { return &ValidationError{Msg: msg} }

// Classify maps an error onto its feedback kind.
func Classify(err error) Kind {
	var verr *ValidationError
	switch {
	case errors.Is(err, platform.ErrUnauthorized):
		return KindAuth
	case errors.Is(err, platform.ErrRoomUnavailable):
		return KindRoomUnavailable
	case errors.Is(err, platform.ErrNotFound):
		return KindNotFound
	case errors.As(err, &verr):
		return KindValidation
	default:
		return KindTransport
	}
}

// Feedback is what the UI renders as a toast or blocking alert.
type Feedback struct {
	Kind    Kind   `json:"-"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// HTTPStatus maps a kind onto the status the JSON API answers with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindAuth:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindRoomUnavailable:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// Reporter logs failures uniformly and converts them into Feedback.
type Reporter struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Reporter {
	if log == nil {
		log = slog.Default()
	}
	return &Reporter{log: log}
}

// Report logs the failure once, tagged with the operation, and returns the
// uniform user-facing feedback for it.
func (r *Reporter) Report(ctx context.Context, op string, err error) Feedback {
	kind := Classify(err)
	switch kind {
	case KindAuth:
		r.log.WarnContext(ctx, "auth failure", "op", op, "error", err)
		return Feedback{Kind: kind, Level: "warning", Message: "You need to be signed in to do that."}
	case KindValidation:
		r.log.InfoContext(ctx, "rejected input", "op", op, "error", err)
		return Feedback{Kind: kind, Level: "info", Message: err.Error()}
	case KindNotFound:
		r.log.InfoContext(ctx, "missing record", "op", op, "error", err)
		return Feedback{Kind: kind, Level: "warning", Message: "That room no longer exists."}
	case KindRoomUnavailable:
		r.log.InfoContext(ctx, "room unavailable", "op", op, "error", err)
		return Feedback{Kind: kind, Level: "alert", Message: "Room is full or invalid"}
	default:
		r.log.ErrorContext(ctx, "operation failed", "op", op, "error", err)
		return Feedback{Kind: kind, Level: "error", Message: "Something went wrong. Please try again."}
	}
}
