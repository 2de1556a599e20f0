// internal/app/features/apierr/apierr.go
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dalemusser/giftcircle/internal/domain/errs"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxBody caps JSON request bodies.
const maxBody = 64 << 10

// Body is the JSON error envelope.
type Body struct {
	Error Detail `json:"error"`
}

type Detail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Stale   []errs.StaleEntry `json:"stale,omitempty"`
}

var mapping = []struct {
	err    error
	status int
	code   string
}{
	{errs.ErrNotFound, http.StatusNotFound, "not_found"},
	{errs.ErrPermissionDenied, http.StatusForbidden, "permission_denied"},
	{errs.ErrNotOwner, http.StatusForbidden, "not_owner"},
	{errs.ErrAlreadyClaimed, http.StatusConflict, "already_claimed"},
	{errs.ErrEventFull, http.StatusConflict, "event_full"},
	{errs.ErrAlreadyDrawn, http.StatusConflict, "already_drawn"},
	{errs.ErrStaleAssignment, http.StatusConflict, "stale_assignment"},
	{errs.ErrConflict, http.StatusConflict, "conflict"},
	{errs.ErrDrawNotReady, http.StatusUnprocessableEntity, "draw_not_ready"},
	{errs.ErrInvalid, http.StatusBadRequest, "invalid"},
}

// Status returns the HTTP status and error code for err.
func Status(err error) (int, string) {
	for _, m := range mapping {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

// Write sends err as a JSON error. Domain errors carry their message;
// anything else is logged and reported as an opaque 500.
func Write(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status, code := Status(err)
	body := Body{Error: Detail{Code: code, Message: err.Error()}}

	var stale *errs.StaleAssignmentError
	if errors.As(err, &stale) {
		body.Error.Stale = stale.Entries
	}
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		body.Error.Message = "internal error"
	}
	JSON(w, status, body)
}

// Unauthorized writes a 401 for requests without a signed-in account.
func Unauthorized(w http.ResponseWriter) {
	JSON(w, http.StatusUnauthorized, Body{Error: Detail{Code: "unauthorized", Message: "sign in required"}})
}

// TooManyRequests writes a 429 for callers over their rate limit.
func TooManyRequests(w http.ResponseWriter) {
	JSON(w, http.StatusTooManyRequests, Body{Error: Detail{Code: "rate_limited", Message: "too many requests"}})
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Decode reads a JSON request body into v. An empty body leaves v untouched.
// Malformed input is reported as errs.ErrInvalid.
func Decode(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.Join(errs.ErrInvalid, err)
	}
	return nil
}

// PathID parses an ObjectID URL parameter. A malformed id cannot name an
// existing record, so it is reported as errs.ErrNotFound.
func PathID(r *http.Request, key string) (primitive.ObjectID, error) {
	raw := chi.URLParam(r, key)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%s %q: %w", key, raw, errs.ErrNotFound)
	}
	return id, nil
}
