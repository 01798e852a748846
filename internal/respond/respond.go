// Package respond writes JSON responses and maps service errors to statuses.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"smartapp/internal/inquiry/model"
	"smartapp/internal/store"
)

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// Fail is the error body of every non-internal failure.
type Fail struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// Error maps err to a status: validation and invalid input 400, missing data
// 404, anything else 500 with the details only in the log.
func Error(w http.ResponseWriter, log zerolog.Logger, err error) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		JSON(w, http.StatusBadRequest, Fail{Message: "فشل الحفظ بسبب أخطاء.", Errors: verr.Lines})
		return
	}
	msg := err.Error()
	var f *model.Failure
	if errors.As(err, &f) {
		msg = f.Message
	}
	switch {
	case errors.Is(err, model.ErrInvalidArgument):
		JSON(w, http.StatusBadRequest, Fail{Message: msg})
	case errors.Is(err, model.ErrNotFound), errors.Is(err, store.ErrNotFound):
		JSON(w, http.StatusNotFound, Fail{Message: msg})
	default:
		log.Error().Err(err).Msg("request failed")
		JSON(w, http.StatusInternalServerError, map[string]string{"error": "internal"})
	}
}

// Decode reads a JSON body into v; a malformed body is an invalid argument.
func Decode(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.Invalid("طلب غير صالح.")
	}
	return nil
}
