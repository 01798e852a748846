package handler

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"smartapp/internal/identity"
	"smartapp/internal/middleware"
	"smartapp/internal/respond"
	"smartapp/internal/tickets/service"
)

type Saver interface {
	Save(ctx context.Context, req service.SaveRequest, id identity.Identity) (service.SaveResult, error)
}

type saveResponse struct {
	Success bool `json:"success"`
	service.SaveResult
}

// Save serves POST /api/service_tickets/save.
func Save(svc Saver, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With().Str("rid", middleware.GetRequestID(r)).Logger()

		var req service.SaveRequest
		if err := respond.Decode(r, &req); err != nil {
			respond.Error(w, log, err)
			return
		}
		res, err := svc.Save(r.Context(), req, identity.From(r.Context()))
		if err != nil {
			respond.Error(w, log, err)
			return
		}
		respond.JSON(w, http.StatusOK, saveResponse{Success: true, SaveResult: res})
	}
}
