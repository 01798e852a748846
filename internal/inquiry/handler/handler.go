package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"smartapp/internal/identity"
	"smartapp/internal/inquiry/model"
	"smartapp/internal/middleware"
	"smartapp/internal/respond"
)

type Searcher interface {
	Search(ctx context.Context, req model.Request) (*model.Result, error)
}

// Search returns the handler of POST /api/inquiry/search.
func Search(svc Searcher, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := logger.With().Str("rid", middleware.GetRequestID(r)).Logger()

		var req model.Request
		if err := respond.Decode(r, &req); err != nil {
			respond.Error(w, log, err)
			return
		}
		req.UserID = identity.From(r.Context()).ID
		res, err := svc.Search(r.Context(), req)
		if err != nil {
			respond.Error(w, log, err)
			return
		}
		respond.JSON(w, http.StatusOK, res)

		log.Debug().
			Str("category", req.Category).
			Int("items", len(res.Items)).
			Dur("elapsed", time.Since(start)).
			Msg("inquiry served")
	}
}
