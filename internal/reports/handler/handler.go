package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"smartapp/internal/config"
	"smartapp/internal/identity"
	"smartapp/internal/inquiry/model"
	"smartapp/internal/merge"
	"smartapp/internal/middleware"
	"smartapp/internal/reports/service"
	"smartapp/internal/respond"
)

type viewResponse struct {
	Success       bool   `json:"success"`
	Category      string `json:"category"`
	CategoryLabel string `json:"category_label"`
	service.Page
}

// View serves GET /reports/{category}.
func View(svc *service.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := chi.URLParam(r, "category")
		id := identity.From(r.Context())
		p, err := svc.View(r.Context(), category, id.ID, ParseQuery(r))
		if err != nil {
			respond.Error(w, logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, viewResponse{
			Success:       true,
			Category:      category,
			CategoryLabel: model.CategoryLabel(category),
			Page:          p,
		})
	}
}

// Export serves GET /reports/{category}/export.
func Export(svc *service.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := chi.URLParam(r, "category")
		id := identity.From(r.Context())
		var buf bytes.Buffer
		if err := svc.Export(r.Context(), category, id.ID, ParseQuery(r), &buf); err != nil {
			respond.Error(w, logger, err)
			return
		}
		SendXLSX(w, service.ExportName(category), &buf)
	}
}

// Import serves POST /reports/{category}/import with fields file1..file6.
func Import(cfg config.Config, svc *service.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := logger.With().Str("rid", middleware.GetRequestID(r)).Logger()
		if err := r.ParseMultipartForm(cfg.MaxUploadBytes()); err != nil {
			respond.Error(w, log, model.Invalid("bad multipart form: "+err.Error()))
			return
		}
		defer r.MultipartForm.RemoveAll()

		var uploads []service.Upload
		for i := 1; i <= merge.MaxFiles; i++ {
			fh := FormFile(r.MultipartForm, fmt.Sprintf("file%d", i))
			if fh == nil {
				continue
			}
			f, err := fh.Open()
			if err != nil {
				respond.Error(w, log, fmt.Errorf("open upload %d: %w", i, err))
				return
			}
			defer f.Close()
			uploads = append(uploads, service.Upload{Position: i, Filename: fh.Filename, Body: f})
		}

		category := chi.URLParam(r, "category")
		res, err := svc.Import(r.Context(), category, identity.From(r.Context()).ID, uploads)
		if err != nil {
			respond.Error(w, log, err)
			return
		}
		respond.JSON(w, http.StatusOK, struct {
			Success bool `json:"success"`
			service.ImportResult
		}{true, res})

		log.Info().
			Str("category", category).
			Int("rows", res.Rows).
			Dur("elapsed", time.Since(start)).
			Msg("import done")
	}
}

// SaveMapping serves POST /reports/{category}/mapping (order_csv, rename_lines).
func SaveMapping(svc *service.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category := chi.URLParam(r, "category")
		m, err := svc.SaveMapping(r.Context(), category, identity.From(r.Context()).ID,
			r.FormValue("order_csv"), r.FormValue("rename_lines"))
		if err != nil {
			respond.Error(w, logger, err)
			return
		}
		respond.JSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"message":      "تم حفظ إعدادات المابنج.",
			"order_csv":    m.OrderCSV(),
			"rename_lines": m.RenameLines(),
		})
	}
}
