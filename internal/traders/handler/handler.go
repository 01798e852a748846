package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"smartapp/internal/config"
	"smartapp/internal/identity"
	"smartapp/internal/inquiry/model"
	"smartapp/internal/middleware"
	reporthttp "smartapp/internal/reports/handler"
	reports "smartapp/internal/reports/service"
	"smartapp/internal/respond"
	"smartapp/internal/table"
	"smartapp/internal/traders/service"
)

type pageResponse struct {
	Success bool `json:"success"`
	reports.Page
}

type frequentResponse struct {
	Success bool     `json:"success"`
	Label   string   `json:"label"`
	Periods []string `json:"periods"`
	reports.Page
}

func sendOK(w http.ResponseWriter, v any) { respond.JSON(w, http.StatusOK, v) }

func mappingSaved(w http.ResponseWriter, m table.Mapping) {
	sendOK(w, map[string]any{
		"success":      true,
		"message":      "تم حفظ إعدادات المابنج.",
		"order_csv":    m.OrderCSV(),
		"rename_lines": m.RenameLines(),
	})
}

// parseForm reads a multipart or urlencoded body bounded by the upload limit.
func parseForm(cfg config.Config, r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(cfg.MaxUploadBytes()); err != nil {
			return model.Invalid("bad multipart form: " + err.Error())
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return model.Invalid("bad form: " + err.Error())
	}
	return nil
}

// ImportPrimary serves POST /traders/primary/import with field file.
func ImportPrimary(cfg config.Config, svc *service.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With().Str("rid", middleware.GetRequestID(r)).Logger()
		if err := parseForm(cfg, r); err != nil {
			respond.Error(w, log, err)
			return
		}
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}
		fh := reporthttp.FormFile(r.MultipartForm, "file")
		if fh == nil {
			respond.Error(w, log, model.Invalid("اختر ملفًا للاستيراد."))
			return
		}
		f, err := fh.Open()
		if err != nil {
			respond.Error(w, log, fmt.Errorf("open upload: %w", err))
			return
		}
		defer f.Close()

		res, err := svc.ImportPrimary(r.Context(), reports.Upload{Position: 1, Filename: fh.Filename, Body: f})
		if err != nil {
			respond.Error(w, log, err)
			return
		}
		sendOK(w, struct {
			Success bool `json:"success"`
			service.ImportResult
		}{true, res})
	}
}

// ViewPrimary serves GET /traders/primary.
func ViewPrimary(svc *service.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.ViewPrimary(r.Context(), reporthttp.ParseQuery(r))
		if err != nil {
			respond.Error(w, logger, err)
			return
		}
		sendOK(w, pageResponse{Success: true, Page: p})
	}
}

// SavePrimaryMapping serves POST /traders/primary/mapping.
func SavePrimaryMapping(svc *service.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := svc.SavePrimaryMapping(r.Context(), r.FormValue("order_csv"), r.FormValue("rename_lines"))
		if err != nil {
			respond.Error(w, logger, err)
			return
		}
		mappingSaved(w, m)
	}
}

// ExportPrimary serves GET /traders/primary/export.
func ExportPrimary(svc *service.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := svc.ExportPrimary(r.Context(), reporthttp.ParseQuery(r), &buf); err != nil {
			respond.Error(w, logger, err)
			return
		}
		reporthttp.SendXLSX(w, service.PrimaryExportName, &buf)
	}
}

// ImportFrequent serves POST /traders/frequent/import with fields label,
// file1, file2 and an optional order_csv / rename_lines mapping.
func ImportFrequent(cfg config.Config, svc *service.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With().Str("rid", middleware.GetRequestID(r)).Logger()
		if err := parseForm(cfg, r); err != nil {
			respond.Error(w, log, err)
			return
		}
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}

		var uploads []reports.Upload
		for i := 1; i <= service.MaxFrequentFiles; i++ {
			fh := reporthttp.FormFile(r.MultipartForm, fmt.Sprintf("file%d", i))
			if fh == nil {
				continue
			}
			f, err := fh.Open()
			if err != nil {
				respond.Error(w, log, fmt.Errorf("open upload %d: %w", i, err))
				return
			}
			defer f.Close()
			uploads = append(uploads, reports.Upload{Position: i, Filename: fh.Filename, Body: f})
		}

		res, err := svc.ImportFrequent(r.Context(), r.FormValue("label"), uploads,
			r.FormValue("order_csv"), r.FormValue("rename_lines"))
		if err != nil {
			respond.Error(w, log, err)
			return
		}
		sendOK(w, struct {
			Success bool `json:"success"`
			service.ImportResult
		}{true, res})
	}
}

// Periods serves GET /traders/frequent/periods.
func Periods(svc *service.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ps, err := svc.Periods(r.Context())
		if err != nil {
			respond.Error(w, logger, err)
			return
		}
		sendOK(w, map[string]any{"success": true, "periods": ps})
	}
}

// frequentLabel reads the label from the path, then the query; labels with
// a slash only fit the query form.
func frequentLabel(r *http.Request) string {
	if l := chi.URLParam(r, "label"); l != "" {
		return l
	}
	return r.URL.Query().Get("label")
}

// ViewFrequent serves GET /traders/frequent and /traders/frequent/{label}.
func ViewFrequent(svc *service.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		label := frequentLabel(r)
		p, err := svc.ViewFrequent(r.Context(), label, reporthttp.ParseQuery(r))
		if err != nil {
			respond.Error(w, logger, err)
			return
		}
		ps, err := svc.Periods(r.Context())
		if err != nil {
			respond.Error(w, logger, err)
			return
		}
		sendOK(w, frequentResponse{Success: true, Label: label, Periods: ps, Page: p})
	}
}

// ExportFrequent serves GET /traders/frequent/export?label=.
func ExportFrequent(svc *service.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		label := frequentLabel(r)
		var buf bytes.Buffer
		if err := svc.ExportFrequent(r.Context(), label, reporthttp.ParseQuery(r), &buf); err != nil {
			respond.Error(w, logger, err)
			return
		}
		reporthttp.SendXLSX(w, service.FrequentExportName(label), &buf)
	}
}

// SaveFrequentMapping serves POST /traders/frequent/mapping.
func SaveFrequentMapping(svc *service.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := svc.SaveFrequentMapping(r.Context(), r.FormValue("order_csv"), r.FormValue("rename_lines"))
		if err != nil {
			respond.Error(w, logger, err)
			return
		}
		mappingSaved(w, m)
	}
}

// AddRecent serves POST /traders/frequent/recent.
func AddRecent(svc *service.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With().Str("rid", middleware.GetRequestID(r)).Logger()
		var e service.RecentEntry
		if err := respond.Decode(r, &e); err != nil {
			respond.Error(w, log, err)
			return
		}
		if err := svc.AddRecent(r.Context(), identity.From(r.Context()), e); err != nil {
			respond.Error(w, log, err)
			return
		}
		sendOK(w, map[string]any{"success": true, "message": "تمت إضافة السجل إلى البيانات الحديثة."})
	}
}

// RecentCount serves GET /traders/frequent/recent/count?serial=.
func RecentCount(svc *service.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := svc.RecentCount(r.Context(), r.URL.Query().Get("serial"))
		if err != nil {
			respond.Error(w, logger, err)
			return
		}
		sendOK(w, struct {
			Success bool `json:"success"`
			service.RecentCount
		}{true, c})
	}
}

// DeleteRecent serves DELETE /traders/frequent/recent/{order}.
func DeleteRecent(svc *service.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With().Str("rid", middleware.GetRequestID(r)).Logger()
		n, err := svc.DeleteRecent(r.Context(), chi.URLParam(r, "order"))
		if err != nil {
			respond.Error(w, log, err)
			return
		}
		sendOK(w, map[string]any{
			"success": true,
			"removed": n,
			"message": fmt.Sprintf("تم حذف %d سجل.", n),
		})
	}
}

// ResetRecent serves POST /api/recent_program/reset.
func ResetRecent(svc *service.Service, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.With().Str("rid", middleware.GetRequestID(r)).Logger()
		if err := svc.ResetRecent(r.Context(), identity.From(r.Context())); err != nil {
			respond.Error(w, log, err)
			return
		}
		sendOK(w, map[string]any{"success": true, "message": "تم تفريغ البيانات الحديثة وإنشاؤها فارغة بنفس الأعمدة."})
	}
}
