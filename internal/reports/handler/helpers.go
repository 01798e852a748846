package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"smartapp/internal/reports/service"
)

const xlsxType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return i
}

// ParseQuery reads q, search_in, page and page_size from the URL.
func ParseQuery(r *http.Request) service.Query {
	v := r.URL.Query()
	return service.Query{
		Q:        v.Get("q"),
		SearchIn: v.Get("search_in"),
		Page:     atoi(v.Get("page"), 1),
		PageSize: atoi(v.Get("page_size"), service.DefaultPageSize),
	}
}

// SendXLSX writes a finished workbook as a download named name.
func SendXLSX(w http.ResponseWriter, name string, body *bytes.Buffer) {
	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition",
		`attachment; filename="export.xlsx"; filename*=UTF-8''`+url.PathEscape(name))
	w.Header().Set("Content-Length", strconv.Itoa(body.Len()))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = body.WriteTo(w)
}

// FormFile returns the named upload, nil when the field is absent or empty.
func FormFile(form *multipart.Form, field string) *multipart.FileHeader {
	if form == nil {
		return nil
	}
	fs := form.File[field]
	if len(fs) == 0 || fs[0].Filename == "" {
		return nil
	}
	return fs[0]
}
