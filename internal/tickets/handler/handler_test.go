package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"smartapp/internal/identity"
	"smartapp/internal/inquiry/model"
	"smartapp/internal/middleware"
	"smartapp/internal/tickets/service"
)

type fakeSaver struct {
	got  service.SaveRequest
	who  identity.Identity
	err  error
	done service.SaveResult
}

func (f *fakeSaver) Save(_ context.Context, req service.SaveRequest, id identity.Identity) (service.SaveResult, error) {
	f.got, f.who = req, id
	return f.done, f.err
}

func serve(f *fakeSaver, body string) *httptest.ResponseRecorder {
	h := middleware.Identity()(Save(f, zerolog.Nop()))
	req := httptest.NewRequest(http.MethodPost, "/api/tickets/save", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderUserID, "4")
	req.Header.Set(middleware.HeaderUserName, "omar")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestSavePassesCallerIdentity(t *testing.T) {
	f := &fakeSaver{done: service.SaveResult{Saved: 1, Message: "ok"}}
	rr := serve(f, `{"category":"ration","tickets":[{"fault_type":"ريدر","order_number":55}],"customer_data":{"رقم العميل":"5"}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	if f.who.ID != 4 || f.who.Username != "omar" {
		t.Fatalf("identity=%+v", f.who)
	}
	if len(f.got.Tickets) != 1 || f.got.Tickets[0].OrderNumber.String() != "55" || f.got.CustomerData["رقم العميل"] != "5" {
		t.Fatalf("request=%+v", f.got)
	}
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["success"] != true || out["saved"] != float64(1) {
		t.Fatalf("body=%v", out)
	}
}

func TestSaveValidationErrorsListed(t *testing.T) {
	f := &fakeSaver{err: &model.ValidationError{Lines: []string{"سطر 1: x", "سطر 2: y"}}}
	rr := serve(f, `{"category":"ration","tickets":[{}]}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
	var out struct {
		Success bool     `json:"success"`
		Errors  []string `json:"errors"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Success || len(out.Errors) != 2 {
		t.Fatalf("body=%s", rr.Body)
	}
}

func TestSaveMalformedBody(t *testing.T) {
	rr := serve(&fakeSaver{}, `{"tickets":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rr.Code)
	}
}
