package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"smartapp/internal/inquiry/model"
	"smartapp/internal/store"
)

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{model.Invalid("bad"), http.StatusBadRequest, "bad"},
		{model.NotFound("none"), http.StatusNotFound, "none"},
		{fmt.Errorf("load: %w", store.ErrNotFound), http.StatusNotFound, ""},
		{&model.ValidationError{Lines: []string{"a", "b"}}, http.StatusBadRequest, ""},
		{errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		Error(rec, zerolog.Nop(), c.err)
		if rec.Code != c.status {
			t.Fatalf("%v: status=%d want=%d", c.err, rec.Code, c.status)
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
			t.Fatalf("content type=%q", ct)
		}
		if c.msg == "" {
			continue
		}
		var body Fail
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Message != c.msg {
			t.Fatalf("body=%s err=%v", rec.Body.String(), err)
		}
	}
}

func TestValidationLinesListed(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, zerolog.Nop(), &model.ValidationError{Lines: []string{"1", "2"}})
	var body Fail
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || len(body.Errors) != 2 {
		t.Fatalf("body=%+v", body)
	}
}

func TestInternalHidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, zerolog.Nop(), errors.New("db password leaked"))
	if got := rec.Body.String(); got != "{\n  \"error\": \"internal\"\n}\n" {
		t.Fatalf("body=%q", got)
	}
}
