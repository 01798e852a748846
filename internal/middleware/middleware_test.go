package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"smartapp/internal/identity"
)

func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

func TestIdentityGates(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		gate    func(http.Handler) http.Handler
		want    int
	}{
		{"anonymous", nil, RequirePermission(identity.PermInquiry), http.StatusUnauthorized},
		{"bad id", map[string]string{HeaderUserID: "x"}, RequireAuth(), http.StatusUnauthorized},
		{"missing perm", map[string]string{HeaderUserID: "3", HeaderUserRole: "user"}, RequirePermission(identity.PermInquiry), http.StatusForbidden},
		{"perm", map[string]string{HeaderUserID: "3", HeaderUserRole: "user", HeaderUserPermissions: "can_general_reports, can_inquiry"}, RequirePermission(identity.PermInquiry), http.StatusOK},
		{"admin", map[string]string{HeaderUserID: "1", HeaderUserRole: "Admin"}, RequirePermission(identity.PermTraderPrimary), http.StatusOK},
		{"role", map[string]string{HeaderUserID: "3", HeaderUserRole: "user"}, RequireRole(identity.RoleAdmin, identity.RoleDataEntry), http.StatusForbidden},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		chain(ok, Identity(), c.gate).ServeHTTP(rec, req)
		if rec.Code != c.want {
			t.Fatalf("%s: status=%d want=%d", c.name, rec.Code, c.want)
		}
		if c.want != http.StatusOK {
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["success"] != false {
				t.Fatalf("%s: body=%s", c.name, rec.Body.String())
			}
		}
	}
}

func TestIdentityInContext(t *testing.T) {
	var got identity.Identity
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { got = identity.From(r.Context()) })
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderUserID, "12")
	req.Header.Set(HeaderUserName, " mona ")
	req.Header.Set(HeaderUserRole, "data_entry")
	chain(h, Identity()).ServeHTTP(httptest.NewRecorder(), req)
	if got.ID != 12 || got.Username != "mona" || got.Role != identity.RoleDataEntry {
		t.Fatalf("got=%+v", got)
	}
}

func TestRecoverWritesJSON(t *testing.T) {
	boom := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	rec := httptest.NewRecorder()
	chain(boom, Recover(zerolog.Nop()), RequestID()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError || rec.Body.String() != `{"error":"internal"}` {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestRequestIDKeptOrMinted(t *testing.T) {
	var seen string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { seen = GetRequestID(r) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	chain(h, RequestID()).ServeHTTP(rec, req)
	if seen != "abc" || rec.Header().Get("X-Request-ID") != "abc" {
		t.Fatalf("seen=%q", seen)
	}

	chain(h, RequestID()).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if len(seen) != 36 {
		t.Fatalf("minted id=%q", seen)
	}
}

func TestLoggingIncludesUser(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	req := httptest.NewRequest(http.MethodGet, "/reports/ration", nil)
	req.Header.Set(HeaderUserID, "5")
	req.Header.Set(HeaderUserName, "omar")
	chain(ok, RequestID(), Logging(logger), Identity()).ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log=%q err=%v", buf.String(), err)
	}
	if line["user"] != "omar" || line["path"] != "/reports/ration" || line["status"] != float64(200) {
		t.Fatalf("log=%v", line)
	}
}

func TestLimitBytes(t *testing.T) {
	var readErr error
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, readErr = io.ReadAll(r.Body) })
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 100)))
	chain(h, LimitBytes(10)).ServeHTTP(httptest.NewRecorder(), req)
	if readErr == nil {
		t.Fatalf("read past the limit must fail")
	}
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://a.test")
	rec := httptest.NewRecorder()
	chain(ok, CORS([]string{"http://a.test"})).ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("Access-Control-Allow-Origin") != "http://a.test" {
		t.Fatalf("status=%d headers=%v", rec.Code, rec.Header())
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), "DELETE") {
		t.Fatalf("methods=%q", rec.Header().Get("Access-Control-Allow-Methods"))
	}
}
