package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/amcommunity/warden/internal/auditlog"
	"github.com/amcommunity/warden/internal/config"
)

func newTestServer(ready bool) (*Server, *auditlog.Log) {
	audit := auditlog.NewLog(auditlog.NewInMemoryStore(), nil)
	s := New(config.Config{}, audit, func() bool { return ready }, nil)
	return s, audit
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(true)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", rec.Code)
	}
}

func TestReadyzReflectsGatewayState(t *testing.T) {
	s, _ := newTestServer(false)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d, want 503 before gateway connects", rec.Code)
	}

	s, _ = newTestServer(true)
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz status = %d, want 200 when connected", rec.Code)
	}
}

func TestAuditRecentReturnsEntries(t *testing.T) {
	s, audit := newTestServer(true)
	audit.Record(context.Background(), auditlog.Entry{UserID: "u1", Source: auditlog.SourceManual})
	audit.Record(context.Background(), auditlog.Entry{UserID: "u2", Source: auditlog.SourceSpam})

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/audit/recent?limit=1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Entries []auditlog.Entry `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Entries) != 1 || body.Entries[0].UserID != "u2" {
		t.Fatalf("entries = %+v, want the newest entry only", body.Entries)
	}
}

func TestAuditRecentRejectsBadLimit(t *testing.T) {
	s, _ := newTestServer(true)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/audit/recent?limit=zero", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAuditStreamDeliversNewEntries(t *testing.T) {
	s, audit := newTestServer(true)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/audit/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial stream: %v", err)
	}
	defer conn.Close()

	// Give the handler a moment to subscribe after the handshake.
	time.Sleep(50 * time.Millisecond)
	audit.Record(context.Background(), auditlog.Entry{UserID: "u1", Source: auditlog.SourceHoneypot})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var entry auditlog.Entry
	if err := conn.ReadJSON(&entry); err != nil {
		t.Fatalf("read stream entry: %v", err)
	}
	if entry.UserID != "u1" || entry.Source != auditlog.SourceHoneypot {
		t.Fatalf("streamed entry = %+v", entry)
	}
}
