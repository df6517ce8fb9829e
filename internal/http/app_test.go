package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"

	"mcacrm/internal/config"
	"mcacrm/internal/http/server"
	applog "mcacrm/internal/log"
	"mcacrm/internal/repos"
)

func testConfig() config.Config {
	return config.Config{
		Port:      "0",
		DBDriver:  "sqlite",
		DBDSN:     ":memory:",
		LogLevel:  "info",
		SSNKey:    "handler-test-key",
		BodyLimit: 1 << 20,
		RateLimit: 1000,
	}
}

// newTestApp wires the real server over a fresh migrated in-memory store.
func newTestApp(t *testing.T, tweak ...func(*config.Config)) (*fiber.App, *sqlx.DB) {
	t.Helper()
	cfg := testConfig()
	for _, fn := range tweak {
		fn(&cfg)
	}
	db, err := repos.OpenDB(cfg.DBDriver, cfg.DBDSN, true)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	app, err := server.NewApp(cfg, db)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return app, db
}

type apiResp struct {
	Status int
	Header http.Header
	Raw    []byte
}

func (r apiResp) object(t *testing.T) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(r.Raw, &out); err != nil {
		t.Fatalf("decode object: %v; body=%s", err, r.Raw)
	}
	return out
}

func (r apiResp) list(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	if err := json.Unmarshal(r.Raw, &out); err != nil {
		t.Fatalf("decode list: %v; body=%s", err, r.Raw)
	}
	return out
}

// call sends body as JSON unless it is already a string.
func call(t *testing.T, app *fiber.App, method, path string, body any) apiResp {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return apiResp{Status: resp.StatusCode, Header: resp.Header, Raw: raw}
}

func mustStatus(t *testing.T, r apiResp, want int) {
	t.Helper()
	if r.Status != want {
		t.Fatalf("expected %d, got %d; body=%s", want, r.Status, r.Raw)
	}
}

func id(t *testing.T, obj map[string]any) int64 {
	t.Helper()
	v, ok := obj["id"].(float64)
	if !ok {
		t.Fatalf("no id in %v", obj)
	}
	return int64(v)
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	Status int            `json:"status"`
	Path   string         `json:"path"`
	ReqID  string         `json:"req_id"`
	Fields map[string]any `json:"fields"`
}

type lockedBuf struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	buf := &lockedBuf{}
	restore := applog.SetOutput(buf)
	defer restore()

	fn()

	buf.mu.Lock()
	defer buf.mu.Unlock()
	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.b.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) *logEntry {
	for i := range entries {
		if entries[i].Action == action {
			return &entries[i]
		}
	}
	return nil
}
