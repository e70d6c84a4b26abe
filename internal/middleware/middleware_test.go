package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/chuanghiduoc/progress-mailer/pkg/apperror"
	"github.com/chuanghiduoc/progress-mailer/pkg/metrics"
)

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: apperror.FiberErrorHandler,
	})
}

func ok(c fiber.Ctx) error { return c.SendString("ok") }

func get(t *testing.T, app *fiber.App, path string, headers ...string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, path, http.NoBody)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	return resp
}

// captureLogs routes the default slog logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

// ---------------------------------------------------------------------------
// RequestID
// ---------------------------------------------------------------------------

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		check    func(t *testing.T, got string)
	}{
		{"generated when absent", "", func(t *testing.T, got string) {
			if len(got) != 36 {
				t.Errorf("X-Request-ID = %q, want a uuid", got)
			}
		}},
		{"passes caller id through", "bulk-run-17", func(t *testing.T, got string) {
			if got != "bulk-run-17" {
				t.Errorf("X-Request-ID = %q, want bulk-run-17", got)
			}
		}},
		{"oversized id replaced", strings.Repeat("x", 500), func(t *testing.T, got string) {
			if len(got) != 36 {
				t.Errorf("oversized id should be replaced by a uuid, got %d chars", len(got))
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp()
			app.Get("/api/v1/students", RequestID(), ok)

			var headers []string
			if tt.incoming != "" {
				headers = []string{"X-Request-ID", tt.incoming}
			}
			tt.check(t, get(t, app, "/api/v1/students", headers...).Header.Get("X-Request-ID"))
		})
	}
}

func TestRequestID_Context(t *testing.T) {
	app := newTestApp()
	app.Get("/api/v1/email/runs/:id", RequestID(), func(c fiber.Ctx) error {
		if got := RequestIDFromContext(c.Context()); got != "ctx-id" {
			t.Errorf("RequestIDFromContext = %q, want ctx-id", got)
		}
		return ok(c)
	})

	get(t, app, "/api/v1/email/runs/abc", "X-Request-ID", "ctx-id")

	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("RequestIDFromContext on empty context = %q", got)
	}
}

func TestRequestID_InErrorBody(t *testing.T) {
	app := newTestApp()
	app.Get("/api/v1/students/:id", RequestID(), func(c fiber.Ctx) error {
		return apperror.NewNotFound("student not found")
	})

	resp := get(t, app, "/api/v1/students/9", "X-Request-ID", "trace-9")
	body, _ := io.ReadAll(resp.Body)
	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	errObj := result["error"].(map[string]any)
	if errObj["request_id"] != "trace-9" {
		t.Errorf("error.request_id = %v, want trace-9", errObj["request_id"])
	}
}

// ---------------------------------------------------------------------------
// SecurityHeaders
// ---------------------------------------------------------------------------

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		env      string
		wantHSTS bool
	}{
		{"production", true},
		{"staging", true},
		{"local", false},
		{"test", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			app := newTestApp()
			app.Get("/healthz", SecurityHeaders(tt.env), ok)
			resp := get(t, app, "/healthz")

			for header, want := range map[string]string{
				"X-Content-Type-Options": "nosniff",
				"X-Frame-Options":        "DENY",
				"Referrer-Policy":        "strict-origin-when-cross-origin",
			} {
				if got := resp.Header.Get(header); got != want {
					t.Errorf("%s = %q, want %q", header, got, want)
				}
			}
			if hsts := resp.Header.Get("Strict-Transport-Security") != ""; hsts != tt.wantHSTS {
				t.Errorf("HSTS present = %v, want %v", hsts, tt.wantHSTS)
			}
		})
	}
}

func TestSecurityHeaders_APINoStore(t *testing.T) {
	app := newTestApp()
	app.Use(SecurityHeaders("local"))
	app.Get("/api/v1/students", func(c fiber.Ctx) error { return c.SendString("[]") })
	app.Get("/healthz", ok)

	if got := get(t, app, "/api/v1/students").Header.Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
	if got := get(t, app, "/healthz").Header.Get("Cache-Control"); got != "" {
		t.Errorf("Cache-Control on probe = %q, want empty", got)
	}
}

// ---------------------------------------------------------------------------
// Recovery
// ---------------------------------------------------------------------------

func TestRecovery(t *testing.T) {
	logs := captureLogs(t)
	app := newTestApp()
	app.Get("/api/v1/email/preview", Recovery("test"), func(c fiber.Ctx) error {
		panic("template exploded")
	})
	app.Get("/healthz", Recovery("test"), ok)

	resp := get(t, app, "/api/v1/email/preview")
	if resp.StatusCode != 500 {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if result["success"] != false {
		t.Error("success should be false")
	}
	if !strings.Contains(logs.String(), "template exploded") {
		t.Error("panic value should be logged")
	}

	if resp := get(t, app, "/healthz"); resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestRecovery_ProductionHidesHint(t *testing.T) {
	app := newTestApp()
	app.Get("/boom", Recovery("production"), func(c fiber.Ctx) error {
		panic("boom")
	})

	body, _ := io.ReadAll(get(t, app, "/boom").Body)
	if strings.Contains(string(body), "check server logs") {
		t.Errorf("production body should not carry the debugging hint: %s", body)
	}
}

// ---------------------------------------------------------------------------
// Logger
// ---------------------------------------------------------------------------

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name      string
		handler   fiber.Handler
		wantLevel string
		wantCode  float64
	}{
		{"ok", ok, "INFO", 200},
		{"not found", func(c fiber.Ctx) error { return apperror.NewNotFound("student not found") }, "WARN", 404},
		{"internal", func(c fiber.Ctx) error { return apperror.NewInternal("failed to load students") }, "ERROR", 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureLogs(t)
			app := newTestApp()
			app.Get("/api/v1/students/:id", Logger(), tt.handler)

			resp := get(t, app, "/api/v1/students/3?fields=email")
			if float64(resp.StatusCode) != tt.wantCode {
				t.Errorf("status = %d, want %v", resp.StatusCode, tt.wantCode)
			}

			var line map[string]any
			if err := json.Unmarshal(logs.Bytes(), &line); err != nil {
				t.Fatalf("expected one JSON log line, got %q", logs.String())
			}
			if line["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", line["level"], tt.wantLevel)
			}
			if line["status"] != tt.wantCode {
				t.Errorf("logged status = %v, want %v", line["status"], tt.wantCode)
			}
			if line["query"] != "fields=email" {
				t.Errorf("logged query = %v", line["query"])
			}
		})
	}
}

func TestLogger_SkipPaths(t *testing.T) {
	logs := captureLogs(t)
	app := newTestApp()
	app.Get("/healthz", Logger("/healthz", "/readyz"), ok)
	app.Get("/readyz", Logger("/healthz", "/readyz"), func(c fiber.Ctx) error {
		return c.Status(fiber.StatusServiceUnavailable).SendString("degraded")
	})

	get(t, app, "/healthz")
	if logs.Len() != 0 {
		t.Errorf("successful probe should not be logged: %s", logs.String())
	}

	get(t, app, "/readyz")
	if !strings.Contains(logs.String(), `"path":"/readyz"`) {
		t.Errorf("failing probe should be logged: %s", logs.String())
	}
}

// ---------------------------------------------------------------------------
// Metrics
// ---------------------------------------------------------------------------

func TestMetrics_RoutePatternLabel(t *testing.T) {
	app := newTestApp()
	app.Get("/students/:id", Metrics(), func(c fiber.Ctx) error {
		return apperror.NewNotFound("student not found")
	})
	app.Post("/email/send-bulk", Metrics(), ok)

	notFound := metrics.HTTPRequestsTotal.WithLabelValues("GET", "/students/:id", "404")
	sent := metrics.HTTPRequestsTotal.WithLabelValues("POST", "/email/send-bulk", "200")
	beforeNF, beforeSent := testutil.ToFloat64(notFound), testutil.ToFloat64(sent)

	get(t, app, "/students/42")
	get(t, app, "/students/43")
	req, _ := http.NewRequest(http.MethodPost, "/email/send-bulk", http.NoBody)
	if _, err := app.Test(req); err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	if d := testutil.ToFloat64(notFound) - beforeNF; d != 2 {
		t.Errorf("404 counter delta = %v, want 2", d)
	}
	if d := testutil.ToFloat64(sent) - beforeSent; d != 1 {
		t.Errorf("send-bulk counter delta = %v, want 1", d)
	}
}

// ---------------------------------------------------------------------------
// Rate limiter
// ---------------------------------------------------------------------------

func TestNewLimiter(t *testing.T) {
	app := newTestApp()
	app.Get("/api/v1/email/test", NewLimiter(2, 60), ok)

	for i := 0; i < 2; i++ {
		if resp := get(t, app, "/api/v1/email/test"); resp.StatusCode != 200 {
			t.Errorf("request %d: status = %d, want 200", i, resp.StatusCode)
		}
	}

	resp := get(t, app, "/api/v1/email/test")
	if resp.StatusCode != 429 {
		t.Errorf("rate limited request: status = %d, want 429", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), apperror.CodeTooManyRequests) {
		t.Errorf("limited response body = %s", body)
	}
}

// ---------------------------------------------------------------------------
// Timeout
// ---------------------------------------------------------------------------

func TestTimeout(t *testing.T) {
	tests := []struct {
		name         string
		d            time.Duration
		wantDeadline bool
	}{
		{"bounded", 5 * time.Second, true},
		{"disabled", 0, false},
		{"negative disables", -time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp()
			app.Post("/api/v1/email/send-bulk", Timeout(tt.d), func(c fiber.Ctx) error {
				deadline, has := c.Context().Deadline()
				if has != tt.wantDeadline {
					t.Errorf("deadline set = %v, want %v", has, tt.wantDeadline)
				}
				if has && !deadline.After(time.Now()) {
					t.Error("deadline should be in the future")
				}
				return ok(c)
			})

			req, _ := http.NewRequest(http.MethodPost, "/api/v1/email/send-bulk", http.NoBody)
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test failed: %v", err)
			}
			if resp.StatusCode != 200 {
				t.Errorf("status = %d, want 200", resp.StatusCode)
			}
		})
	}
}

func TestTimeout_ExpiredContextIs504(t *testing.T) {
	app := newTestApp()
	app.Get("/api/v1/students", Timeout(time.Millisecond), func(c fiber.Ctx) error {
		<-c.Context().Done()
		return c.Context().Err()
	})

	if resp := get(t, app, "/api/v1/students"); resp.StatusCode != fiber.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", resp.StatusCode)
	}
}
