package validation

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newApp(cfg Config) *fiber.App {
	app := fiber.New()
	app.Use(Middleware(cfg))
	app.Post("/api/v1/ask", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Post("/api/v1/analyze", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func post(t *testing.T, app *fiber.App, path, contentType, body string) int {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode
}

func TestValidQuestionPasses(t *testing.T) {
	app := newApp(Config{})
	status := post(t, app, "/api/v1/ask", "application/json",
		`{"question": "How does microgravity affect bone density?"}`)
	if status != fiber.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
}

func TestRejectsMarkup(t *testing.T) {
	app := newApp(Config{})
	for _, body := range []string{
		`{"question": "<script>alert(1)</script>"}`,
		`{"question": "click javascript:alert(1)"}`,
		`{"query": "<iframe src=x>"}`,
	} {
		if status := post(t, app, "/api/v1/ask", "application/json", body); status != fiber.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, status)
		}
	}
}

func TestRejectsOverlongQuestion(t *testing.T) {
	app := newApp(Config{MaxQuestionLength: 50})
	long := strings.Repeat("a", 51)
	status := post(t, app, "/api/v1/ask", "application/json",
		`{"question": "`+long+`"}`)
	if status != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
}

func TestRejectsWrongContentType(t *testing.T) {
	app := newApp(Config{})
	status := post(t, app, "/api/v1/ask", "text/plain", `question=hello`)
	if status != fiber.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", status)
	}
}

func TestRejectsMalformedJSON(t *testing.T) {
	app := newApp(Config{})
	status := post(t, app, "/api/v1/ask", "application/json", `{"question": `)
	if status != fiber.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
}

func TestIgnoresUnscreenedPaths(t *testing.T) {
	app := newApp(Config{})
	status := post(t, app, "/api/v1/analyze", "application/json",
		`{"title": "<script>not screened here</script>"}`)
	if status != fiber.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
}
