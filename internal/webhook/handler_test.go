package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vidasana/citabot/internal/ratelimit"
)

type echoEngine struct {
	calls int
}

func (e *echoEngine) Handle(_ context.Context, senderID, text string) string {
	e.calls++
	return "hola " + senderID + ": " + text
}

type memoryCache struct {
	entries map[string]string
}

func (c *memoryCache) Get(_ context.Context, messageSID string) (string, bool, error) {
	reply, ok := c.entries[messageSID]
	return reply, ok, nil
}

func (c *memoryCache) Set(_ context.Context, messageSID, reply string) error {
	if c.entries == nil {
		c.entries = make(map[string]string)
	}
	c.entries[messageSID] = reply
	return nil
}

type stubLimiter struct {
	allowed bool
}

func (l *stubLimiter) Check(_ context.Context, _ string, _ int, window time.Duration) (*ratelimit.Result, error) {
	return &ratelimit.Result{Allowed: l.allowed, ResetAt: time.Now().Add(window)}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func postForm(t *testing.T, handler *Handler, values url.Values) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/whatsapp/webhook", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeWebhook(rec, req)
	return rec
}

func TestHandler_FormPayload(t *testing.T) {
	engine := &echoEngine{}
	handler := NewHandler(engine, nil, nil, 0, 0, testLogger())

	rec := postForm(t, handler, url.Values{
		"From":       {"whatsapp:+5215512345678"},
		"Body":       {"hola"},
		"MessageSid": {"SM123"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/xml")

	body := rec.Body.String()
	assert.Contains(t, body, "<Response>")
	assert.Contains(t, body, "<Message>hola whatsapp:+5215512345678: hola</Message>")
	assert.Equal(t, 1, engine.calls)
}

func TestHandler_JSONPayload(t *testing.T) {
	engine := &echoEngine{}
	handler := NewHandler(engine, nil, nil, 0, 0, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/whatsapp/webhook",
		strings.NewReader(`{"From":"whatsapp:+521","Body":"hola","MessageSid":"SM9"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeWebhook(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<Message>")
	assert.Equal(t, 1, engine.calls)
}

func TestHandler_MalformedPayload(t *testing.T) {
	engine := &echoEngine{}
	handler := NewHandler(engine, nil, nil, 0, 0, testLogger())

	testCases := []struct {
		name   string
		values url.Values
	}{
		{"missing sender", url.Values{"Body": {"hola"}}},
		{"missing body", url.Values{"From": {"whatsapp:+521"}}},
		{"empty", url.Values{}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rec := postForm(t, handler, tc.values)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	assert.Zero(t, engine.calls)
}

func TestHandler_BrokenJSONIsMalformed(t *testing.T) {
	handler := NewHandler(&echoEngine{}, nil, nil, 0, 0, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/whatsapp/webhook", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeWebhook(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// A redelivered message must replay the first reply instead of advancing the
// conversation a second time.
func TestHandler_DuplicateDeliveryReplaysReply(t *testing.T) {
	engine := &echoEngine{}
	cache := &memoryCache{}
	handler := NewHandler(engine, cache, nil, 0, 0, testLogger())

	values := url.Values{
		"From":       {"whatsapp:+521"},
		"Body":       {"hola"},
		"MessageSid": {"SM777"},
	}

	first := postForm(t, handler, values)
	second := postForm(t, handler, values)

	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, engine.calls)
}

func TestHandler_RateLimited(t *testing.T) {
	engine := &echoEngine{}
	handler := NewHandler(engine, nil, &stubLimiter{allowed: false}, 5, time.Minute, testLogger())

	rec := postForm(t, handler, url.Values{
		"From": {"whatsapp:+521"},
		"Body": {"hola"},
	})

	// a rate-limited sender still gets a conversational reply, never a transport error
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "muy rápido")
	assert.Zero(t, engine.calls)
}

func TestHandler_RateLimitAllows(t *testing.T) {
	engine := &echoEngine{}
	handler := NewHandler(engine, nil, &stubLimiter{allowed: true}, 5, time.Minute, testLogger())

	rec := postForm(t, handler, url.Values{
		"From": {"whatsapp:+521"},
		"Body": {"hola"},
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, engine.calls)
}

func TestHandler_XMLEscapesReply(t *testing.T) {
	rec := httptest.NewRecorder()
	writeTwiML(rec, `respuesta con <etiqueta> & "comillas"`)

	body := rec.Body.String()
	assert.Contains(t, body, "&lt;etiqueta&gt;")
	assert.Contains(t, body, "&amp;")
	assert.NotContains(t, body, "<etiqueta>")
}
