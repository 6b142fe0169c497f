package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"horse.fit/aidesk/internal/auth"
	"horse.fit/aidesk/internal/capability"
	"horse.fit/aidesk/internal/training"
	"horse.fit/aidesk/internal/workflow"
)

type stubTranslator struct {
	availability capability.Availability
	err          error
}

func (s stubTranslator) Availability(context.Context, capability.LanguagePair) (capability.Availability, error) {
	return s.availability, nil
}

func (s stubTranslator) Create(context.Context, capability.LanguagePair) (capability.TranslatorSession, error) {
	return stubTranslatorSession{err: s.err}, nil
}

type stubTranslatorSession struct {
	err error
}

func (stubTranslatorSession) Ready(context.Context) error { return nil }

func (s stubTranslatorSession) Translate(_ context.Context, text string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if text == "Hello" {
		return "Hola", nil
	}
	return strings.ToUpper(text), nil
}

// gatedTranslator blocks every session in Ready until release is closed.
type gatedTranslator struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedTranslator() *gatedTranslator {
	return &gatedTranslator{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedTranslator) Availability(context.Context, capability.LanguagePair) (capability.Availability, error) {
	return capability.Downloadable, nil
}

func (g *gatedTranslator) Create(context.Context, capability.LanguagePair) (capability.TranslatorSession, error) {
	return gatedSession{owner: g}, nil
}

type gatedSession struct {
	owner *gatedTranslator
}

func (s gatedSession) Ready(ctx context.Context) error {
	s.owner.once.Do(func() { close(s.owner.entered) })
	select {
	case <-s.owner.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (gatedSession) Translate(_ context.Context, text string) (string, error) {
	return strings.ToUpper(text), nil
}

func waitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

type stubDetector struct{}

func (stubDetector) Availability(context.Context) (capability.Availability, error) {
	return capability.Available, nil
}

func (stubDetector) Create(context.Context) (capability.DetectorSession, error) {
	return stubDetectorSession{}, nil
}

type stubDetectorSession struct{}

func (stubDetectorSession) Ready(context.Context) error { return nil }

func (stubDetectorSession) Detect(context.Context, string) ([]capability.Detection, error) {
	return []capability.Detection{{Language: "fr", Confidence: 0.97}}, nil
}

func newTestServer(t *testing.T, surface capability.Surface, mutate func(*Deps)) *echo.Echo {
	t.Helper()
	e, _ := newTestServerWithRunner(t, surface, mutate)
	return e
}

func newTestServerWithRunner(t *testing.T, surface capability.Surface, mutate func(*Deps)) (*echo.Echo, *workflow.Runner) {
	t.Helper()

	runner := workflow.NewRunner(surface, zerolog.Nop(), workflow.Options{
		AfterFunc: func(time.Duration, func()) {},
	})
	deps := Deps{Runner: runner}
	if mutate != nil {
		mutate(&deps)
	}
	server := NewServer(deps, zerolog.Nop(), Options{})
	server.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return server.Handler(), runner
}

func doJSON(t *testing.T, e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, jsendResponse) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var resp jsendResponse
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, resp
}

func TestHealthIsPublic(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	creds, err := auth.NewCredentials("admin", string(hash))
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	e := newTestServer(t, capability.Surface{}, func(d *Deps) { d.Credentials = creds })

	rec, resp := doJSON(t, e, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK || resp.Status != "success" {
		t.Fatalf("health = %d %q", rec.Code, resp.Status)
	}

	rec, resp = doJSON(t, e, http.MethodGet, "/api/v1/state", "")
	if rec.Code != http.StatusUnauthorized || resp.Status != "fail" {
		t.Fatalf("unauthenticated state = %d %q", rec.Code, resp.Status)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	req.SetBasicAuth("admin", "secret")
	authed := httptest.NewRecorder()
	e.ServeHTTP(authed, req)
	if authed.Code != http.StatusOK {
		t.Fatalf("authenticated state = %d: %s", authed.Code, authed.Body.String())
	}
}

func TestTranslateReturnsResultAndNotice(t *testing.T) {
	t.Parallel()

	e := newTestServer(t, capability.Surface{Translator: stubTranslator{availability: capability.Available}}, nil)

	rec, resp := doJSON(t, e, http.MethodPost, "/api/v1/translate", `{"text":"Hello","source_lang":"en","target_lang":"es"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	data, _ := resp.Data.(map[string]any)
	result, _ := data["result"].(map[string]any)
	if result["output"] != "Hola" {
		t.Fatalf("output = %v", result["output"])
	}
	notice, _ := data["notice"].(map[string]any)
	if notice["message"] != "Translation completed successfully!" {
		t.Fatalf("notice = %v", notice)
	}
}

func TestTranslateErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		surface capability.Surface
		body    string
		status  int
		kind    string
		message string
	}{
		{
			name:    "empty text",
			surface: capability.Surface{Translator: stubTranslator{availability: capability.Available}},
			body:    `{"text":"   ","source_lang":"en","target_lang":"es"}`,
			status:  http.StatusBadRequest,
			kind:    string(capability.ErrorValidationEmpty),
		},
		{
			name:    "absent",
			surface: capability.Surface{},
			body:    `{"text":"Hello","source_lang":"en","target_lang":"es"}`,
			status:  http.StatusServiceUnavailable,
			kind:    string(capability.ErrorAbsent),
		},
		{
			name:    "unavailable",
			surface: capability.Surface{Translator: stubTranslator{availability: capability.Unavailable}},
			body:    `{"text":"Hello","source_lang":"en","target_lang":"es"}`,
			status:  http.StatusServiceUnavailable,
			kind:    string(capability.ErrorUnavailable),
		},
		{
			name:    "invocation failure hides cause",
			surface: capability.Surface{Translator: stubTranslator{availability: capability.Available, err: errors.New("socket closed")}},
			body:    `{"text":"Hello","source_lang":"en","target_lang":"es"}`,
			status:  http.StatusInternalServerError,
			message: "Translation failed. Please try again.",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			e := newTestServer(t, tc.surface, nil)
			rec, resp := doJSON(t, e, http.MethodPost, "/api/v1/translate", tc.body)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tc.status, rec.Body.String())
			}
			if strings.Contains(rec.Body.String(), "socket closed") {
				t.Fatalf("response leaks cause: %s", rec.Body.String())
			}
			if tc.kind != "" {
				data, _ := resp.Data.(map[string]any)
				if data["error_kind"] != tc.kind {
					t.Fatalf("error_kind = %v, want %s", data["error_kind"], tc.kind)
				}
			}
			if tc.message != "" && resp.Message != tc.message {
				t.Fatalf("message = %q, want %q", resp.Message, tc.message)
			}
		})
	}
}

func TestTranslateRejectsInvalidPair(t *testing.T) {
	t.Parallel()

	e := newTestServer(t, capability.Surface{Translator: stubTranslator{availability: capability.Available}}, nil)
	rec, resp := doJSON(t, e, http.MethodPost, "/api/v1/translate", `{"text":"Hello","source_lang":"en","target_lang":""}`)
	if rec.Code != http.StatusBadRequest || resp.Message != "Validation failed" {
		t.Fatalf("status = %d message = %q", rec.Code, resp.Message)
	}
}

func TestBatchTranslate(t *testing.T) {
	t.Parallel()

	e := newTestServer(t, capability.Surface{Translator: stubTranslator{availability: capability.Available}}, nil)
	rec, resp := doJSON(t, e, http.MethodPost, "/api/v1/batch/translate", `{"texts":["a","","b"],"source_lang":"en","target_lang":"de"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	data, _ := resp.Data.(map[string]any)
	result, _ := data["result"].(map[string]any)
	if result["total"] != float64(2) || result["skipped"] != float64(1) || result["complete"] != true {
		t.Fatalf("result = %v", result)
	}
}

func TestDetectThenExportCSV(t *testing.T) {
	t.Parallel()

	e := newTestServer(t, capability.Surface{Detector: stubDetector{}}, nil)
	rec, resp := doJSON(t, e, http.MethodPost, "/api/v1/detect", `{"text":"Bonjour le monde"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("detect status = %d: %s", rec.Code, rec.Body.String())
	}
	data, _ := resp.Data.(map[string]any)
	notice, _ := data["notice"].(map[string]any)
	if notice["message"] != "Language detected successfully!" {
		t.Fatalf("notice = %v", notice)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/export?format=csv", nil)
	out := httptest.NewRecorder()
	e.ServeHTTP(out, req)
	if out.Code != http.StatusOK {
		t.Fatalf("export status = %d", out.Code)
	}
	if got := out.Header().Get(echo.HeaderContentDisposition); got != `attachment; filename="ai-results-1700000000000.csv"` {
		t.Fatalf("content disposition = %q", got)
	}
	if !strings.Contains(out.Body.String(), "fr (97.0%)") {
		t.Fatalf("csv body = %s", out.Body.String())
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	e := newTestServer(t, capability.Surface{}, nil)
	rec, _ := doJSON(t, e, http.MethodGet, "/api/v1/export?format=xml", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestVoiceRoutesWithoutBridge(t *testing.T) {
	t.Parallel()

	e := newTestServer(t, capability.Surface{}, nil)
	rec, _ := doJSON(t, e, http.MethodPost, "/api/v1/voice/listen", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestTrainingConflict(t *testing.T) {
	t.Parallel()

	trainer := training.NewTrainer(time.Hour, zerolog.Nop())
	e := newTestServer(t, capability.Surface{}, func(d *Deps) { d.Trainer = trainer })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	started := make(chan struct{})
	go func() {
		close(started)
		_, _ = trainer.Train(ctx, training.Request{Name: "first", BaseKind: capability.KindTranslation})
	}()
	<-started
	deadline := time.Now().Add(2 * time.Second)
	for !trainer.Running() {
		if time.Now().After(deadline) {
			t.Fatal("first training never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec, _ := doJSON(t, e, http.MethodPost, "/api/v1/training", `{"name":"second","base_capability":"detection","examples":["x"]}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	rec, _ = doJSON(t, e, http.MethodPost, "/api/v1/training", `{"name":"","base_capability":"poetry"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("validation status = %d", rec.Code)
	}
}

func TestLanguagesListsCatalog(t *testing.T) {
	t.Parallel()

	e := newTestServer(t, capability.Surface{}, nil)
	rec, resp := doJSON(t, e, http.MethodGet, "/api/v1/languages", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data, _ := resp.Data.(map[string]any)
	items, _ := data["items"].([]any)
	found := false
	for _, item := range items {
		option, _ := item.(map[string]any)
		if option["code"] == "es" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected es in %v", items)
	}
}

func TestDraftSurvivesRejectedRun(t *testing.T) {
	t.Parallel()

	translator := newGatedTranslator()
	e, runner := newTestServerWithRunner(t, capability.Surface{Translator: translator}, nil)

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, _ = runner.Translate(context.Background(), capability.TranslateRequest{
			Text: "first",
			Pair: capability.NewLanguagePair("en", "es"),
		})
	}()
	waitClosed(t, translator.entered, "first execution to await readiness")

	runner.Workspace().AppendDraft(capability.KindTranslation, "dictated words")
	body := `{"use_draft":true,"source_lang":"en","target_lang":"es"}`

	rec, resp := doJSON(t, e, http.MethodPost, "/api/v1/translate", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
	if data, _ := resp.Data.(map[string]any); data["error_kind"] != string(capability.ErrorBusy) {
		t.Fatalf("error_kind = %v", data["error_kind"])
	}
	if got := runner.Workspace().Draft(capability.KindTranslation); got != "dictated words" {
		t.Fatalf("draft after rejected run = %q", got)
	}

	close(translator.release)
	waitClosed(t, firstDone, "first execution to finish")

	rec, resp = doJSON(t, e, http.MethodPost, "/api/v1/translate", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("retry status = %d: %s", rec.Code, rec.Body.String())
	}
	data, _ := resp.Data.(map[string]any)
	result, _ := data["result"].(map[string]any)
	if result["output"] != "DICTATED WORDS" {
		t.Fatalf("output = %v", result["output"])
	}
	if got := runner.Workspace().Draft(capability.KindTranslation); got != "" {
		t.Fatalf("draft after successful run = %q", got)
	}
}

func TestClientDisconnectDoesNotAbortInvocation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		body string
	}{
		{name: "translate", path: "/api/v1/translate", body: `{"text":"hello","source_lang":"en","target_lang":"es"}`},
		{name: "batch", path: "/api/v1/batch/translate", body: `{"texts":["a","b"],"source_lang":"en","target_lang":"es"}`},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			translator := newGatedTranslator()
			e, runner := newTestServerWithRunner(t, capability.Surface{Translator: translator}, nil)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			req := httptest.NewRequest(http.MethodPost, tc.path, strings.NewReader(tc.body)).WithContext(ctx)
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()

			served := make(chan struct{})
			go func() {
				defer close(served)
				e.ServeHTTP(rec, req)
			}()

			waitClosed(t, translator.entered, "session readiness wait")
			cancel()
			close(translator.release)
			waitClosed(t, served, "request to finish")

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
			status := runner.Status(capability.KindTranslation)
			if status.State != workflow.StateSucceeded || status.Progress != 100 {
				t.Fatalf("status = %+v, want succeeded at 100", status)
			}
		})
	}
}
