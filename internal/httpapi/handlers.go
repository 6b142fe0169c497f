package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"horse.fit/aidesk/internal/capability"
	"horse.fit/aidesk/internal/export"
	"horse.fit/aidesk/internal/translation"
	"horse.fit/aidesk/internal/workflow"
)

const (
	defaultSourceLang = "en"
	defaultTargetLang = "es"
)

type translateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	// UseDraft fills an empty text from the dictated draft.
	UseDraft bool `json:"use_draft"`
}

type detectRequest struct {
	Text     string `json:"text"`
	UseDraft bool   `json:"use_draft"`
}

type summarizeRequest struct {
	Text          string `json:"text"`
	URL           string `json:"url"`
	Type          string `json:"type"`
	Format        string `json:"format"`
	Length        string `json:"length"`
	SharedContext string `json:"shared_context"`
	UseDraft      bool   `json:"use_draft"`
}

type batchTranslateRequest struct {
	Texts      []string `json:"texts"`
	SourceLang string   `json:"source_lang"`
	TargetLang string   `json:"target_lang"`
}

type operationResponse struct {
	Result capability.OperationResult `json:"result"`
	Notice workflow.Notice            `json:"notice"`
	Source *sourceDocument            `json:"source,omitempty"`
}

type sourceDocument struct {
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Truncated bool   `json:"truncated"`
}

func (s *Server) handleCapabilities(c echo.Context) error {
	pair := capability.NewLanguagePair(
		firstNonEmpty(c.QueryParam("source_lang"), defaultSourceLang),
		firstNonEmpty(c.QueryParam("target_lang"), defaultTargetLang),
	)
	if errs := pair.Validate(); errs != nil {
		return failValidation(c, errs)
	}

	return success(c, map[string]any{
		"pair":  pair,
		"items": s.deps.Runner.Surface().Check(c.Request().Context(), pair),
	})
}

func (s *Server) handleLanguages(c echo.Context) error {
	items := translation.LanguageOptions(s.deps.Translations)
	return success(c, map[string]any{
		"items":            items,
		"default_provider": s.deps.Translations.DefaultProvider(),
		"providers":        s.deps.Translations.ProviderNames(),
	})
}

func (s *Server) handleState(c echo.Context) error {
	runner := s.deps.Runner
	state := map[string]any{
		"workflows":  runner.Statuses(),
		"results":    runner.Workspace().Snapshot(),
		"drafts":     runner.Workspace().Drafts(),
		"updated_at": runner.Workspace().UpdatedAt(),
	}
	if s.deps.Voice != nil {
		state["voice"] = s.deps.Voice.Status()
	}
	return success(c, state)
}

func (s *Server) handleTranslate(c echo.Context) error {
	var req translateRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	pair := capability.NewLanguagePair(req.SourceLang, req.TargetLang)
	if errs := pair.Validate(); errs != nil {
		return failValidation(c, errs)
	}

	kind := capability.KindTranslation
	text, draft := s.draftInput(kind, req.Text, req.UseDraft)
	result, err := s.deps.Runner.Translate(invocationContext(c), capability.TranslateRequest{Text: text, Pair: pair})
	s.consumeDraft(kind, draft, err)
	return s.operationResponse(c, result, err, nil)
}

func (s *Server) handleDetect(c echo.Context) error {
	var req detectRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	kind := capability.KindDetection
	text, draft := s.draftInput(kind, req.Text, req.UseDraft)
	result, err := s.deps.Runner.Detect(invocationContext(c), capability.DetectRequest{Text: text})
	s.consumeDraft(kind, draft, err)
	return s.operationResponse(c, result, err, nil)
}

func (s *Server) handleSummarize(c echo.Context) error {
	var req summarizeRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	summaryType, err := capability.ParseSummaryType(req.Type)
	if err != nil {
		return failValidation(c, map[string]string{"type": err.Error()})
	}
	opts := capability.SummaryOptions{
		Type:          summaryType,
		Format:        capability.SummaryFormat(strings.TrimSpace(req.Format)),
		Length:        capability.SummaryLength(strings.TrimSpace(req.Length)),
		SharedContext: strings.TrimSpace(req.SharedContext),
	}
	defaults := capability.DefaultSummaryOptions(summaryType)
	if opts.Format == "" {
		opts.Format = defaults.Format
	}
	if opts.Length == "" {
		opts.Length = defaults.Length
	}
	if err := opts.Validate(); err != nil {
		return failValidation(c, map[string]string{"options": err.Error()})
	}

	kind := capability.KindSummarization
	text, draft := s.draftInput(kind, req.Text, req.UseDraft)
	var source *sourceDocument
	if strings.TrimSpace(text) == "" && strings.TrimSpace(req.URL) != "" {
		if s.deps.Reader == nil {
			return fail(c, http.StatusServiceUnavailable, "Reading web pages is not enabled", nil)
		}
		doc, err := s.deps.Reader.Fetch(c.Request().Context(), req.URL)
		if err != nil {
			s.logger.Warn().Err(err).Str("url", req.URL).Msg("fetch page for summary failed")
			return fail(c, http.StatusUnprocessableEntity, "Could not read text from the page", map[string]any{"url": req.URL})
		}
		text = doc.Text
		source = &sourceDocument{URL: doc.URL, Title: doc.Title, Truncated: doc.Truncated}
	}

	result, err := s.deps.Runner.Summarize(invocationContext(c), capability.SummarizeRequest{Text: text, Options: opts})
	s.consumeDraft(kind, draft, err)
	return s.operationResponse(c, result, err, source)
}

func (s *Server) handleBatchTranslate(c echo.Context) error {
	var req batchTranslateRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}

	pair := capability.NewLanguagePair(req.SourceLang, req.TargetLang)
	if errs := pair.Validate(); errs != nil {
		return failValidation(c, errs)
	}

	result, err := s.deps.Runner.TranslateBatch(invocationContext(c), workflow.BatchRequest{Texts: req.Texts, Pair: pair})
	if err != nil {
		if capability.KindOf(err) == capability.ErrorInvocationFailure && len(result.Items) > 0 {
			return c.JSON(http.StatusInternalServerError, jsendResponse{
				Status:  "error",
				Message: capability.UserMessage(err),
				Code:    http.StatusInternalServerError,
				Data:    result,
			})
		}
		return capabilityFailure(c, err)
	}

	return success(c, map[string]any{
		"result": result,
		"notice": workflow.Notice{
			Level:   workflow.NoticeSuccess,
			Message: fmt.Sprintf("Batch translation completed: %d items", result.Total),
		},
	})
}

func (s *Server) handleExport(c echo.Context) error {
	format, err := export.ParseFormat(firstNonEmpty(c.QueryParam("format"), string(export.FormatJSON)))
	if err != nil {
		return failValidation(c, map[string]string{"format": err.Error()})
	}

	artifact := s.deps.Exporter.Export(format, s.deps.Runner.Workspace().Snapshot(), s.now())
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	return c.Blob(http.StatusOK, artifact.MIMEType, artifact.Content)
}

func (s *Server) operationResponse(c echo.Context, result capability.OperationResult, err error, source *sourceDocument) error {
	if err != nil {
		return capabilityFailure(c, err)
	}
	return success(c, operationResponse{
		Result: result,
		Notice: workflow.ResultNotice(result),
		Source: source,
	})
}

// draftInput replaces a blank text with the dictated draft when asked. The
// returned draft is non-empty only when it supplied the text.
func (s *Server) draftInput(kind capability.Kind, text string, useDraft bool) (string, string) {
	if !useDraft || strings.TrimSpace(text) != "" {
		return text, ""
	}
	draft := s.deps.Runner.Workspace().Draft(kind)
	return draft, draft
}

// consumeDraft clears a used draft once the workflow succeeded. A failed or
// rejected run leaves it in place for a retry.
func (s *Server) consumeDraft(kind capability.Kind, draft string, err error) {
	if err != nil || draft == "" {
		return
	}
	s.deps.Runner.Workspace().ConsumeDraft(kind, draft)
}

// invocationContext keeps request values but not cancellation: a started
// invocation runs to completion even if the client goes away.
func invocationContext(c echo.Context) context.Context {
	return context.WithoutCancel(c.Request().Context())
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
