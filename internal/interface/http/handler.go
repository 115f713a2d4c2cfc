package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/domain/chain"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/infra/config"
	apperrors "github.com/LeonelIntegrationXpert/mt-chain-proxy/pkg/errors"
)

// Handler wires the HTTP transport to the chain service.
type Handler struct {
	chainSvc chain.Service
	cfg      *config.Config
	logger   *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(chainSvc chain.Service, cfg *config.Config, logger *slog.Logger) *Handler {
	return &Handler{
		chainSvc: chainSvc,
		cfg:      cfg,
		logger:   logger.With("component", "http.handler"),
	}
}

// AskLlama streams the stage-1 draft backend only.
func (h *Handler) AskLlama(c *gin.Context) {
	req, ok := h.readAskRequest(c)
	if !ok {
		return
	}

	stream, err := h.chainSvc.Stage1(c.Request.Context(), req)
	if err != nil {
		h.abortServiceError(c, err)
		return
	}
	h.streamPlainText(c, stream)
}

// Ask streams the stage-2 corrector over the raw prompt.
func (h *Handler) Ask(c *gin.Context) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "body is not valid JSON", err))
		return
	}
	prompt := strings.TrimSpace(body.Prompt)
	if prompt == "" {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "missing/empty 'prompt'", nil))
		return
	}
	prompt = clamp(prompt, h.cfg.HTTP.MaxPromptChars)

	h.logger.Info("correct request", "prompt_len", len(prompt))

	stream, err := h.chainSvc.Correct(c.Request.Context(), prompt)
	if err != nil {
		h.abortServiceError(c, err)
		return
	}
	h.streamPlainText(c, stream)
}

// AskMe runs the full chain with a positive default mood.
func (h *Handler) AskMe(c *gin.Context) {
	h.askMood(c, chain.MoodPositive)
}

// AskMeNeg runs the full chain with a negative default mood.
func (h *Handler) AskMeNeg(c *gin.Context) {
	h.askMood(c, chain.MoodNegative)
}

func (h *Handler) askMood(c *gin.Context, def chain.Mood) {
	req, ok := h.readAskRequest(c)
	if !ok {
		return
	}
	mood := chain.ResolveMood(req.Route, def)

	stream, err := h.chainSvc.Chain(c.Request.Context(), req, mood)
	if err != nil {
		h.abortServiceError(c, err)
		return
	}
	h.streamPlainText(c, stream)
}

// Health reports the effective runtime configuration.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok": true,
		"prompts": gin.H{
			"dir":         h.cfg.Prompts.Dir,
			"strict":      h.cfg.Prompts.Strict,
			"auto_reload": h.cfg.Prompts.AutoReload,
		},
		"time_context": gin.H{
			"enabled":     h.cfg.TimeCtx.Enabled,
			"tz":          h.cfg.TimeCtx.TimeZone,
			"location":    h.cfg.TimeCtx.Location,
			"include_iso": h.cfg.TimeCtx.IncludeISO,
		},
		"profile_context": gin.H{
			"enabled": h.cfg.Profile.Enabled,
		},
		"stage1": gin.H{
			"default_url":             h.cfg.Stage1.URL,
			"stream_stage1_default":   h.cfg.Stage1.StreamByDefault,
			"stage1_max_n_predict":    h.cfg.Stage1.MaxNPredict,
			"stage1_stream_max_bytes": h.cfg.Stage1.StreamMaxBytes,
			"stage1_draft_max_chars":  h.cfg.Stage1.DraftMaxChars,
		},
		"stage2": gin.H{
			"ollama_url": h.cfg.Stage2.URL,
			"model":      h.cfg.Stage2.Model,
		},
	})
}

// readAskRequest decodes and validates the chain payload. stream_stage1
// defaults to the configured value when the field is absent.
func (h *Handler) readAskRequest(c *gin.Context) (chain.AskRequest, bool) {
	var body struct {
		Prompt       string   `json:"prompt"`
		NPredict     *int     `json:"n_predict"`
		Temperature  *float64 `json:"temperature"`
		TopP         *float64 `json:"top_p"`
		URL          string   `json:"url"`
		StreamStage1 *bool    `json:"stream_stage1"`
		Route        string   `json:"route"`
	}

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "cannot read body", err))
		return chain.AskRequest{}, false
	}
	if len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, &body); err != nil {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "body is not valid JSON", err))
			return chain.AskRequest{}, false
		}
	}

	prompt := strings.TrimSpace(body.Prompt)
	if prompt == "" {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "missing/empty 'prompt'", nil))
		return chain.AskRequest{}, false
	}
	prompt = clamp(prompt, h.cfg.HTTP.MaxPromptChars)

	if body.NPredict != nil && (*body.NPredict < 1 || *body.NPredict > 32768) {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "n_predict out of range", nil))
		return chain.AskRequest{}, false
	}
	if body.Temperature != nil && (*body.Temperature < 0 || *body.Temperature > 2) {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "temperature out of range", nil))
		return chain.AskRequest{}, false
	}
	if body.TopP != nil && (*body.TopP < 0 || *body.TopP > 1) {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "top_p out of range", nil))
		return chain.AskRequest{}, false
	}

	streamStage1 := h.cfg.Stage1.StreamByDefault
	if body.StreamStage1 != nil {
		streamStage1 = *body.StreamStage1
	}

	return chain.AskRequest{
		Prompt:       prompt,
		NPredict:     body.NPredict,
		Temperature:  body.Temperature,
		TopP:         body.TopP,
		BackendURL:   strings.TrimSpace(body.URL),
		StreamStage1: streamStage1,
		Route:        body.Route,
	}, true
}

// streamPlainText forwards channel chunks as a chunked plain-text response.
// Headers disable proxy buffering so fragments reach the client as they are
// produced.
func (h *Handler) streamPlainText(c *gin.Context, stream <-chan []byte) {
	header := c.Writer.Header()
	header.Set("Content-Type", "text/plain; charset=utf-8")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "stream_unsupported", "streaming not supported", nil))
		return
	}

	for chunk := range stream {
		if _, err := c.Writer.Write(chunk); err != nil {
			h.logger.Info("client went away mid-stream", "error", err)
			return
		}
		flusher.Flush()
	}
}

func (h *Handler) abortServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "chain_failed"
	if apperrors.IsCode(err, "invalid_input") {
		status = http.StatusBadRequest
		code = "invalid_request"
	}
	abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
}

func clamp(s string, max int) string {
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
