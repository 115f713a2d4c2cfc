package chain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/domain/transcript"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/infra/llm/llamacpp"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/infra/llm/ollama"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/internal/infra/prompts"
	apperrors "github.com/LeonelIntegrationXpert/mt-chain-proxy/pkg/errors"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/pkg/metrics"
	"github.com/LeonelIntegrationXpert/mt-chain-proxy/pkg/timectx"
)

// Service orchestrates the two-stage answer pipeline.
type Service interface {
	// Stage1 streams only the fast draft backend.
	Stage1(ctx context.Context, req AskRequest) (<-chan []byte, error)
	// Correct streams the stage-2 corrector over a raw prompt.
	Correct(ctx context.Context, prompt string) (<-chan []byte, error)
	// Chain runs stage 1, then feeds its cleaned draft and the conversation
	// summary into stage 2, streaming both according to req.StreamStage1.
	Chain(ctx context.Context, req AskRequest, mood Mood) (<-chan []byte, error)
}

// CompletionClient is the stage-1 backend surface used by the service.
type CompletionClient interface {
	CreateCompletionStream(ctx context.Context, req llamacpp.CompletionRequest, overrideURL string) (llamacpp.Stream, error)
}

// ChatClient is the stage-2 backend surface used by the service.
type ChatClient interface {
	ChatStream(ctx context.Context, system, user string, opts ollama.Options) (ollama.Stream, error)
}

// Memory is the conversation context surface used by the service.
type Memory interface {
	Push(author, text string)
	Context() string
	RefreshAsync(ctx context.Context)
}

// PromptSource resolves prompt texts by key.
type PromptSource interface {
	Get(key prompts.Key) string
}

type service struct {
	cfg     Config
	llama   CompletionClient
	chat    ChatClient
	memory  Memory
	prompts PromptSource
	logger  *slog.Logger
	now     timectx.Clock
}

// NewService is a wire provider for the chain domain.
func NewService(cfg Config, llama CompletionClient, chat ChatClient, memory Memory, source PromptSource, logger *slog.Logger) Service {
	return &service{
		cfg:     cfg,
		llama:   llama,
		chat:    chat,
		memory:  memory,
		prompts: source,
		logger:  logger.With("component", "chain.service"),
		now:     time.Now,
	}
}

func (s *service) timeLine() string {
	return timectx.Line(s.cfg.TimeCtx, s.now)
}

// withProfileAndTime appends the candidate profile block and the spoken time
// context to a system prompt.
func (s *service) withProfileAndTime(prompt string) string {
	p := strings.TrimSpace(prompt)
	if s.cfg.Profile.Enabled && s.cfg.Profile.Text != "" {
		if p == "" {
			p = s.cfg.Profile.Text
		} else {
			p = p + "\n\n" + s.cfg.Profile.Text
		}
	}
	return timectx.Append(p, s.cfg.TimeCtx, s.now)
}

func (s *service) Stage1(ctx context.Context, req AskRequest) (<-chan []byte, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, apperrors.Wrap("invalid_input", "prompt cannot be empty", nil)
	}
	mood := ResolveMood(req.Route, MoodPositive)

	out := make(chan []byte)
	go func() {
		defer close(out)
		if _, err := s.streamStage1(ctx, req, mood, func(b []byte) { send(ctx, out, b) }); err != nil {
			send(ctx, out, []byte(MarkerStage1HTTP+err.Error()+"\n"))
		}
	}()
	return out, nil
}

func (s *service) Correct(ctx context.Context, prompt string) (<-chan []byte, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, apperrors.Wrap("invalid_input", "prompt cannot be empty", nil)
	}
	system := timectx.Append(s.prompts.Get(prompts.Stage2Corrector), s.cfg.TimeCtx, s.now)

	out := make(chan []byte)
	go func() {
		defer close(out)
		s.streamStage2(ctx, system, prompt, optionsCorrector, true, func(b []byte) { send(ctx, out, b) })
	}()
	return out, nil
}

func (s *service) Chain(ctx context.Context, req AskRequest, mood Mood) (<-chan []byte, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, apperrors.Wrap("invalid_input", "prompt cannot be empty", nil)
	}

	if last, ok := transcript.ExtractLastValid(req.Prompt); ok {
		s.memory.Push(last.Author, last.Text)
	}
	s.memory.RefreshAsync(context.WithoutCancel(ctx))
	ctxNow := s.memory.Context()

	out := make(chan []byte)
	go func() {
		defer close(out)
		emit := func(b []byte) { send(ctx, out, b) }

		var draft string
		if req.StreamStage1 {
			emit([]byte(MarkerStage1))
		}
		raw, err := s.streamStage1(ctx, req, mood, func(b []byte) {
			if req.StreamStage1 {
				emit(b)
			}
		})
		if err != nil {
			s.logger.Info("stage1 failed, continuing with empty draft", "error", err)
			if req.StreamStage1 {
				emit([]byte(MarkerStage1Error + err.Error() + "\n"))
			}
		} else {
			if req.StreamStage1 {
				emit([]byte(MarkerStage1Done))
			}
			draft = CleanDraft(raw, s.cfg.Stage1.DraftMaxChars, s.cfg.Stage2.MaxDraftChars)
		}

		system := s.stage2ProfilePrompt(mood)
		options := optionsProfilePositive
		if mood == MoodNegative {
			options = optionsProfileNegative
		}
		userText := s.buildProfileUserText(req.Prompt, draft, ctxNow, mood)

		s.logger.Info("chain handoff",
			"mood", string(mood),
			"prompt_len", len(req.Prompt),
			"draft_len", len(draft),
			"draft_tokens", metrics.EstimateTokens(draft),
			"ctx_len", len(ctxNow),
			"stream_stage1", req.StreamStage1,
		)

		if req.StreamStage1 {
			emit([]byte(MarkerStage2))
		}
		s.streamStage2(ctx, system, userText, options, false, emit)
	}()
	return out, nil
}

// streamStage1 drives the draft backend, reconciling snapshot and delta
// fragments, and returns the raw accumulated draft. emit receives each newly
// visible chunk. Canned social utterances bypass the backend entirely.
func (s *service) streamStage1(ctx context.Context, req AskRequest, mood Mood, emit func([]byte)) (string, error) {
	author, speech, userText := s.buildStage1UserText(req.Prompt, mood)

	if canned := transcript.CannedReply(author, speech, mood != MoodNegative); canned != "" {
		emit([]byte(canned))
		return canned, nil
	}

	cfg := s.cfg.Stage1
	temperature := cfg.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	topP := cfg.TopP
	if req.TopP != nil {
		topP = *req.TopP
	}

	completion := llamacpp.CompletionRequest{
		Prompt:           BuildLlama3ChatPrompt(s.withProfileAndTime(s.prompts.Get(prompts.Stage1System)), userText),
		Stream:           true,
		Echo:             false,
		NPredict:         s.effectiveNPredict(req),
		Temperature:      temperature,
		TopK:             cfg.TopK,
		TopP:             topP,
		TypicalP:         cfg.TypicalP,
		MinP:             cfg.MinP,
		RepeatLastN:      cfg.RepeatLastN,
		RepeatPenalty:    cfg.RepeatPenalty,
		PresencePenalty:  cfg.PresencePenalty,
		FrequencyPenalty: cfg.FrequencyPenalty,
		Stop:             cfg.Stop,
	}

	s.logger.Info("stage1 request",
		"mood", string(mood),
		"n_predict", completion.NPredict,
		"temperature", temperature,
		"top_p", topP,
	)

	stream, err := s.llama.CreateCompletionStream(ctx, completion, req.BackendURL)
	if err != nil {
		return "", apperrors.Wrap("stage1_unreachable", "stage1 backend request failed", err)
	}
	defer stream.Close()

	acc := newDraftAccumulator(cfg.Stop)
	var collected strings.Builder
	for {
		event, recvErr := stream.Recv()
		if recvErr != nil {
			if errors.Is(recvErr, io.EOF) {
				break
			}
			return "", apperrors.Wrap("stage1_stream", "stage1 stream read failed", recvErr)
		}

		visible, stopped := acc.ingest(event.Fragment)
		if visible != "" {
			collected.WriteString(visible)
			emit([]byte(visible))
		}
		if cfg.StreamMaxBytes > 0 && collected.Len() >= cfg.StreamMaxBytes {
			break
		}
		if stopped || event.Done {
			break
		}
	}
	return collected.String(), nil
}

// streamStage2 forwards corrector/responder chunks. Backend-reported errors
// terminate the stream with an inline marker rather than an HTTP failure,
// since headers are long gone by the time they can occur.
func (s *service) streamStage2(ctx context.Context, system, user string, opts ollama.Options, sanitizeNewlines bool, emit func([]byte)) {
	stream, err := s.chat.ChatStream(ctx, system, user, opts)
	if err != nil {
		emit([]byte(MarkerOllamaError + err.Error() + "\n"))
		return
	}
	defer stream.Close()

	for {
		chunk, recvErr := stream.Recv()
		if recvErr != nil {
			if errors.Is(recvErr, io.EOF) {
				return
			}
			var backendErr *ollama.BackendError
			if errors.As(recvErr, &backendErr) {
				emit([]byte(MarkerOllamaError + backendErr.Detail + "\n"))
				return
			}
			s.logger.Error("stage2 stream read failed", "error", recvErr)
			return
		}

		if content := chunk.Message.Content; content != "" {
			if sanitizeNewlines {
				content = strings.ReplaceAll(content, "\r", " ")
				content = strings.ReplaceAll(content, "\n", " ")
			}
			emit([]byte(content))
		}
		if chunk.Done {
			return
		}
	}
}

// buildProfileUserText renders the structured stage-2 user block.
func (s *service) buildProfileUserText(rawPrompt, draft, conversationCtx string, mood Mood) string {
	author, speech := s.lastUtterance(rawPrompt)
	if transcript.IsCodeLike(speech) {
		speech = "No clear spoken interview question found in the input."
	}
	if len(speech) > 900 {
		speech = strings.TrimRight(speech[:900], " \t\n") + "…"
	}

	moodTag := "POSITIVE"
	if mood == MoodNegative {
		moodTag = "NEGATIVE"
	}

	var b strings.Builder
	b.WriteString("MOOD=" + moodTag + "; ")
	b.WriteString("TIME=" + s.timeLine() + "; ")
	b.WriteString("AUTHOR=" + author + "; ")
	b.WriteString("SPEECH=" + speech + "; ")
	b.WriteString("INSTRUCTION=Answer the AUTHOR. Line one starts with '" + author + ", ' only once; " +
		"lines two and onward must not repeat the author name. " +
		"Never ask questions and never use '?'. Do not add sign-offs or signatures. ")
	if d := strings.TrimSpace(strings.ReplaceAll(draft, "\r", " ")); d != "" {
		b.WriteString("DRAFT=" + d + "; ")
	}
	if c := strings.TrimSpace(strings.ReplaceAll(conversationCtx, "\r", " ")); c != "" {
		b.WriteString("CONTEXT=" + c + "; ")
	}
	return strings.TrimSpace(b.String())
}

func (s *service) stage2ProfilePrompt(mood Mood) string {
	key := prompts.Stage2ProfilePos
	if mood == MoodNegative {
		key = prompts.Stage2ProfileNeg
	}
	return s.withProfileAndTime(s.prompts.Get(key))
}

// send delivers b unless the consumer is gone.
func send(ctx context.Context, out chan<- []byte, b []byte) {
	select {
	case out <- b:
	case <-ctx.Done():
	}
}
