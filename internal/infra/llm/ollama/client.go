package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const defaultURL = "http://localhost:11434/api/chat"

// Message mirrors the Ollama chat message structure.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options carries sampling parameters for one chat call.
type Options struct {
	Temperature   float64 `json:"temperature,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
}

// ChatRequest is the payload sent to the Ollama chat API.
type ChatRequest struct {
	Model    string    `json:"model"`
	Stream   bool      `json:"stream"`
	Messages []Message `json:"messages"`
	Options  Options   `json:"options"`
}

// ChatChunk is one frame of a streaming chat response.
type ChatChunk struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error"`
}

// BackendError is an error reported by the backend inside the stream, after
// headers were already committed.
type BackendError struct {
	Detail string
}

func (e *BackendError) Error() string {
	return e.Detail
}

// Client performs requests against an Ollama-compatible chat endpoint.
type Client struct {
	url        string
	model      string
	httpClient *http.Client
}

// NewClient constructs a responder client. Timeout budgets are wider than
// stage 1 since final answers are open-ended.
func NewClient(url, model string, connectTimeout, readTimeout time.Duration) *Client {
	url = strings.TrimSpace(url)
	if url == "" {
		url = defaultURL
	}
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}
	return &Client{
		url:   url,
		model: model,
		httpClient: &http.Client{
			Timeout: readTimeout,
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
				ResponseHeaderTimeout: connectTimeout,
			},
		},
	}
}

// URL reports the configured endpoint.
func (c *Client) URL() string { return c.url }

// Model reports the configured model name.
func (c *Client) Model() string { return c.model }

// Chat performs a non-streaming chat call and returns the message content
// with line breaks flattened to spaces.
func (c *Client) Chat(ctx context.Context, system, user string, opts Options) (string, error) {
	body, err := c.do(ctx, ChatRequest{
		Model:  c.model,
		Stream: false,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Options: opts,
	})
	if err != nil {
		return "", err
	}

	var chunk ChatChunk
	if err := json.Unmarshal(body, &chunk); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if chunk.Error != "" {
		return "", &BackendError{Detail: chunk.Error}
	}

	out := chunk.Message.Content
	out = strings.ReplaceAll(out, "\r", " ")
	out = strings.ReplaceAll(out, "\n", " ")
	return strings.TrimSpace(out), nil
}

// ChatStream starts a streaming chat call. The caller owns the stream and
// must close it; closing releases the upstream socket.
func (c *Client) ChatStream(ctx context.Context, system, user string, opts Options) (Stream, error) {
	payload, err := json.Marshal(ChatRequest{
		Model:  c.model,
		Stream: true,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Options: opts,
	})
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request chat stream: %w", err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("chat stream failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 1024), 1<<20)

	return &chatStream{scanner: scanner, closer: resp.Body}, nil
}

func (c *Client) do(ctx context.Context, req ChatRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode chat request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("chat request failed: status=%d body=%s", resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}

// Stream yields chat chunks until io.EOF. A backend-reported error surfaces
// as *BackendError and terminates the stream.
type Stream interface {
	Recv() (ChatChunk, error)
	Close() error
}

type chatStream struct {
	scanner *bufio.Scanner
	closer  io.Closer
}

func (s *chatStream) Recv() (ChatChunk, error) {
	for {
		if !s.scanner.Scan() {
			err := s.scanner.Err()
			s.Close()
			if err != nil {
				return ChatChunk{}, err
			}
			return ChatChunk{}, io.EOF
		}
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if line == "" {
			continue
		}

		var chunk ChatChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			// tolerate interleaved non-JSON noise
			continue
		}
		if chunk.Error != "" {
			s.Close()
			return ChatChunk{}, &BackendError{Detail: chunk.Error}
		}
		return chunk, nil
	}
}

func (s *chatStream) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
