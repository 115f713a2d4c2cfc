package llamacpp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const defaultURL = "http://localhost:8080/completion"

// CompletionRequest is the payload sent to the llama.cpp /completion API.
type CompletionRequest struct {
	Prompt           string   `json:"prompt"`
	Stream           bool     `json:"stream"`
	Echo             bool     `json:"echo"`
	NPredict         int      `json:"n_predict"`
	Temperature      float64  `json:"temperature"`
	TopK             int      `json:"top_k"`
	TopP             float64  `json:"top_p"`
	TypicalP         float64  `json:"typical_p"`
	MinP             float64  `json:"min_p"`
	RepeatLastN      int      `json:"repeat_last_n"`
	RepeatPenalty    float64  `json:"repeat_penalty"`
	PresencePenalty  float64  `json:"presence_penalty"`
	FrequencyPenalty float64  `json:"frequency_penalty"`
	Stop             []string `json:"stop,omitempty"`
}

// Client performs streaming requests against a llama.cpp server.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient constructs a draft-generator client. The read timeout bounds the
// whole stream; the connect timeout only covers dialing and headers.
func NewClient(url string, connectTimeout, readTimeout time.Duration) *Client {
	url = strings.TrimSpace(url)
	if url == "" {
		url = defaultURL
	}
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	return &Client{
		url: url,
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

// CreateCompletionStream starts a streaming completion call. The returned
// stream must be closed by the caller; closing releases the upstream socket.
func (c *Client) CreateCompletionStream(ctx context.Context, req CompletionRequest, overrideURL string) (Stream, error) {
	req.Stream = true

	endpoint := strings.TrimSpace(overrideURL)
	if endpoint == "" {
		endpoint = c.url
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode completion request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream,application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request completion stream: %w", err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("completion stream failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 1024), 1<<20)

	return &completionStream{
		scanner: scanner,
		closer:  resp.Body,
	}, nil
}

// Event is one reconciled-ready upstream fragment. Fragment may be a true
// delta or a cumulative snapshot; the caller must not assume either.
type Event struct {
	Fragment string
	Done     bool
}

// Stream yields decoded completion events until io.EOF.
type Stream interface {
	Recv() (Event, error)
	Close() error
}

type completionStream struct {
	scanner *bufio.Scanner
	closer  io.Closer
}

var errSkip = errors.New("skip event")

// Recv reads the next event. Blank lines are skipped, a [DONE] sentinel ends
// the stream, and lines that are not JSON are surfaced as raw fragments.
func (s *completionStream) Recv() (Event, error) {
	for {
		if !s.scanner.Scan() {
			err := s.scanner.Err()
			s.Close()
			if err != nil {
				return Event{}, err
			}
			return Event{}, io.EOF
		}
		ev, err := decodeLine(s.scanner.Text())
		if errors.Is(err, errSkip) {
			continue
		}
		if err != nil {
			s.Close()
			return Event{}, err
		}
		return ev, nil
	}
}

func (s *completionStream) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

func decodeLine(raw string) (Event, error) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return Event{}, errSkip
	}
	if strings.HasPrefix(line, "data:") {
		line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if line == "" {
			return Event{}, errSkip
		}
	}
	if line == "[DONE]" {
		return Event{}, io.EOF
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(line), &obj); err != nil {
		// not JSON: the backend streamed plain text
		return Event{Fragment: line}, nil
	}

	ev := Event{
		Fragment: extractFragment(obj),
		Done:     extractDone(obj),
	}
	if ev.Fragment == "" && !ev.Done {
		return Event{}, errSkip
	}
	return ev, nil
}

// extractFragment probes the field names used across llama.cpp revisions and
// OpenAI-compatible shims, in priority order.
func extractFragment(obj map[string]any) string {
	for _, key := range []string{"content", "response", "completion", "text"} {
		if v, ok := obj[key].(string); ok && v != "" {
			return v
		}
	}
	choices, ok := obj["choices"].([]any)
	if !ok || len(choices) == 0 {
		return ""
	}
	c0, ok := choices[0].(map[string]any)
	if !ok {
		return ""
	}
	if delta, ok := c0["delta"].(map[string]any); ok {
		if v, ok := delta["content"].(string); ok && v != "" {
			return v
		}
	}
	if v, ok := c0["text"].(string); ok && v != "" {
		return v
	}
	if msg, ok := c0["message"].(map[string]any); ok {
		if v, ok := msg["content"].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func extractDone(obj map[string]any) bool {
	for _, key := range []string{"done", "stop", "stopped", "isFinal", "final"} {
		switch v := obj[key].(type) {
		case bool:
			if v {
				return true
			}
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "1", "done", "stop":
				return true
			}
		}
	}
	return false
}
