package llamacpp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDecodeLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		fragment string
		done     bool
		skip     bool
		eof      bool
	}{
		{name: "blank", line: "   ", skip: true},
		{name: "sse prefix", line: `data: {"content":"hi"}`, fragment: "hi"},
		{name: "done sentinel", line: "data: [DONE]", eof: true},
		{name: "plain content", line: `{"content":"hello"}`, fragment: "hello"},
		{name: "ollama response field", line: `{"response":"frag"}`, fragment: "frag"},
		{name: "openai delta", line: `{"choices":[{"delta":{"content":"d"}}]}`, fragment: "d"},
		{name: "openai text", line: `{"choices":[{"text":"t"}]}`, fragment: "t"},
		{name: "openai message", line: `{"choices":[{"message":{"content":"m"}}]}`, fragment: "m"},
		{name: "done flag", line: `{"done":true}`, done: true},
		{name: "stringy stop flag", line: `{"stop":"true"}`, done: true},
		{name: "stringy final flag", line: `{"isFinal":"done"}`, done: true},
		{name: "empty object", line: `{"other":1}`, skip: true},
		{name: "raw text line", line: "not json at all", fragment: "not json at all"},
		{name: "content plus done", line: `{"content":"x","done":true}`, fragment: "x", done: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ev, err := decodeLine(tt.line)
			switch {
			case tt.skip:
				require.ErrorIs(t, err, errSkip)
			case tt.eof:
				require.ErrorIs(t, err, io.EOF)
			default:
				require.NoError(t, err)
				require.Equal(t, tt.fragment, ev.Fragment)
				require.Equal(t, tt.done, ev.Done)
			}
		})
	}
}

func TestCreateCompletionStream(t *testing.T) {
	var gotBody CompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"content":"Hello"}`+"\n")
		io.WriteString(w, "\n")
		io.WriteString(w, `{"content":" world","done":false}`+"\n")
		io.WriteString(w, `{"done":true}`+"\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, 5*time.Second)
	stream, err := client.CreateCompletionStream(context.Background(), CompletionRequest{
		Prompt:   "hi",
		NPredict: 32,
	}, "")
	require.NoError(t, err)
	defer stream.Close()

	require.True(t, gotBody.Stream)
	require.Equal(t, "hi", gotBody.Prompt)
	require.Equal(t, 32, gotBody.NPredict)

	ev, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, Event{Fragment: "Hello"}, ev)

	ev, err = stream.Recv()
	require.NoError(t, err)
	require.Equal(t, Event{Fragment: " world"}, ev)

	ev, err = stream.Recv()
	require.NoError(t, err)
	require.Equal(t, Event{Done: true}, ev)

	_, err = stream.Recv()
	require.ErrorIs(t, err, io.EOF)
}

func TestCreateCompletionStreamHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, 5*time.Second)
	_, err := client.CreateCompletionStream(context.Background(), CompletionRequest{Prompt: "hi"}, "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=503")
}

func TestCreateCompletionStreamOverrideURL(t *testing.T) {
	hit := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
		io.WriteString(w, `{"done":true}`+"\n")
	}))
	defer server.Close()

	client := NewClient("http://localhost:1/unreachable", time.Second, 5*time.Second)
	stream, err := client.CreateCompletionStream(context.Background(), CompletionRequest{Prompt: "hi"}, server.URL)
	require.NoError(t, err)
	defer stream.Close()
	require.True(t, hit)
}
