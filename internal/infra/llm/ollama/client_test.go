package ollama

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

func TestChatSync(t *testing.T) {
	var gotBody ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		io.WriteString(w, `{"message":{"role":"assistant","content":"line one\nline two"},"done":true}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-model", time.Second, 5*time.Second)
	out, err := client.Chat(context.Background(), "sys", "usr", Options{Temperature: 0.2, NumCtx: 4096})
	require.NoError(t, err)
	require.Equal(t, "line one line two", out)

	require.False(t, gotBody.Stream)
	require.Equal(t, "test-model", gotBody.Model)
	require.Len(t, gotBody.Messages, 2)
	require.Equal(t, "system", gotBody.Messages[0].Role)
	require.Equal(t, "sys", gotBody.Messages[0].Content)
	require.Equal(t, "user", gotBody.Messages[1].Role)
	require.Equal(t, 4096, gotBody.Options.NumCtx)
}

func TestChatSyncBackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"error":"model blew up"}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-model", time.Second, 5*time.Second)
	_, err := client.Chat(context.Background(), "sys", "usr", Options{})
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	require.Equal(t, "model blew up", backendErr.Detail)
}

func TestChatStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.True(t, req.Stream)
		io.WriteString(w, `{"message":{"content":"Hel"}}`+"\n")
		io.WriteString(w, "\n")
		io.WriteString(w, "garbage line\n")
		io.WriteString(w, `{"message":{"content":"lo"}}`+"\n")
		io.WriteString(w, `{"message":{"content":""},"done":true}`+"\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-model", time.Second, 5*time.Second)
	stream, err := client.ChatStream(context.Background(), "sys", "usr", Options{})
	require.NoError(t, err)
	defer stream.Close()

	chunk, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, "Hel", chunk.Message.Content)

	chunk, err = stream.Recv()
	require.NoError(t, err)
	require.Equal(t, "lo", chunk.Message.Content)

	chunk, err = stream.Recv()
	require.NoError(t, err)
	require.True(t, chunk.Done)

	_, err = stream.Recv()
	require.ErrorIs(t, err, io.EOF)
}

func TestChatStreamMidStreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"message":{"content":"partial"}}`+"\n")
		io.WriteString(w, `{"error":"out of memory"}`+"\n")
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-model", time.Second, 5*time.Second)
	stream, err := client.ChatStream(context.Background(), "sys", "usr", Options{})
	require.NoError(t, err)
	defer stream.Close()

	chunk, err := stream.Recv()
	require.NoError(t, err)
	require.Equal(t, "partial", chunk.Message.Content)

	_, err = stream.Recv()
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	require.Equal(t, "out of memory", backendErr.Detail)
}

func TestChatStreamHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-model", time.Second, 5*time.Second)
	_, err := client.ChatStream(context.Background(), "sys", "usr", Options{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=502")
}
