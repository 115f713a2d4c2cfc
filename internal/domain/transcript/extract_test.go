package transcript

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTeamsInline(t *testing.T) {
	u, ok := ParseTeamsInline("noise Teams • Alice: first question Teams • Bob: second question")
	require.True(t, ok)
	require.Equal(t, "Bob", u.Author)
	require.Equal(t, "second question", u.Text)

	u, ok = ParseTeamsInline("Teams • unknown: who said this")
	require.True(t, ok)
	require.Equal(t, DefaultAuthor, u.Author)

	_, ok = ParseTeamsInline("no marker here: just a line")
	require.False(t, ok)

	_, ok = ParseTeamsInline("Teams • malformed segment without colon")
	require.False(t, ok)
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		author string
		text   string
		ok     bool
	}{
		{"simple", "Alice: tell me about yourself", "Alice", "tell me about yourself", true},
		{"interviewer prefix", "Interviewer: walk me through your resume", DefaultAuthor, "walk me through your resume", true},
		{"localized interviewer", "Entrevistador: fale sobre você", DefaultAuthor, "fale sobre você", true},
		{"prefixed log line", "meeting: Bob: what about error handling", "Bob", "what about error handling", true},
		{"unknown author", "unknown: anyone there", DefaultAuthor, "anyone there", true},
		{"no colon", "just some text", "", "", false},
		{"empty text", "Alice:   ", "", "", false},
		{"empty author", ": hanging message", "", "", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			u, ok := ParseLine(tt.line)
			require.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			require.Equal(t, tt.author, u.Author)
			require.Equal(t, tt.text, u.Text)
		})
	}
}

func TestIsIgnoredLine(t *testing.T) {
	ignored := []string{
		"",
		"[stage1]",
		"[stage2] partial",
		"[stage1_error] connect refused",
		"[ollama_error]",
		"Traceback (most recent call last):",
		`File "server.py", line 12`,
		"During handling of the above exception",
		`PS C:\Users\dev> python server.py`,
	}
	for _, ln := range ignored {
		require.True(t, IsIgnoredLine(ln), "line %q", ln)
	}
	require.False(t, IsIgnoredLine("Alice: a real question"))
}

func TestExtractLastValid(t *testing.T) {
	t.Run("latest well-formed line wins", func(t *testing.T) {
		raw := "Alice: first question\nBob: second question"
		u, ok := ExtractLastValid(raw)
		require.True(t, ok)
		require.Equal(t, "Bob", u.Author)
		require.Equal(t, "second question", u.Text)
	})

	t.Run("interviewer prefix outranks later generic lines", func(t *testing.T) {
		raw := "Interviewer: the real question\nsomelog: SSH OK"
		u, ok := ExtractLastValid(raw)
		require.True(t, ok)
		require.Equal(t, DefaultAuthor, u.Author)
		require.Equal(t, "the real question", u.Text)
	})

	t.Run("noise and code lines are skipped", func(t *testing.T) {
		raw := "Alice: tell me about DataWeave\nBob: OK\nCarol: import os"
		u, ok := ExtractLastValid(raw)
		require.True(t, ok)
		require.Equal(t, "Alice", u.Author)
	})

	t.Run("ignored marker lines are dropped before parsing", func(t *testing.T) {
		raw := "Alice: the question\n[stage1] partial draft: text\n[stage1_done]"
		u, ok := ExtractLastValid(raw)
		require.True(t, ok)
		require.Equal(t, "Alice", u.Author)
		require.Equal(t, "the question", u.Text)
	})

	t.Run("inline teams marker takes priority", func(t *testing.T) {
		raw := "garbage Teams • Dana: inline question\nAlice: older line"
		u, ok := ExtractLastValid(raw)
		require.True(t, ok)
		require.Equal(t, "Dana", u.Author)
		require.Equal(t, "inline question", u.Text)
	})

	t.Run("nothing usable", func(t *testing.T) {
		_, ok := ExtractLastValid("plain text without any colon")
		require.False(t, ok)
	})

	t.Run("idempotent on normalized output", func(t *testing.T) {
		raw := "08:15 Alice: how do you test integrations"
		first, ok := ExtractLastValid(raw)
		require.True(t, ok)

		second, ok := ExtractLastValid(fmt.Sprintf("%s: %s", first.Author, first.Text))
		require.True(t, ok)
		require.Equal(t, first.Author, second.Author)
		require.Equal(t, first.Text, second.Text)
	})
}
