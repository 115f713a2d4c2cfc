package transcript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHintLang(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want Lang
	}{
		{"explicit tag pt", "IDIOMA: pt tudo certo por aí", LangPortuguese},
		{"explicit tag en", "idioma: en hello there", LangEnglish},
		{"portuguese marker", "bom dia, tudo bem", LangPortuguese},
		{"portuguese diacritics", "até amanhã", LangPortuguese},
		{"plain english", "hello, can you hear me", LangEnglish},
		{"empty", "", LangEnglish},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, HintLang(tt.text))
		})
	}
}

func TestCategorize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want CannedCategory
	}{
		{"greeting bare", "hello", CannedGreeting},
		{"greeting punctuated", "hi!", CannedGreeting},
		{"greeting pt", "bom dia", CannedGreeting},
		{"thanks", "thanks!", CannedThanks},
		{"thanks pt", "obrigado", CannedThanks},
		{"farewell", "see you", CannedFarewell},
		{"farewell pt", "tchau", CannedFarewell},
		{"how are you", "how are you", CannedHowAreYou},
		{"how are you pt", "tudo bem", CannedHowAreYou},
		{"question mark defeats canned match", "how are you?", CannedNone},
		{"greeting plus question is not canned", "hello, how is the weather", CannedNone},
		{"real question", "how does garbage collection work", CannedNone},
		{"empty", "", CannedNone},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, Categorize(tt.text))
		})
	}
}

func TestCannedReply(t *testing.T) {
	t.Parallel()

	t.Run("greeting warm addresses the author without asking back", func(t *testing.T) {
		t.Parallel()
		got := CannedReply("Alice", "hello", true)
		require.NotEmpty(t, got)
		require.True(t, strings.HasPrefix(got, "Alice,"))
		require.NotContains(t, got, "?")
	})

	t.Run("greeting neutral", func(t *testing.T) {
		t.Parallel()
		got := CannedReply("Bob", "hi", false)
		require.Equal(t, "Bob, hi. I'm doing well.", got)
	})

	t.Run("thanks portuguese", func(t *testing.T) {
		t.Parallel()
		got := CannedReply("Maria", "obrigada!", true)
		require.Equal(t, "Maria, de nada. Estou à disposição.", got)
	})

	t.Run("farewell", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, "Alice, sounds good. Talk soon.", CannedReply("Alice", "see you", true))
		require.Equal(t, "Alice, okay. Take care.", CannedReply("Alice", "bye", false))
	})

	t.Run("unknown author falls back to default", func(t *testing.T) {
		t.Parallel()
		got := CannedReply("unknown", "hello", true)
		require.True(t, strings.HasPrefix(got, DefaultAuthor+","))
	})

	t.Run("non-canned text yields nothing", func(t *testing.T) {
		t.Parallel()
		require.Empty(t, CannedReply("Alice", "hello, how is the weather", true))
		require.Empty(t, CannedReply("Alice", "explain goroutine scheduling", true))
	})
}
