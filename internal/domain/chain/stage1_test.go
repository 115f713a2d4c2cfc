package chain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildLlama3ChatPrompt(t *testing.T) {
	t.Parallel()

	got := BuildLlama3ChatPrompt("be brief\r\n", "  answer this  ")
	require.True(t, strings.HasPrefix(got, "<|begin_of_text|><|start_header_id|>system<|end_header_id|>\nbe brief\n"))
	require.Contains(t, got, "<|eot_id|><|start_header_id|>user<|end_header_id|>\nanswer this\n")
	require.True(t, strings.HasSuffix(got, "<|start_header_id|>assistant<|end_header_id|>\n\n"))
}

func TestStripPromptEcho(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no echo", "  plain answer  ", "plain answer"},
		{"echoed prompt", "system stuff<|start_header_id|>assistant<|end_header_id|>  real answer", "real answer"},
		{"case insensitive header", "x<|START_HEADER_ID|>assistant<|END_HEADER_ID|>y", "y"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, StripPromptEcho(tt.in))
		})
	}
}

func TestFindStopIndex(t *testing.T) {
	t.Parallel()

	stops := []string{"<|eot_id|>", "<END>"}
	require.Equal(t, -1, FindStopIndex("no markers here", stops))
	require.Equal(t, 6, FindStopIndex("answer<END>more", stops))
	require.Equal(t, 3, FindStopIndex("abc<|EOT_ID|>tail<END>", stops))
	require.Equal(t, -1, FindStopIndex("", stops))
	require.Equal(t, -1, FindStopIndex("text", nil))
}

func TestCleanDraft(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       string
		draftMax int
		hardMax  int
		want     string
	}{
		{
			name:     "strips ansi and collapses spaces",
			in:       "\x1b[31mred\x1b[0m   text\twith\t\ttabs",
			draftMax: 480, hardMax: 6000,
			want: "red text with tabs",
		},
		{
			name:     "cuts at code fence",
			in:       "the answer is simple\n```go\nfunc main() {}\n```",
			draftMax: 480, hardMax: 6000,
			want: "the answer is simple",
		},
		{
			name:     "drops stage markers and traceback lines",
			in:       "[stage1] preview\ngood line\nTraceback (most recent call last):\nanother good line",
			draftMax: 480, hardMax: 6000,
			want: "good line\nanother good line",
		},
		{
			name:     "caps with ellipsis",
			in:       strings.Repeat("a", 50),
			draftMax: 10, hardMax: 6000,
			want: strings.Repeat("a", 10) + "…",
		},
		{
			name:     "empty input",
			in:       "",
			draftMax: 480, hardMax: 6000,
			want: "",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, CleanDraft(tt.in, tt.draftMax, tt.hardMax))
		})
	}
}

func TestResolveMood(t *testing.T) {
	t.Parallel()

	require.Equal(t, MoodNegative, ResolveMood("negative", MoodPositive))
	require.Equal(t, MoodNegative, ResolveMood(" TRISTE ", MoodPositive))
	require.Equal(t, MoodPositive, ResolveMood("yes", MoodNegative))
	require.Equal(t, MoodNegative, ResolveMood("", MoodNegative))
	require.Equal(t, MoodPositive, ResolveMood("whatever", MoodPositive))
}
