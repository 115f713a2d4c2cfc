package chain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func collectVisible(t *testing.T, fragments []string, stops []string) string {
	t.Helper()
	acc := newDraftAccumulator(stops)
	var out strings.Builder
	for _, f := range fragments {
		visible, stopped := acc.ingest(f)
		out.WriteString(visible)
		if stopped {
			break
		}
	}
	return out.String()
}

func TestDraftAccumulatorSnapshotAndDeltaAgree(t *testing.T) {
	t.Parallel()

	snapshots := []string{"Hi", "Hi there", "Hi there!"}
	deltas := []string{"Hi", " there", "!"}

	got1 := collectVisible(t, snapshots, nil)
	got2 := collectVisible(t, deltas, nil)
	require.Equal(t, "Hi there!", got1)
	require.Equal(t, got1, got2)
}

func TestDraftAccumulatorNeverReemits(t *testing.T) {
	t.Parallel()

	acc := newDraftAccumulator(nil)
	var total strings.Builder
	for _, f := range []string{"abc", "abcdef", "abcdef", "ghi"} {
		visible, _ := acc.ingest(f)
		total.WriteString(visible)
	}
	require.Equal(t, "abcdefghi", total.String())
}

func TestDraftAccumulatorStopMarkerCut(t *testing.T) {
	t.Parallel()

	got := collectVisible(t, []string{"answer<|eot_id|>more text"}, []string{"<|eot_id|>"})
	require.Equal(t, "answer", got)
}

func TestDraftAccumulatorStopMarkerAcrossFragments(t *testing.T) {
	t.Parallel()

	// A marker split across fragments is only seen once the second fragment
	// lands, so the first half of the marker leaks into the visible text.
	acc := newDraftAccumulator([]string{"<|eot_id|>"})

	visible, stopped := acc.ingest("answer<|eot")
	require.False(t, stopped)
	require.Equal(t, "answer<|eot", visible)

	visible, stopped = acc.ingest("_id|>tail")
	require.True(t, stopped)
	require.Empty(t, visible)
}

func TestDraftAccumulatorStripsEchoAndNewlines(t *testing.T) {
	t.Parallel()

	got := collectVisible(t, []string{
		"prompt text<|start_header_id|>assistant<|end_header_id|>\nline one\nline two",
	}, nil)
	require.Equal(t, "line one line two", got)
}

func TestDraftAccumulatorShrinkingFragmentTreatedAsDelta(t *testing.T) {
	t.Parallel()

	// A fragment shorter than the accumulator cannot be a snapshot, even if
	// it is a prefix of what came before.
	got := collectVisible(t, []string{"hello world", "hello"}, nil)
	require.Equal(t, "hello worldhello", got)
}
