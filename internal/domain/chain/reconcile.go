package chain

import "strings"

// draftAccumulator reconciles stage-1 fragments that may arrive either as
// cumulative snapshots or as incremental deltas, and tracks how much of the
// cleaned text has already been emitted so nothing is sent twice.
type draftAccumulator struct {
	stops   []string
	acc     string
	emitted int
}

func newDraftAccumulator(stops []string) *draftAccumulator {
	return &draftAccumulator{stops: stops}
}

// ingest merges one fragment and returns the newly printable suffix. stopped
// reports that a stop marker was found in the visible text, which ends the
// stream. A marker split across fragment boundaries is not detected until a
// later fragment completes it.
func (a *draftAccumulator) ingest(fragment string) (out string, stopped bool) {
	if fragment != "" {
		if len(fragment) >= len(a.acc) && strings.HasPrefix(fragment, a.acc) {
			a.acc = fragment
		} else {
			a.acc += fragment
		}
	}

	one := strings.ReplaceAll(a.acc, "\r", "")
	one = strings.TrimSpace(strings.ReplaceAll(one, "\n", " "))
	one = StripPromptEcho(one)

	if cut := FindStopIndex(one, a.stops); cut >= 0 {
		one = strings.TrimSpace(one[:cut])
		stopped = true
	}

	if len(one) > a.emitted {
		out = one[a.emitted:]
		a.emitted = len(one)
	}
	return out, stopped
}
