package reconcile

import (
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/matthewwiese/jupyter-kernel-executor/internal/protocol"
)

// Outcome tells the transport client what to do after a record has been
// considered.
type Outcome int

const (
	// OutcomeSkip: the record belongs to some other cell. Nothing was
	// mutated; keep waiting. Not an error.
	OutcomeSkip Outcome = iota

	// OutcomeContinue: the record matched but execution is still in
	// flight. The caller must re-poll or keep listening.
	OutcomeContinue

	// OutcomeTerminal: the record carried a terminal execution count for
	// the tracked cell. Tracking stops.
	OutcomeTerminal
)

// String returns the outcome name for logs and traces.
func (o Outcome) String() string {
	switch o {
	case OutcomeSkip:
		return "skip"
	case OutcomeContinue:
		return "continue"
	case OutcomeTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Reconciler converts execution records into DisplayTarget mutations.
//
// Identity matching uses two independent fields, preserving the backend
// contract as observed: execution-count updates match on the record's
// cell_id, output-replacement updates match on its separate id. A record
// matching only one of the two is applied as a valid partial update.
// Polling records carry no id, so their single cell_id drives both.
//
// A Reconciler tracks one execution: it remembers which output entry is
// its live entry, so partial updates never overwrite entries left over
// from a previous run. Create a fresh Reconciler per tracked request.
type Reconciler struct {
	// liveIdx is the index of the live output entry this reconciler
	// appended, or -1 while no partial output has been written.
	liveIdx int
}

// New creates a Reconciler.
func New() *Reconciler {
	return &Reconciler{liveIdx: -1}
}

// Apply considers one record for the cell identified by trackedCellID and
// mutates target accordingly.
//
// Rules, in order:
//   - Neither identity field matches: OutcomeSkip, target untouched.
//     This guards against cross-talk when backend responses are batched
//     across all cells of a kernel.
//   - Matched and still running (nil execution count): the prompt shows
//     the running marker, and any partial output becomes the single live
//     output entry, appended after whatever the target already holds. A
//     later partial update replaces that live entry rather than
//     accumulating, and entries from a previous run are never touched.
//     OutcomeContinue.
//   - Matched and terminal (non-nil execution count): the output
//     sequence is cleared and rebuilt from the record's entries in
//     order, and the execution count is set. Clear-then-append makes a
//     repeated terminal record a no-op. OutcomeTerminal.
//
// Output text is NFC-normalized before display so combining sequences
// from the kernel render consistently.
func (r *Reconciler) Apply(rec protocol.ExecutionRecord, target DisplayTarget, trackedCellID string) Outcome {
	matchCount := rec.CellID == trackedCellID
	matchOutput := rec.RecordID == trackedCellID || (rec.RecordID == "" && matchCount)

	if !matchCount && !matchOutput {
		slog.Debug("record skipped: identity miss",
			"tracked_cell", trackedCellID,
			"record_cell", rec.CellID,
			"record_id", rec.RecordID)
		return OutcomeSkip
	}

	if !rec.Terminal() {
		if matchCount {
			target.SetPrompt(RunningPrompt)
		}
		if outs := rec.DisplayOutputs(); len(outs) > 0 && matchOutput {
			live := norm.NFC.String(strings.Join(outs, ""))
			if r.liveIdx < 0 {
				r.liveIdx = target.OutputLen()
				target.AppendOutput(live)
			} else {
				target.ReplaceOutput(r.liveIdx, live)
			}
		}
		return OutcomeContinue
	}

	if matchOutput {
		target.ClearOutputs()
		r.liveIdx = -1
		for _, text := range rec.DisplayOutputs() {
			target.AppendOutput(norm.NFC.String(text))
		}
	}
	if matchCount {
		target.SetExecutionCount(*rec.ExecutionCount)
	}

	slog.Debug("terminal record applied",
		"tracked_cell", trackedCellID,
		"execution_count", *rec.ExecutionCount)
	return OutcomeTerminal
}

// ApplyAll feeds every record of a batch through Apply and returns the
// strongest outcome observed for the tracked cell. Records for other
// cells yield OutcomeSkip and are inert; a terminal outcome wins over a
// continue, which wins over skips.
func (r *Reconciler) ApplyAll(records []protocol.ExecutionRecord, target DisplayTarget, trackedCellID string) Outcome {
	outcome := OutcomeSkip
	for _, rec := range records {
		if got := r.Apply(rec, target, trackedCellID); got > outcome {
			outcome = got
		}
	}
	return outcome
}
