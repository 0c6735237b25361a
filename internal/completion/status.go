// ABOUTME: Engine status snapshot for the RPC get_status method and the CLI
// ABOUTME: Counters are cumulative since the engine was created

package completion

import (
	"time"

	"github.com/mauromedda/pi-complete-go/internal/checkpoint"
	"github.com/mauromedda/pi-complete-go/pkg/ai"
)

// Outcome describes the most recently finished request.
type Outcome struct {
	DocumentID string            `json:"documentId,omitempty"`
	Reason     ai.TerminalReason `json:"reason,omitempty"`
	FirstByte  time.Duration     `json:"firstByteNs,omitempty"`
	At         time.Time         `json:"at,omitzero"`
}

// Status is a point-in-time view of the engine.
type Status struct {
	InFlight      bool             `json:"inFlight"`
	Requests      int64            `json:"requests"`
	Overflows     int64            `json:"overflows"`
	Aborted       int64            `json:"aborted"`
	Failures      int64            `json:"failures"`
	WindowEntries int              `json:"windowEntries"`
	WindowHits    int64            `json:"windowHits"`
	WindowMisses  int64            `json:"windowMisses"`
	BudgetEntries int              `json:"budgetEntries"`
	Checkpoints   checkpoint.Stats `json:"checkpoints"`
	Last          Outcome          `json:"last"`
}

// Status reports counters and store sizes.
func (e *Engine) Status() Status {
	hits, misses := e.windows.Stats()
	e.mu.Lock()
	inFlight := e.cancel != nil
	last := e.lastDone
	e.mu.Unlock()

	return Status{
		InFlight:      inFlight,
		Requests:      e.requests.Load(),
		Overflows:     e.overflows.Load(),
		Aborted:       e.aborted.Load(),
		Failures:      e.failures.Load(),
		WindowEntries: e.windows.Len(),
		WindowHits:    hits,
		WindowMisses:  misses,
		BudgetEntries: e.budgets.Len(),
		Checkpoints:   e.builder.Stats(),
		Last:          last,
	}
}
