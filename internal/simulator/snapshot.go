package simulator

import (
	"time"

	"github.com/dairyforecast/herdsim/internal/herd"
)

// Snapshot is one reported point in a simulation run's output: a
// headcount-per-status reading plus the event counters accumulated since
// the previous snapshot.
type Snapshot struct {
	Date             time.Time
	Milking          int
	Dry              int
	Heifer           int
	PregnantHeifer   int
	AvgDaysInMilk    float64 // 0.0 when Milking == 0

	Calvings     int
	Dryoffs      int
	Culls        int
	PurchasesIn  int
	HeiferIntros int

	// RawEvents is every scheduled-event record drained since the
	// previous snapshot, in (date, sequence) order. It is a finer-grained
	// trail than the counters above, useful for explaining a single run
	// rather than aggregating across many.
	RawEvents []herd.Event
}
