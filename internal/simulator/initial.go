package simulator

import (
	"time"

	"github.com/dairyforecast/herdsim/internal/herd"
)

// gestationDays and dryOffDays are the fixed offsets the initial-state
// derivation uses (§4.3); the simulator's own samplers take over once a
// tick transitions an animal, but bootstrapping from a snapshot CSV needs
// a fixed value to reconstruct an already-in-flight pregnancy.
const (
	gestationDays = 280
	dryOffDays    = 220
)

// SourceRow is one parsed dataset record, already column-mapped by the
// (out-of-core) CSV loader. All date fields are optional; Has flags
// indicate which were present.
type SourceRow struct {
	ID        int
	BirthDate time.Time

	Lactation int

	HasLastCalving bool
	LastCalving    time.Time

	HasSuccessInsem bool
	SuccessInsem    time.Time

	HasDryOff bool
	DryOff    time.Time

	HasArchive bool
	Archive    time.Time

	DimAnchor *herd.DimAnchor
}

// BuildInitialPopulation derives each animal's starting Status and
// scheduling fields from its dataset row and the scenario's report date,
// following the rules of SPEC_FULL.md §4.3 "Initial state construction".
func BuildInitialPopulation(rows []SourceRow, reportDate time.Time) []*herd.Animal {
	out := make([]*herd.Animal, 0, len(rows))
	for _, row := range rows {
		a := &herd.Animal{
			ID:               row.ID,
			BirthDate:        row.BirthDate,
			Lactation:        row.Lactation,
			HasLastCalving:   row.HasLastCalving,
			LastCalving:      row.LastCalving,
			HasSuccessInsem:  row.HasSuccessInsem,
			SuccessInsem:     row.SuccessInsem,
			HasDryOff:        row.HasDryOff,
			DryOff:           row.DryOff,
			HasArchiveDate:   row.HasArchive,
			ArchiveDate:      row.Archive,
			DimAnchor:        row.DimAnchor,
		}

		switch {
		case row.HasArchive && !row.Archive.After(reportDate):
			a.Status = herd.StatusArchived

		case row.Lactation == 0:
			if row.HasSuccessInsem {
				calving := row.SuccessInsem.AddDate(0, 0, gestationDays)
				if calving.After(reportDate) {
					a.Status = herd.StatusPregnantHeifer
					a.PlannedCalving, a.HasPlannedCalving = calving, true
					break
				}
			}
			a.Status = herd.StatusHeifer

		default:
			if row.HasDryOff && !row.DryOff.After(reportDate) {
				a.Status = herd.StatusDry
				if !a.HasSuccessInsem {
					a.SuccessInsem = row.DryOff.AddDate(0, 0, -dryOffDays)
					a.HasSuccessInsem = true
				}
			} else if row.HasSuccessInsem {
				// Already confirmed pregnant while still milking: the
				// dataset gives no VWP/service-period history to
				// replay, so the animal is bootstrapped straight into
				// PREGNANT rather than re-deriving it through
				// READY_FOR_BREEDING.
				a.Status = herd.StatusPregnant
			} else {
				a.Status = herd.StatusFresh
			}
			if a.HasSuccessInsem {
				a.PlannedCalving, a.HasPlannedCalving = a.SuccessInsem.AddDate(0, 0, gestationDays), true
			}
		}

		out = append(out, a)
	}
	return out
}
