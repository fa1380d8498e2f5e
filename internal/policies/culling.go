package policies

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/dairyforecast/herdsim/internal/herd"
)

// Grouping selects which stratum dimension the culling hazard is estimated
// per. Wider groupings (status, age-band) trade sample size for more
// homogeneous strata.
type Grouping string

const (
	GroupByLactation       Grouping = "lactation"
	GroupByLactationStatus Grouping = "lactation_status"
	GroupByAgeBand         Grouping = "age_band"
)

// minGroupSize is the (alive+culled) floor below which a stratum's own
// estimate is considered too noisy to use; the fallback hazard applies
// instead.
const minGroupSize = 30

// lookbackDays is the historical window the hazard estimate is computed
// over: animals archived within this many days of the report date.
const lookbackDays = 730

// maxMonthlyHazard caps the estimated hazard so a small, unlucky stratum
// cannot imply near-certain culling.
const maxMonthlyHazard = 0.2

// CullingPolicy estimates and samples cull dates from a monthly hazard per
// stratum, with a configured fallback for strata with too little history.
type CullingPolicy struct {
	Grouping             Grouping
	AgeBandYears         int
	MonthlyHazardByGroup map[string]float64
	FallbackMonthlyHazard float64
	PopulationRegulation float64
}

// LactGroup buckets a lactation number into the coarse strata the source
// dataset has enough history for: L0 (heifers), L1, L2, L3, L4+.
func LactGroup(lactation int) string {
	switch {
	case lactation <= 0:
		return "L0"
	case lactation == 1:
		return "L1"
	case lactation == 2:
		return "L2"
	case lactation == 3:
		return "L3"
	default:
		return "L4+"
	}
}

// StatusGroup buckets an animal's status into a coarse stratum label.
func StatusGroup(s herd.Status) string {
	switch s {
	case herd.StatusHeifer, herd.StatusPregnantHeifer:
		return "heifer"
	case herd.StatusDry:
		return "dry"
	case herd.StatusPregnant:
		return "pregnant"
	case herd.StatusFresh, herd.StatusReadyForBreeding:
		return "milking"
	default:
		return "other"
	}
}

// ageBand buckets age in whole years into bandYears-wide groups, e.g.
// "0-2", "2-4" for bandYears=2.
func ageBand(ageYears, bandYears int) string {
	if bandYears <= 0 {
		bandYears = 2
	}
	lo := (ageYears / bandYears) * bandYears
	return fmt.Sprintf("%d-%d", lo, lo+bandYears)
}

// stratumKey computes the group key for one animal under the configured
// Grouping.
func (c CullingPolicy) stratumKey(a *herd.Animal, reportDate time.Time) string {
	switch c.Grouping {
	case GroupByLactationStatus:
		return LactGroup(a.Lactation) + "|" + StatusGroup(a.Status)
	case GroupByAgeBand:
		ageYears := a.AgeInDays(reportDate) / 365
		return ageBand(ageYears, c.AgeBandYears)
	default:
		return LactGroup(a.Lactation)
	}
}

// EstimateFromDataset computes a monthly hazard per stratum from a
// 730-day archive look-back: for each stratum, culled counts animals
// archived within the window, alive counts animals with no archive date
// (or one after the report date); exposure approximates
// (alive + 0.5*culled) * 24 months (the 0.5 factor credits culled animals
// half their exposure, since on average they were culled mid-window).
// Strata with fewer than 30 (alive+culled) animals receive the fallback
// hazard rather than a noisy estimate.
func (c *CullingPolicy) EstimateFromDataset(animals []*herd.Animal, reportDate time.Time) {
	windowStart := reportDate.AddDate(0, 0, -lookbackDays)

	type counts struct{ alive, culled int }
	groups := map[string]*counts{}

	for _, a := range animals {
		key := c.stratumKey(a, reportDate)
		g, ok := groups[key]
		if !ok {
			g = &counts{}
			groups[key] = g
		}
		if a.HasArchiveDate && !a.ArchiveDate.Before(windowStart) && !a.ArchiveDate.After(reportDate) {
			g.culled++
		} else if !a.HasArchiveDate || a.ArchiveDate.After(reportDate) {
			g.alive++
		}
	}

	hazards := make(map[string]float64, len(groups))
	for key, g := range groups {
		total := g.alive + g.culled
		if total < minGroupSize {
			hazards[key] = c.FallbackMonthlyHazard
			continue
		}
		exposureMonths := math.Max(1, (float64(g.alive)+0.5*float64(g.culled))*24)
		hazard := float64(g.culled) / exposureMonths
		hazards[key] = math.Min(maxMonthlyHazard, math.Max(0, hazard))
	}
	c.MonthlyHazardByGroup = hazards
}

// monthlyHazardFor returns the stratum hazard for an animal, or the
// fallback if the stratum was never observed.
func (c CullingPolicy) monthlyHazardFor(a *herd.Animal, reportDate time.Time) float64 {
	key := c.stratumKey(a, reportDate)
	if h, ok := c.MonthlyHazardByGroup[key]; ok {
		return h
	}
	return c.FallbackMonthlyHazard
}

// SampleCullDate draws a cull date for an animal by iterating month by
// month from start: each month runs one Bernoulli(hazard) trial; on
// success, a uniform day in 1..28 of that month is chosen, snapped to be
// no earlier than start. Returns (time.Time{}, false) if no month
// succeeds before end.
func (c CullingPolicy) SampleCullDate(rng *rand.Rand, a *herd.Animal, start, end time.Time) (time.Time, bool) {
	hazard := c.monthlyHazardFor(a, start)
	monthStart := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, start.Location())
	for monthStart.Before(end) {
		if rng.Float64() < hazard {
			day := 1 + rng.Intn(28)
			candidate := time.Date(monthStart.Year(), monthStart.Month(), day, 0, 0, 0, 0, monthStart.Location())
			if candidate.Before(start) {
				candidate = start
			}
			if candidate.Before(end) {
				return candidate, true
			}
			return time.Time{}, false
		}
		monthStart = monthStart.AddDate(0, 1, 0)
	}
	return time.Time{}, false
}

// dailyHazardFromMonthly converts a monthly hazard to a daily-equivalent
// probability assuming a constant hazard rate across a 30-day month.
func dailyHazardFromMonthly(monthly float64) float64 {
	if monthly <= 0 {
		return 0
	}
	if monthly >= 1 {
		return 1
	}
	return 1 - math.Pow(1-monthly, 1.0/30.0)
}

// CombinedDailyHazard computes the per-animal, per-day cull probability
// the daily tick uses directly, as 1 - (1-p_lact)(1-p_month), scaled by
// the population-regulation factor:
//
//   - p_lact is the stratum's monthly hazard converted to a daily rate,
//     scaled by PopulationRegulation (>1 raises cull pressure when the
//     herd is over target size, <1 lowers it).
//   - p_month is 1.0 exactly on an animal's previously-sampled scheduled
//     cull date (forcing the cull that day) and 0.0 otherwise, so a
//     schedule produced by SampleCullDate and the ongoing daily hazard
//     compose into one Bernoulli trial instead of two independent checks.
func (c CullingPolicy) CombinedDailyHazard(a *herd.Animal, today time.Time, isScheduledCullDay bool) float64 {
	regulation := c.PopulationRegulation
	if regulation <= 0 {
		regulation = 1.0
	}
	pLact := dailyHazardFromMonthly(c.monthlyHazardFor(a, today)) * regulation
	if pLact > 1 {
		pLact = 1
	}
	pMonth := 0.0
	if isScheduledCullDay {
		pMonth = 1.0
	}
	return 1 - (1-pLact)*(1-pMonth)
}
