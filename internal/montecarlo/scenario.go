// Package montecarlo fans a scenario out into independent simulation runs
// and aggregates their snapshot sequences into a percentile-banded
// ForecastResult.
package montecarlo

import (
	"fmt"
	"time"

	"github.com/dairyforecast/herdsim/internal/forecasterr"
)

// PurchasePolicyKind discriminates which purchase policy variant a
// scenario selects.
type PurchasePolicyKind string

const (
	PurchaseManual       PurchasePolicyKind = "manual"
	PurchaseAutoCounter  PurchasePolicyKind = "auto_counter"
	PurchaseAutoForecast PurchasePolicyKind = "auto_forecast"
)

// SamplingMode selects whether the simulator draws from the dataset's raw
// empirical distribution or from distributions fitted to it.
type SamplingMode string

const (
	SamplingEmpirical   SamplingMode = "empirical"
	SamplingTheoretical SamplingMode = "theoretical"
)

// ModelParams carries the tunables a scenario exposes over the
// simulator's ModelConfig and the policies it wires in.
type ModelParams struct {
	GestationMeanDays float64
	GestationSDDays   float64
	GestationLoDays   int
	GestationHiDays   int

	ConceptionToDryMeanDays float64
	ConceptionToDrySDDays   float64
	ConceptionToDryLoDays   int
	ConceptionToDryHiDays   int

	ServicePeriodMeanDays   float64
	ServicePeriodSDDays     float64
	ServicePeriodLoDays     int
	ServicePeriodHiDays     int
	MinDaysAfterCalving     int

	HeiferInsemMinAgeDays int
	HeiferInsemMaxAgeDays int

	VoluntaryWaitingPeriod   int
	MaxServicePeriodAfterVWP int
	HeiferBirthProb          float64

	PurchasedDaysToCalvingLoDays int
	PurchasedDaysToCalvingHiDays int

	PopulationRegulation float64

	CullingGrouping       string // "lactation" | "lactation_status" | "age_band"
	CullingAgeBandYears   int
	FallbackMonthlyHazard float64

	ReplacementEnabled        bool
	ReplacementAnnualRatio    float64
	ReplacementLookaheadMonths int

	// AutoCounter purchase policy has no extra tunables beyond the
	// running in/out balance it tracks itself.

	AutoForecastTargetMilking int
	AutoForecastBuffer        int
	AutoForecastMaxBuy        int
}

// ManualPurchaseItem is one dated purchase entry. Exactly one of
// ExpectedCalvingDate or DaysPregnant must be set; NewManualPurchaseItem
// enforces this at construction since Go has no sum types.
type ManualPurchaseItem struct {
	DateIn              time.Time
	Count               int
	ExpectedCalvingDate *time.Time
	DaysPregnant        *int
}

// NewManualPurchaseItem validates the "exactly one of" constraint on
// expectedCalvingDate/daysPregnant, normalizing nil/zero inputs to absent.
func NewManualPurchaseItem(dateIn time.Time, count int, expectedCalvingDate *time.Time, daysPregnant *int) (ManualPurchaseItem, error) {
	hasCalving := expectedCalvingDate != nil && !expectedCalvingDate.IsZero()
	hasDays := daysPregnant != nil
	if hasCalving == hasDays {
		return ManualPurchaseItem{}, forecasterr.RequestValidation(
			"manual purchase item requires exactly one of expected_calving_date or days_pregnant")
	}
	if count < 1 {
		return ManualPurchaseItem{}, forecasterr.RequestValidation("manual purchase item count must be >= 1")
	}
	item := ManualPurchaseItem{DateIn: dateIn, Count: count}
	if hasCalving {
		item.ExpectedCalvingDate = expectedCalvingDate
	} else {
		item.DaysPregnant = daysPregnant
	}
	return item, nil
}

// ScenarioParams is the fully-resolved input to one forecast run. The
// core never reads or writes the scenario-preset table this may have
// been loaded from; it only ever consumes this value.
type ScenarioParams struct {
	DatasetID         string
	ReportDate        time.Time
	HorizonMonths     int
	FutureDate        *time.Time
	MasterSeed        int64
	RunCount          int
	CentralConfidence float64
	PurchasePolicy    PurchasePolicyKind
	LeadTimeDays      int
	Model             ModelParams
	SamplingMode      SamplingMode
	ManualPurchases   []ManualPurchaseItem
}

// Validate checks the scenario-level invariants the boundary must enforce
// before a job is ever allowed to reach `queued` (§7: validation errors
// never enter the queue).
func (s ScenarioParams) Validate() error {
	if s.HorizonMonths < 1 {
		return forecasterr.RequestValidation("horizon_months must be >= 1")
	}
	if s.RunCount < 1 {
		return forecasterr.RequestValidation("mc_runs must be >= 1")
	}
	if s.CentralConfidence <= 0 || s.CentralConfidence >= 1 {
		return forecasterr.RequestValidation("central_confidence must be in (0, 1)")
	}
	switch s.PurchasePolicy {
	case PurchaseManual, PurchaseAutoCounter, PurchaseAutoForecast:
	default:
		return forecasterr.RequestValidation(fmt.Sprintf("unknown purchase_policy %q", s.PurchasePolicy))
	}
	switch s.SamplingMode {
	case SamplingEmpirical, SamplingTheoretical:
	default:
		return forecasterr.RequestValidation(fmt.Sprintf("unknown sampling_mode %q", s.SamplingMode))
	}
	if s.FutureDate != nil {
		if s.FutureDate.Day() != 1 {
			return forecasterr.New(forecasterr.CodeFutureDateNotSupported, "future_date must be a month-start date")
		}
		end := s.ReportDate.AddDate(0, s.HorizonMonths, 0)
		if s.FutureDate.Before(s.ReportDate) || !s.FutureDate.Before(end) {
			return forecasterr.New(forecasterr.CodeFutureDateOutOfRange, "future_date must fall within the horizon")
		}
	}
	return nil
}
