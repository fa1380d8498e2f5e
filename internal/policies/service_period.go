// Package policies implements the pluggable decision rules the simulator
// consults each tick: when a cow is next inseminated, whether it is
// culled, whether replacements are introduced, and how purchases are
// timed and sized.
package policies

import (
	"math/rand"
	"time"

	"github.com/dairyforecast/herdsim/internal/sampling"
)

// ServicePeriodPolicy samples the days from calving to the next successful
// insemination for a lactating cow, clamping the result to a minimum
// number of days after calving and, if the sampled target already lies in
// the past relative to the report date, pushing it 0..30 days ahead so the
// simulation never schedules an insemination before "today".
type ServicePeriodPolicy struct {
	Sampler          sampling.Sampler
	MinDaysAfterCalving int
}

// SampleSuccessInsemDate draws a service-period length and returns the
// resulting insemination date.
func (p ServicePeriodPolicy) SampleSuccessInsemDate(rng *rand.Rand, lastCalving, reportDate time.Time) time.Time {
	sp := p.Sampler.Sample(rng)
	if sp < p.MinDaysAfterCalving {
		sp = p.MinDaysAfterCalving
	}
	target := lastCalving.AddDate(0, 0, sp)
	if !target.After(reportDate) {
		push := rng.Intn(31)
		target = reportDate.AddDate(0, 0, push)
	}
	return target
}

// HeiferInsemPolicy samples the age at first successful insemination for a
// heifer that has never calved, with the same "push into the future if
// already overdue" behavior as ServicePeriodPolicy.
type HeiferInsemPolicy struct {
	MinAgeDays, MaxAgeDays int
}

// SampleFirstSuccessInsem returns the date of first successful
// insemination for a heifer born on birthDate.
func (p HeiferInsemPolicy) SampleFirstSuccessInsem(rng *rand.Rand, birthDate, reportDate time.Time) time.Time {
	span := p.MaxAgeDays - p.MinAgeDays
	age := p.MinAgeDays
	if span > 0 {
		age += rng.Intn(span + 1)
	}
	target := birthDate.AddDate(0, 0, age)
	if !target.After(reportDate) {
		push := rng.Intn(31)
		target = reportDate.AddDate(0, 0, push)
	}
	return target
}
