// Package simulator implements the discrete-event herd simulator: the
// per-animal state machine, event queue, and daily tick that the Monte
// Carlo orchestrator runs once per seed. It is synchronous and CPU-bound
// by design — no I/O, no context.Context, no logging.
package simulator

import (
	"github.com/dairyforecast/herdsim/internal/policies"
	"github.com/dairyforecast/herdsim/internal/sampling"
)

// ModelConfig carries every tunable the daily tick consults: the
// insemination/gestation/dry-period samplers, the VWP and max
// service-period thresholds, heifer birth probability, purchased-heifer
// back-dating bounds, and the population-regulation scale applied to the
// culling hazard.
type ModelConfig struct {
	GestationSampler         sampling.Sampler
	PurchasedDaysToCalvingLo int
	PurchasedDaysToCalvingHi int

	VoluntaryWaitingPeriod   int
	MaxServicePeriodAfterVWP int
	HeiferBirthProb          float64
	PopulationRegulation     float64

	// ConceptionToDrySampler draws days from conception to the planned
	// dry-off date, clamped below the planned calving date.
	ConceptionToDrySampler sampling.Sampler
}

// Policies bundles every pluggable decision rule one simulation run
// consults: ServicePeriod and HeiferInsem are the legacy samplers that
// feed the daily tick's success-insemination dates directly; Culling,
// Replacement and Purchase are stateful enough to need their own types.
type Policies struct {
	ServicePeriod policies.ServicePeriodPolicy
	HeiferInsem   policies.HeiferInsemPolicy
	Culling       policies.CullingPolicy
	Replacement   policies.ReplacementPolicy
	Purchase      policies.PurchasePolicy
}
