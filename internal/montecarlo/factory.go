package montecarlo

import (
	"math/rand"

	"github.com/dairyforecast/herdsim/internal/forecasterr"
	"github.com/dairyforecast/herdsim/internal/herd"
	"github.com/dairyforecast/herdsim/internal/policies"
	"github.com/dairyforecast/herdsim/internal/sampling"
	"github.com/dairyforecast/herdsim/internal/simulator"
)

// BuildRunFunc assembles everything one simulation run needs from a
// resolved scenario and its dataset rows: the samplers, the culling
// hazard (estimated once from the dataset, since it depends only on the
// archive history, not on a run's seed), and whichever purchase policy
// variant the scenario selects. The returned RunFunc clones a fresh
// population and a seed-specific *rand.Rand per invocation, so it is safe
// to call concurrently from the orchestrator's worker pool.
func BuildRunFunc(scenario ScenarioParams, rows []simulator.SourceRow) (RunFunc, error) {
	base := simulator.BuildInitialPopulation(rows, scenario.ReportDate)

	culling := policies.CullingPolicy{
		Grouping:              policies.Grouping(scenario.Model.CullingGrouping),
		AgeBandYears:          scenario.Model.CullingAgeBandYears,
		FallbackMonthlyHazard: scenario.Model.FallbackMonthlyHazard,
		PopulationRegulation:  scenario.Model.PopulationRegulation,
	}
	culling.EstimateFromDataset(base, scenario.ReportDate)

	purchase, err := buildPurchasePolicy(scenario)
	if err != nil {
		return nil, err
	}

	m := scenario.Model
	cfg := simulator.ModelConfig{
		GestationSampler:         sampling.TruncatedNormal{Mu: m.GestationMeanDays, Sigma: m.GestationSDDays, Lo: m.GestationLoDays, Hi: m.GestationHiDays},
		ConceptionToDrySampler:   sampling.TruncatedNormal{Mu: m.ConceptionToDryMeanDays, Sigma: m.ConceptionToDrySDDays, Lo: m.ConceptionToDryLoDays, Hi: m.ConceptionToDryHiDays},
		PurchasedDaysToCalvingLo: m.PurchasedDaysToCalvingLoDays,
		PurchasedDaysToCalvingHi: m.PurchasedDaysToCalvingHiDays,
		VoluntaryWaitingPeriod:   m.VoluntaryWaitingPeriod,
		MaxServicePeriodAfterVWP: m.MaxServicePeriodAfterVWP,
		HeiferBirthProb:          m.HeiferBirthProb,
		PopulationRegulation:     m.PopulationRegulation,
	}

	pol := simulator.Policies{
		ServicePeriod: policies.ServicePeriodPolicy{
			Sampler:             sampling.TruncatedNormal{Mu: m.ServicePeriodMeanDays, Sigma: m.ServicePeriodSDDays, Lo: m.ServicePeriodLoDays, Hi: m.ServicePeriodHiDays},
			MinDaysAfterCalving: m.MinDaysAfterCalving,
		},
		HeiferInsem: policies.HeiferInsemPolicy{MinAgeDays: m.HeiferInsemMinAgeDays, MaxAgeDays: m.HeiferInsemMaxAgeDays},
		Culling:     culling,
		Replacement: policies.ReplacementPolicy{
			Enabled:           m.ReplacementEnabled,
			AnnualHeiferRatio: m.ReplacementAnnualRatio,
			LookaheadMonths:   m.ReplacementLookaheadMonths,
		},
		Purchase: purchase,
	}

	return func(seed int64) []simulator.Snapshot {
		animals := cloneAnimals(base)
		rng := rand.New(rand.NewSource(seed))
		sim := simulator.NewSimulation(animals, scenario.ReportDate, scenario.HorizonMonths, cfg, pol, rng)
		return sim.Run()
	}, nil
}

func cloneAnimals(base []*herd.Animal) []*herd.Animal {
	out := make([]*herd.Animal, len(base))
	for i, a := range base {
		out[i] = a.Clone()
	}
	return out
}

func buildPurchasePolicy(scenario ScenarioParams) (policies.PurchasePolicy, error) {
	switch scenario.PurchasePolicy {
	case PurchaseManual:
		plan := make(map[string]int, len(scenario.ManualPurchases))
		for _, item := range scenario.ManualPurchases {
			plan[item.DateIn.Format("2006-01-02")] += item.Count
		}
		return &policies.ManualPurchasePolicy{PlanByDate: plan}, nil
	case PurchaseAutoCounter:
		return &policies.AutoCounterPurchasePolicy{}, nil
	case PurchaseAutoForecast:
		return &policies.AutoForecastPurchasePolicy{
			TargetMilking: scenario.Model.AutoForecastTargetMilking,
			Buffer:        scenario.Model.AutoForecastBuffer,
			LeadTimeDays:  scenario.LeadTimeDays,
			MaxBuy:        scenario.Model.AutoForecastMaxBuy,
		}, nil
	default:
		return nil, forecasterr.RequestValidation("unknown purchase policy")
	}
}
