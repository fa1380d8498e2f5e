package montecarlo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dairyforecast/herdsim/internal/simulator"
)

func sampleRows(reportDate time.Time) []simulator.SourceRow {
	return []simulator.SourceRow{
		{ID: 1, BirthDate: reportDate.AddDate(-3, 0, 0), Lactation: 1, HasLastCalving: true, LastCalving: reportDate.AddDate(0, -2, 0)},
		{ID: 2, BirthDate: reportDate.AddDate(-2, 0, 0), Lactation: 0},
		{ID: 3, BirthDate: reportDate.AddDate(-4, 0, 0), Lactation: 2, HasLastCalving: true, LastCalving: reportDate.AddDate(0, -5, 0)},
	}
}

func sampleModel() ModelParams {
	return ModelParams{
		GestationMeanDays: 280, GestationSDDays: 5, GestationLoDays: 270, GestationHiDays: 290,
		ConceptionToDryMeanDays: 60, ConceptionToDrySDDays: 10, ConceptionToDryLoDays: 30, ConceptionToDryHiDays: 90,
		ServicePeriodMeanDays: 85, ServicePeriodSDDays: 15, ServicePeriodLoDays: 60, ServicePeriodHiDays: 200,
		MinDaysAfterCalving: 60,
		HeiferInsemMinAgeDays: 380, HeiferInsemMaxAgeDays: 460,
		VoluntaryWaitingPeriod: 60, MaxServicePeriodAfterVWP: 150,
		HeiferBirthProb:      0.5,
		PurchasedDaysToCalvingLoDays: 30, PurchasedDaysToCalvingHiDays: 120,
		PopulationRegulation:  1.0,
		CullingGrouping:       "lactation",
		FallbackMonthlyHazard: 0.02,
	}
}

func TestBuildRunFuncProducesDeterministicSnapshotsPerSeed(t *testing.T) {
	reportDate := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	scenario := ScenarioParams{
		ReportDate: reportDate, HorizonMonths: 6, MasterSeed: 11, RunCount: 1,
		CentralConfidence: 0.8, PurchasePolicy: PurchaseAutoCounter, SamplingMode: SamplingEmpirical,
		Model: sampleModel(),
	}
	runFn, err := BuildRunFunc(scenario, sampleRows(reportDate))
	require.NoError(t, err)

	a := runFn(42)
	b := runFn(42)
	require.Equal(t, len(a), len(b))
	for i := range a {
		require.Equal(t, a[i].Milking, b[i].Milking)
	}
}

func TestBuildRunFuncWithManualPurchasePlan(t *testing.T) {
	reportDate := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	days := 100
	item, err := NewManualPurchaseItem(reportDate.AddDate(0, 1, 0), 2, nil, &days)
	require.NoError(t, err)

	scenario := ScenarioParams{
		ReportDate: reportDate, HorizonMonths: 4, MasterSeed: 3, RunCount: 1,
		CentralConfidence: 0.8, PurchasePolicy: PurchaseManual, SamplingMode: SamplingEmpirical,
		Model:           sampleModel(),
		ManualPurchases: []ManualPurchaseItem{item},
	}
	runFn, err := BuildRunFunc(scenario, sampleRows(reportDate))
	require.NoError(t, err)

	snaps := runFn(7)
	totalPurchases := 0
	for _, s := range snaps {
		totalPurchases += s.PurchasesIn
	}
	require.Equal(t, 2, totalPurchases)
}

func TestOrchestratorRunWithRealFactory(t *testing.T) {
	reportDate := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	scenario := ScenarioParams{
		ReportDate: reportDate, HorizonMonths: 3, MasterSeed: 100, RunCount: 4,
		CentralConfidence: 0.8, PurchasePolicy: PurchaseAutoCounter, SamplingMode: SamplingEmpirical,
		Model: sampleModel(),
	}
	runFn, err := BuildRunFunc(scenario, sampleRows(reportDate))
	require.NoError(t, err)

	res, err := Run(context.Background(), Config{}, scenario, runFn, nil)
	require.NoError(t, err)
	require.Equal(t, 4, res.CompletedRuns)
	require.NotEmpty(t, res.SeriesP50)
	require.NotNil(t, res.SeriesPLow)
}
