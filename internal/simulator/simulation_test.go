package simulator

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dairyforecast/herdsim/internal/herd"
	"github.com/dairyforecast/herdsim/internal/policies"
	"github.com/dairyforecast/herdsim/internal/sampling"
)

func testConfig() (ModelConfig, Policies) {
	cfg := ModelConfig{
		GestationSampler:         sampling.TruncatedNormal{Mu: 280, Sigma: 5, Lo: 270, Hi: 290},
		ConceptionToDrySampler:   sampling.TruncatedNormal{Mu: 60, Sigma: 10, Lo: 30, Hi: 90},
		PurchasedDaysToCalvingLo: 30,
		PurchasedDaysToCalvingHi: 120,
		VoluntaryWaitingPeriod:   60,
		MaxServicePeriodAfterVWP: 150,
		HeiferBirthProb:          0.5,
		PopulationRegulation:     1.0,
	}
	pol := Policies{
		ServicePeriod: policies.ServicePeriodPolicy{
			Sampler:             sampling.TruncatedNormal{Mu: 85, Sigma: 15, Lo: 60, Hi: 200},
			MinDaysAfterCalving: 60,
		},
		HeiferInsem: policies.HeiferInsemPolicy{MinAgeDays: 380, MaxAgeDays: 460},
		Culling: policies.CullingPolicy{
			Grouping:              policies.GroupByLactation,
			FallbackMonthlyHazard: 0.02,
			PopulationRegulation:  1.0,
		},
		Purchase: &policies.ManualPurchasePolicy{PlanByDate: map[string]int{}},
	}
	return cfg, pol
}

func baseRow(id int, lactation int) SourceRow {
	return SourceRow{ID: id, Lactation: lactation}
}

func TestRunProducesOneSnapshotPerMonthPlusInitial(t *testing.T) {
	reportDate := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	rows := []SourceRow{
		{ID: 1, BirthDate: reportDate.AddDate(-3, 0, 0), Lactation: 1, HasLastCalving: true, LastCalving: reportDate.AddDate(0, -4, 0)},
		{ID: 2, BirthDate: reportDate.AddDate(-2, 0, 0), Lactation: 0},
	}
	animals := BuildInitialPopulation(rows, reportDate)
	cfg, pol := testConfig()
	sim := NewSimulation(animals, reportDate, 1, cfg, pol, rand.New(rand.NewSource(1)))

	snaps := sim.Run()
	require.Len(t, snaps, 2)
	require.Equal(t, reportDate, snaps[0].Date)
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), snaps[1].Date)
}

func TestHeadcountConservation(t *testing.T) {
	reportDate := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]SourceRow, 0, 50)
	for i := 1; i <= 50; i++ {
		lact := i % 4
		row := baseRow(i, lact)
		row.BirthDate = reportDate.AddDate(-3, 0, 0)
		if lact > 0 {
			row.HasLastCalving = true
			row.LastCalving = reportDate.AddDate(0, -2, 0)
		}
		rows = append(rows, row)
	}
	animals := BuildInitialPopulation(rows, reportDate)
	cfg, pol := testConfig()
	sim := NewSimulation(animals, reportDate, 6, cfg, pol, rand.New(rand.NewSource(42)))
	snaps := sim.Run()

	liveAtEnd := 0
	for _, a := range sim.Animals {
		if !a.IsArchived() {
			liveAtEnd++
		}
	}
	netIn, netOut := 0, 0
	for _, s := range snaps {
		netIn += s.PurchasesIn + s.HeiferIntros
		netOut += s.Culls
	}
	require.Equal(t, len(animals)+netIn-netOut, len(sim.Animals))
	require.GreaterOrEqual(t, liveAtEnd, 0)
}

func TestAvgDaysInMilkZeroWhenNoneMilking(t *testing.T) {
	reportDate := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []SourceRow{{ID: 1, BirthDate: reportDate.AddDate(-1, 0, 0), Lactation: 0}}
	animals := BuildInitialPopulation(rows, reportDate)
	cfg, pol := testConfig()
	sim := NewSimulation(animals, reportDate, 1, cfg, pol, rand.New(rand.NewSource(7)))
	snaps := sim.Run()
	require.Equal(t, 0, snaps[0].Milking)
	require.Equal(t, 0.0, snaps[0].AvgDaysInMilk)
}

func TestDeterministicUnderFixedSeed(t *testing.T) {
	reportDate := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []SourceRow{
		{ID: 1, BirthDate: reportDate.AddDate(-3, 0, 0), Lactation: 2, HasLastCalving: true, LastCalving: reportDate.AddDate(0, -1, 0)},
		{ID: 2, BirthDate: reportDate.AddDate(-2, 0, 0), Lactation: 0},
		{ID: 3, BirthDate: reportDate.AddDate(-4, 0, 0), Lactation: 3, HasLastCalving: true, LastCalving: reportDate.AddDate(0, -3, 0)},
	}
	cfg, pol := testConfig()

	run := func(seed int64) []Snapshot {
		animals := BuildInitialPopulation(rows, reportDate)
		sim := NewSimulation(animals, reportDate, 12, cfg, pol, rand.New(rand.NewSource(seed)))
		return sim.Run()
	}

	a := run(99)
	b := run(99)
	require.Equal(t, len(a), len(b))
	for i := range a {
		require.Equal(t, a[i].Milking, b[i].Milking)
		require.Equal(t, a[i].Dry, b[i].Dry)
		require.Equal(t, a[i].Heifer, b[i].Heifer)
		require.Equal(t, a[i].Calvings, b[i].Calvings)
	}
}

func TestForecastMilkingCountDoesNotMutateLivePopulation(t *testing.T) {
	reportDate := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []SourceRow{
		{ID: 1, BirthDate: reportDate.AddDate(-3, 0, 0), Lactation: 1, HasLastCalving: true, LastCalving: reportDate.AddDate(0, -1, 0)},
	}
	animals := BuildInitialPopulation(rows, reportDate)
	cfg, pol := testConfig()
	sim := NewSimulation(animals, reportDate, 3, cfg, pol, rand.New(rand.NewSource(3)))

	before := sim.Animals[1].Status
	daysInStatusBefore := sim.Animals[1].DaysInStatus

	_ = sim.ForecastMilkingCount(reportDate, 90)

	require.Equal(t, before, sim.Animals[1].Status)
	require.Equal(t, daysInStatusBefore, sim.Animals[1].DaysInStatus)
}

func TestPregnantCowStaysMilkingUntilDryOff(t *testing.T) {
	reportDate := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg, pol := testConfig()
	pol.Culling.FallbackMonthlyHazard = 0 // isolate the milking-bucket assertion from cull risk
	sim := NewSimulation(nil, reportDate, 12, cfg, pol, rand.New(rand.NewSource(3)))

	cow := &herd.Animal{
		ID:                   1,
		BirthDate:            reportDate.AddDate(-3, 0, 0),
		Lactation:            1,
		Status:               herd.StatusReadyForBreeding,
		HasLastCalving:       true,
		LastCalving:          reportDate.AddDate(0, -2, 0),
		PlannedConception:    reportDate,
		HasPlannedConception: true,
	}
	sim.Animals[cow.ID] = cow

	sim.stepDay(reportDate)
	require.Equal(t, herd.StatusPregnant, cow.Status)
	require.True(t, cow.Status.Milking(), "a freshly-conceived cow is still milking, not dry")

	day := reportDate.AddDate(0, 0, 1)
	for day.Before(cow.PlannedDry) {
		require.True(t, cow.Status.Milking(), "cow must stay milking through the whole PREGNANT window")
		sim.stepDay(day)
		day = day.AddDate(0, 0, 1)
	}
	require.Equal(t, herd.StatusDry, cow.Status)
}

func TestSeedInitialStateAssignsCullDates(t *testing.T) {
	reportDate := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []SourceRow{
		{ID: 1, BirthDate: reportDate.AddDate(-3, 0, 0), Lactation: 1, HasLastCalving: true, LastCalving: reportDate.AddDate(0, -1, 0)},
	}
	animals := BuildInitialPopulation(rows, reportDate)
	cfg, pol := testConfig()
	sim := NewSimulation(animals, reportDate, 12, cfg, pol, rand.New(rand.NewSource(5)))

	a := sim.Animals[1]
	require.Equal(t, herd.StatusFresh, a.Status)
	if a.HasScheduledCullDate {
		require.False(t, a.ScheduledCullDate.Before(reportDate))
		require.True(t, a.ScheduledCullDate.Before(sim.EndDate))
	}
}
