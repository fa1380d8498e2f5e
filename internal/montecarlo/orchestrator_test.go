package montecarlo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dairyforecast/herdsim/internal/simulator"
)

func baseScenario() ScenarioParams {
	return ScenarioParams{
		DatasetID:         "ds-1",
		ReportDate:        time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		HorizonMonths:     2,
		MasterSeed:        1000,
		RunCount:          5,
		CentralConfidence: 0.8,
		PurchasePolicy:    PurchaseManual,
		SamplingMode:      SamplingEmpirical,
	}
}

// fakeRun produces a deterministic, seed-dependent single-point snapshot
// sequence: milking count == seed mod 100, so the orchestrator's
// aggregation can be checked against a hand-computed percentile.
func fakeRun(seed int64) []simulator.Snapshot {
	return []simulator.Snapshot{
		{
			Date:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			Milking: int(seed % 100),
			Calvings: 1,
		},
	}
}

func TestQuantileInterpolation(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}
	require.Equal(t, 3.0, quantile(sorted, 0.5))
	require.Equal(t, 1.0, quantile(sorted, 0))
	require.Equal(t, 5.0, quantile(sorted, 1))
	require.InDelta(t, 1.8, quantile(sorted, 0.2), 1e-9)
}

func TestBandQuantiles(t *testing.T) {
	low, high := bandQuantiles(0.8)
	require.InDelta(t, 0.1, low, 1e-9)
	require.InDelta(t, 0.9, high, 1e-9)
}

func TestSeedDerivationIsDeterministic(t *testing.T) {
	var seen []int64
	runFn := func(seed int64) []simulator.Snapshot {
		seen = append(seen, seed)
		return fakeRun(seed)
	}
	scenario := baseScenario()
	scenario.RunCount = 3

	_, err := Run(context.Background(), Config{}, scenario, runFn, nil)
	require.NoError(t, err)
	require.Equal(t, []int64{1000, 1000 + 9973, 1000 + 2*9973}, seen)
}

func TestRunSingleCompletedRunHasNoBands(t *testing.T) {
	scenario := baseScenario()
	scenario.RunCount = 1
	res, err := Run(context.Background(), Config{}, scenario, fakeRun, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.CompletedRuns)
	require.Nil(t, res.SeriesPLow)
	require.Nil(t, res.SeriesPHigh)
}

func TestRunAggregatesMedianAcrossRuns(t *testing.T) {
	scenario := baseScenario()
	scenario.RunCount = 5
	scenario.MasterSeed = 0
	// seeds 0,9973,19946,29919,39892 -> milking = seed%100 = 0,73,46,19,92
	// sorted: 0,19,46,73,92 -> median (q=0.5, n=5) is index 2 -> 46
	res, err := Run(context.Background(), Config{}, scenario, fakeRun, nil)
	require.NoError(t, err)
	require.Equal(t, 5, res.CompletedRuns)
	require.Equal(t, 46, res.SeriesP50[0].Milking)
	require.NotNil(t, res.SeriesPLow)
	require.NotNil(t, res.SeriesPHigh)
	require.Equal(t, 1, res.Events[0].Calvings)
}

func TestRunEmitsProgressPerBatch(t *testing.T) {
	scenario := baseScenario()
	scenario.RunCount = 6
	calls := 0
	var lastCompleted []int
	_, err := Run(context.Background(), Config{BatchSize: 2}, scenario, fakeRun, func(partial *ForecastResult) {
		calls++
		lastCompleted = append(lastCompleted, partial.CompletedRuns)
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, []int{2, 4, 6}, lastCompleted)
}

func TestRunParallelProducesSameResultAsSequential(t *testing.T) {
	scenario := baseScenario()
	scenario.RunCount = 8
	scenario.MasterSeed = 5

	sequential, err := Run(context.Background(), Config{}, scenario, fakeRun, nil)
	require.NoError(t, err)

	parallel, err := Run(context.Background(), Config{ParallelEnabled: true, MaxProcesses: 4, BatchSize: 8}, scenario, fakeRun, nil)
	require.NoError(t, err)

	require.Equal(t, sequential.SeriesP50, parallel.SeriesP50)
	require.Equal(t, sequential.SeriesPLow, parallel.SeriesPLow)
	require.Equal(t, sequential.SeriesPHigh, parallel.SeriesPHigh)
}

func TestRunRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	scenario := baseScenario()
	_, err := Run(ctx, Config{}, scenario, fakeRun, nil)
	require.Error(t, err)
}

func TestScenarioValidateRejectsBadHorizon(t *testing.T) {
	s := baseScenario()
	s.HorizonMonths = 0
	require.Error(t, s.Validate())
}

func TestScenarioValidateRejectsFutureDateOutsideHorizon(t *testing.T) {
	s := baseScenario()
	future := s.ReportDate.AddDate(1, 0, 0)
	s.FutureDate = &future
	require.Error(t, s.Validate())
}

func TestManualPurchaseItemRequiresExactlyOneCalvingField(t *testing.T) {
	_, err := NewManualPurchaseItem(time.Now(), 1, nil, nil)
	require.Error(t, err)

	days := 100
	item, err := NewManualPurchaseItem(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 2, nil, &days)
	require.NoError(t, err)
	require.Equal(t, 2, item.Count)
}
