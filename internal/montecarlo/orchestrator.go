package montecarlo

import (
	"context"
	"sort"
	"sync"

	"github.com/dairyforecast/herdsim/internal/simulator"
)

// seedStride is the per-run seed offset. Each run's seed is deterministic
// given the scenario's master seed and the run's index, so a batch can be
// replayed run-for-run regardless of how many workers processed it.
const seedStride = 9973

// RunFunc executes exactly one simulation run under the given seed and
// returns its snapshot sequence. The caller owns how the seed turns into a
// *rand.Rand and an initial population; the orchestrator only needs the
// resulting snapshots.
type RunFunc func(seed int64) []simulator.Snapshot

// Config tunes how a Run call fans work out across goroutines.
type Config struct {
	// ParallelEnabled gates whether runs within a batch may execute
	// concurrently. When false, every run executes sequentially in the
	// calling goroutine regardless of MaxProcesses.
	ParallelEnabled bool
	// MaxProcesses caps the number of concurrent worker goroutines.
	MaxProcesses int
	// BatchSize is how many runs are dispatched and aggregated together
	// before the progress callback fires. A value <= 0 means "one batch
	// containing every run".
	BatchSize int
}

// ProgressFunc receives a partial aggregate after each completed batch.
// The final call (after the last batch) is also returned as Run's result,
// so callers that only care about the terminal value may pass nil.
type ProgressFunc func(partial *ForecastResult)

// Run fans scenario.RunCount independent simulation runs across a worker
// pool (or runs them sequentially in-process, matching the teacher's
// single-process mode), aggregating the completed snapshot sequences into
// a percentile-banded ForecastResult after every batch.
//
// Each run's seed is scenario.MasterSeed + i*9973, so run i is
// reproducible independent of batch size or worker count.
func Run(ctx context.Context, cfg Config, scenario ScenarioParams, runFn RunFunc, onProgress ProgressFunc) (*ForecastResult, error) {
	total := scenario.RunCount
	seeds := make([]int64, total)
	for i := 0; i < total; i++ {
		seeds[i] = scenario.MasterSeed + int64(i)*seedStride
	}

	workers := 1
	if cfg.ParallelEnabled && total >= 2 && cfg.MaxProcesses > 1 {
		workers = cfg.MaxProcesses
		if workers > total {
			workers = total
		}
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = total
	}

	runs := make([][]simulator.Snapshot, 0, total)
	var result *ForecastResult

	for start := 0; start < total; start += batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + batchSize
		if end > total {
			end = total
		}
		batch := runBatch(seeds[start:end], workers, runFn)
		runs = append(runs, batch...)

		result = aggregate(runs, total, scenario)
		if onProgress != nil {
			onProgress(result)
		}
	}

	if result == nil {
		result = aggregate(runs, total, scenario)
	}
	return result, nil
}

// runBatch executes one batch of seeds, sequentially when workers <= 1
// (matching a single-process run) or fanned across a bounded goroutine
// pool otherwise. Go's goroutines carry no GIL, so unlike the teacher's
// original multiprocessing pool this needs no IPC boundary between runs.
func runBatch(seeds []int64, workers int, runFn RunFunc) [][]simulator.Snapshot {
	results := make([][]simulator.Snapshot, len(seeds))
	if workers <= 1 {
		for i, seed := range seeds {
			results[i] = runFn(seed)
		}
		return results
	}

	type job struct {
		index int
		seed  int64
	}
	jobs := make(chan job)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.index] = runFn(j.seed)
			}
		}()
	}
	for i, seed := range seeds {
		jobs <- job{index: i, seed: seed}
	}
	close(jobs)
	wg.Wait()
	return results
}

// aggregate builds a ForecastResult from however many runs have completed
// so far. Every run produces the same number of snapshots on the same
// dates (the horizon and report date are seed-independent), so index i
// across runs is directly comparable.
func aggregate(runs [][]simulator.Snapshot, totalRuns int, scenario ScenarioParams) *ForecastResult {
	res := &ForecastResult{
		CompletedRuns: len(runs),
		TotalRuns:     totalRuns,
		Meta: ResultMeta{
			Mode:              scenario.SamplingMode,
			PurchasePolicy:    scenario.PurchasePolicy,
			CentralConfidence: scenario.CentralConfidence,
			SimulationVersion: simulationVersion,
			Assumptions: []string{
				"individual milk yield is not modeled; only headcount and days-in-milk are forecast",
				"culling hazard is reconstructed from a trailing window of the source dataset, not a fitted survival model",
			},
		},
	}
	if len(runs) == 0 {
		return res
	}

	numPoints := len(runs[0])
	low, high := bandQuantiles(scenario.CentralConfidence)
	banded := len(runs) >= 2

	res.SeriesP50 = make([]ForecastPoint, numPoints)
	if banded {
		res.SeriesPLow = make([]ForecastPoint, numPoints)
		res.SeriesPHigh = make([]ForecastPoint, numPoints)
	}
	res.Events = make([]EventTotals, numPoints)

	milking := make([]float64, len(runs))
	dry := make([]float64, len(runs))
	heifer := make([]float64, len(runs))
	pregHeifer := make([]float64, len(runs))
	avgDIM := make([]float64, len(runs))

	for idx := 0; idx < numPoints; idx++ {
		date := runs[0][idx].Date
		var calvings, dryoffs, culls, purchases, heiferIntros int

		for r, run := range runs {
			snap := run[idx]
			milking[r] = float64(snap.Milking)
			dry[r] = float64(snap.Dry)
			heifer[r] = float64(snap.Heifer)
			pregHeifer[r] = float64(snap.PregnantHeifer)
			avgDIM[r] = snap.AvgDaysInMilk
			calvings += snap.Calvings
			dryoffs += snap.Dryoffs
			culls += snap.Culls
			purchases += snap.PurchasesIn
			heiferIntros += snap.HeiferIntros
		}

		res.SeriesP50[idx] = ForecastPoint{
			Date:           date,
			Milking:        roundToInt(percentileOf(milking, 0.5)),
			Dry:            roundToInt(percentileOf(dry, 0.5)),
			Heifer:         roundToInt(percentileOf(heifer, 0.5)),
			PregnantHeifer: roundToInt(percentileOf(pregHeifer, 0.5)),
			AvgDaysInMilk:  percentileOf(avgDIM, 0.5),
		}
		if banded {
			res.SeriesPLow[idx] = ForecastPoint{
				Date:           date,
				Milking:        roundToInt(percentileOf(milking, low)),
				Dry:            roundToInt(percentileOf(dry, low)),
				Heifer:         roundToInt(percentileOf(heifer, low)),
				PregnantHeifer: roundToInt(percentileOf(pregHeifer, low)),
				AvgDaysInMilk:  percentileOf(avgDIM, low),
			}
			res.SeriesPHigh[idx] = ForecastPoint{
				Date:           date,
				Milking:        roundToInt(percentileOf(milking, high)),
				Dry:            roundToInt(percentileOf(dry, high)),
				Heifer:         roundToInt(percentileOf(heifer, high)),
				PregnantHeifer: roundToInt(percentileOf(pregHeifer, high)),
				AvgDaysInMilk:  percentileOf(avgDIM, high),
			}
		}

		n := float64(len(runs))
		res.Events[idx] = EventTotals{
			Date:         date,
			Calvings:     roundToInt(float64(calvings) / n),
			Dryoffs:      roundToInt(float64(dryoffs) / n),
			Culls:        roundToInt(float64(culls) / n),
			PurchasesIn:  roundToInt(float64(purchases) / n),
			HeiferIntros: roundToInt(float64(heiferIntros) / n),
		}

		if scenario.FutureDate != nil && date.Equal(*scenario.FutureDate) {
			fp := res.SeriesP50[idx]
			res.FuturePoint = &fp
		}
	}

	return res
}

// percentileOf sorts a copy of values and returns its quantile at q. The
// copy avoids mutating the caller's per-run accumulator slices, which are
// reused in place across loop iterations.
func percentileOf(values []float64, q float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return quantile(sorted, q)
}
