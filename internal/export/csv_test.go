package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dairyforecast/herdsim/internal/montecarlo"
)

func sampleResult() *montecarlo.ForecastResult {
	d1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	return &montecarlo.ForecastResult{
		CompletedRuns: 3,
		TotalRuns:     3,
		SeriesP50: []montecarlo.ForecastPoint{
			{Date: d1, Milking: 100, Dry: 20, Heifer: 10, PregnantHeifer: 5, AvgDaysInMilk: 150.2},
			{Date: d2, Milking: 102, Dry: 19, Heifer: 11, PregnantHeifer: 5, AvgDaysInMilk: 151.0},
		},
		SeriesPLow: []montecarlo.ForecastPoint{
			{Date: d1, AvgDaysInMilk: 140.0},
			{Date: d2, AvgDaysInMilk: 141.0},
		},
		SeriesPHigh: []montecarlo.ForecastPoint{
			{Date: d1, AvgDaysInMilk: 160.0},
			{Date: d2, AvgDaysInMilk: 161.0},
		},
		Events: []montecarlo.EventTotals{
			{Date: d1, Calvings: 2, Dryoffs: 1, Culls: 0, PurchasesIn: 0, HeiferIntros: 0},
			{Date: d2, Calvings: 3, Dryoffs: 0, Culls: 1, PurchasesIn: 2, HeiferIntros: 0},
		},
		FuturePoint: &montecarlo.ForecastPoint{Date: d2, Milking: 102, AvgDaysInMilk: 151.0},
	}
}

func TestCSVContainsThreeLabeledSections(t *testing.T) {
	data, err := CSV(sampleResult())
	require.NoError(t, err)
	out := string(data)

	require.Contains(t, out, "SERIES")
	require.Contains(t, out, "EVENTS")
	require.Contains(t, out, "FUTURE")
	require.Contains(t, out, "avg_days_in_milk_p10")
	require.Contains(t, out, "avg_days_in_milk_p90")

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Greater(t, len(lines), 8)
}

func TestCSVOmitsBandColumnsWhenUnbanded(t *testing.T) {
	result := sampleResult()
	result.SeriesPLow = nil
	result.SeriesPHigh = nil
	data, err := CSV(result)
	require.NoError(t, err)
	require.NotContains(t, string(data), "avg_days_in_milk_p10")
}

func TestXLSXProducesNonEmptyWorkbook(t *testing.T) {
	data, err := XLSX(sampleResult())
	require.NoError(t, err)
	require.NotEmpty(t, data)
	// xlsx files are zip archives; the local file header magic confirms
	// excelize actually produced an archive rather than an empty buffer.
	require.Equal(t, []byte{'P', 'K'}, data[:2])
}
