// Package export renders a montecarlo.ForecastResult into the two
// external-collaborator export formats the submission API serves:
// CSV (stdlib encoding/csv, following the teacher's generateCSV) and
// xlsx (github.com/xuri/excelize/v2, since no pack example wires an
// xlsx library — the exporter is a thin out-of-core-scope boundary
// adapter, not a core algorithm).
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/dairyforecast/herdsim/internal/montecarlo"
)

// dateLayout is the column format used by both export formats.
const dateLayout = "2006-01-02"

// CSV renders three labeled sections separated by blank lines: SERIES,
// EVENTS, FUTURE. SERIES carries the P10/P90 band columns only when the
// result has at least two completed runs.
func CSV(result *montecarlo.ForecastResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := writeSeriesSection(w, result); err != nil {
		return nil, err
	}
	if err := w.Write(nil); err != nil {
		return nil, fmt.Errorf("write section separator: %w", err)
	}
	if err := writeEventsSection(w, result); err != nil {
		return nil, err
	}
	if err := w.Write(nil); err != nil {
		return nil, fmt.Errorf("write section separator: %w", err)
	}
	if err := writeFutureSection(w, result); err != nil {
		return nil, err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSeriesSection(w *csv.Writer, result *montecarlo.ForecastResult) error {
	if err := w.Write([]string{"SERIES"}); err != nil {
		return err
	}
	header := []string{"date", "milking_count", "dry_count", "heifer_count", "pregnant_heifer_count", "avg_days_in_milk_p50"}
	banded := result.SeriesPLow != nil && result.SeriesPHigh != nil
	if banded {
		header = append(header, "avg_days_in_milk_p10", "avg_days_in_milk_p90")
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i, p := range result.SeriesP50 {
		row := []string{
			p.Date.Format(dateLayout),
			fmt.Sprintf("%d", p.Milking),
			fmt.Sprintf("%d", p.Dry),
			fmt.Sprintf("%d", p.Heifer),
			fmt.Sprintf("%d", p.PregnantHeifer),
			fmt.Sprintf("%.1f", p.AvgDaysInMilk),
		}
		if banded {
			row = append(row,
				fmt.Sprintf("%.1f", result.SeriesPLow[i].AvgDaysInMilk),
				fmt.Sprintf("%.1f", result.SeriesPHigh[i].AvgDaysInMilk),
			)
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write series row: %w", err)
		}
	}
	return nil
}

func writeEventsSection(w *csv.Writer, result *montecarlo.ForecastResult) error {
	if err := w.Write([]string{"EVENTS"}); err != nil {
		return err
	}
	header := []string{"date", "calvings", "dryoffs", "culls", "purchases_in", "heifer_intros"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, e := range result.Events {
		row := []string{
			e.Date.Format(dateLayout),
			fmt.Sprintf("%d", e.Calvings),
			fmt.Sprintf("%d", e.Dryoffs),
			fmt.Sprintf("%d", e.Culls),
			fmt.Sprintf("%d", e.PurchasesIn),
			fmt.Sprintf("%d", e.HeiferIntros),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write events row: %w", err)
		}
	}
	return nil
}

func writeFutureSection(w *csv.Writer, result *montecarlo.ForecastResult) error {
	if err := w.Write([]string{"FUTURE"}); err != nil {
		return err
	}
	header := []string{"date", "milking_count", "dry_count", "heifer_count", "pregnant_heifer_count", "avg_days_in_milk_p50"}
	if err := w.Write(header); err != nil {
		return err
	}
	if result.FuturePoint == nil {
		return nil
	}
	p := result.FuturePoint
	row := []string{
		p.Date.Format(dateLayout),
		fmt.Sprintf("%d", p.Milking),
		fmt.Sprintf("%d", p.Dry),
		fmt.Sprintf("%d", p.Heifer),
		fmt.Sprintf("%d", p.PregnantHeifer),
		fmt.Sprintf("%.1f", p.AvgDaysInMilk),
	}
	return w.Write(row)
}
