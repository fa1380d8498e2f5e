package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/dairyforecast/herdsim/internal/montecarlo"
)

// XLSX renders the same three sections as CSV, one per sheet, following
// the column layout defined in writeSeries/Events/FutureSection.
func XLSX(result *montecarlo.ForecastResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeSeriesSheet(f, result); err != nil {
		return nil, err
	}
	if err := writeEventsSheet(f, result); err != nil {
		return nil, err
	}
	if err := writeFutureSheet(f, result); err != nil {
		return nil, err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSeriesSheet(f *excelize.File, result *montecarlo.ForecastResult) error {
	const sheet = "SERIES"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("new sheet %s: %w", sheet, err)
	}
	banded := result.SeriesPLow != nil && result.SeriesPHigh != nil
	header := []interface{}{"date", "milking_count", "dry_count", "heifer_count", "pregnant_heifer_count", "avg_days_in_milk_p50"}
	if banded {
		header = append(header, "avg_days_in_milk_p10", "avg_days_in_milk_p90")
	}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i, p := range result.SeriesP50 {
		row := []interface{}{p.Date.Format(dateLayout), p.Milking, p.Dry, p.Heifer, p.PregnantHeifer, p.AvgDaysInMilk}
		if banded {
			row = append(row, result.SeriesPLow[i].AvgDaysInMilk, result.SeriesPHigh[i].AvgDaysInMilk)
		}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeEventsSheet(f *excelize.File, result *montecarlo.ForecastResult) error {
	const sheet = "EVENTS"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("new sheet %s: %w", sheet, err)
	}
	header := []interface{}{"date", "calvings", "dryoffs", "culls", "purchases_in", "heifer_intros"}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i, e := range result.Events {
		row := []interface{}{e.Date.Format(dateLayout), e.Calvings, e.Dryoffs, e.Culls, e.PurchasesIn, e.HeiferIntros}
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeFutureSheet(f *excelize.File, result *montecarlo.ForecastResult) error {
	const sheet = "FUTURE"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("new sheet %s: %w", sheet, err)
	}
	header := []interface{}{"date", "milking_count", "dry_count", "heifer_count", "pregnant_heifer_count", "avg_days_in_milk_p50"}
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	if result.FuturePoint == nil {
		return nil
	}
	p := result.FuturePoint
	row := []interface{}{p.Date.Format(dateLayout), p.Milking, p.Dry, p.Heifer, p.PregnantHeifer, p.AvgDaysInMilk}
	return setRow(f, sheet, 2, row)
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name for row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("set sheet row %d: %w", row, err)
	}
	return nil
}
