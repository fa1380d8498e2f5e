package policies

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dairyforecast/herdsim/internal/herd"
)

func TestEstimateFromDatasetUsesFallbackBelowMinGroupSize(t *testing.T) {
	reportDate := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	animals := []*herd.Animal{
		{ID: 1, Lactation: 1, Status: herd.StatusFresh},
		{ID: 2, Lactation: 1, Status: herd.StatusFresh},
	}
	c := CullingPolicy{Grouping: GroupByLactation, FallbackMonthlyHazard: 0.008}
	c.EstimateFromDataset(animals, reportDate)

	assert.Equal(t, 0.008, c.MonthlyHazardByGroup["L1"])
}

func TestEstimateFromDatasetComputesHazardAboveMinGroupSize(t *testing.T) {
	reportDate := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	var animals []*herd.Animal
	for i := 0; i < 25; i++ {
		animals = append(animals, &herd.Animal{ID: i, Lactation: 2, Status: herd.StatusFresh})
	}
	for i := 25; i < 40; i++ {
		animals = append(animals, &herd.Animal{
			ID: i, Lactation: 2, Status: herd.StatusFresh,
			HasArchiveDate: true, ArchiveDate: reportDate.AddDate(0, -6, 0),
		})
	}
	c := CullingPolicy{Grouping: GroupByLactation, FallbackMonthlyHazard: 0.008}
	c.EstimateFromDataset(animals, reportDate)

	hazard, ok := c.MonthlyHazardByGroup["L2"]
	assert.True(t, ok)
	assert.Greater(t, hazard, 0.0)
	assert.LessOrEqual(t, hazard, maxMonthlyHazard)
}

func TestCombinedDailyHazardForcesCullOnScheduledDay(t *testing.T) {
	c := CullingPolicy{
		Grouping:             GroupByLactation,
		MonthlyHazardByGroup: map[string]float64{"L1": 0.0},
		PopulationRegulation: 1.0,
	}
	a := &herd.Animal{Lactation: 1}
	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0.0, c.CombinedDailyHazard(a, today, false))
	assert.Equal(t, 1.0, c.CombinedDailyHazard(a, today, true))
}

func TestLactGroupBuckets(t *testing.T) {
	assert.Equal(t, "L0", LactGroup(0))
	assert.Equal(t, "L1", LactGroup(1))
	assert.Equal(t, "L4+", LactGroup(9))
}
