package datasets

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateHeaderRejectsMissingColumn(t *testing.T) {
	err := validateHeader([]string{"animal_id", "birth_date", "status"})
	require.Error(t, err)
}

func TestValidateHeaderAcceptsRequiredColumnsCaseInsensitive(t *testing.T) {
	err := validateHeader([]string{"Animal_ID", "Birth_Date", "Status", "Lactation"})
	require.NoError(t, err)
}

func TestParseCSVSplitsHeaderAndRows(t *testing.T) {
	raw := []byte("animal_id,birth_date,status,lactation\n1,2023-01-01,FRESH,2\n2,2023-02-01,HEIFER,0\n")
	rows, header, err := parseCSV(raw)
	require.NoError(t, err)
	require.Equal(t, []string{"animal_id", "birth_date", "status", "lactation"}, header)
	require.Len(t, rows, 2)
}

func TestToSourceRowsParsesOptionalDates(t *testing.T) {
	header := []string{"animal_id", "birth_date", "status", "lactation", "last_calving"}
	rows := [][]string{
		{"1", "2020-01-01", "FRESH", "2", "2026-01-01"},
		{"2", "2023-01-01", "HEIFER", "0", ""},
	}
	out, err := toSourceRows(rows, header)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.True(t, out[0].HasLastCalving)
	require.False(t, out[1].HasLastCalving)
}

func TestToSourceRowsRejectsInvalidAnimalID(t *testing.T) {
	header := []string{"animal_id", "birth_date", "status", "lactation"}
	rows := [][]string{{"not-a-number", "2020-01-01", "FRESH", "1"}}
	_, err := toSourceRows(rows, header)
	require.Error(t, err)
}
