package artifacts

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArtifactKeyLayout(t *testing.T) {
	require.Equal(t, "datasets/abc.csv", DatasetKey("abc"))
	require.Equal(t, "results/job-1.json", ResultKey("job-1"))
	require.Equal(t, "exports/job-1.csv", CSVExportKey("job-1"))
	require.Equal(t, "exports/job-1.xlsx", XLSXExportKey("job-1"))
}
