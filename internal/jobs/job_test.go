package jobs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusIsTerminal(t *testing.T) {
	require.False(t, StatusQueued.IsTerminal())
	require.False(t, StatusRunning.IsTerminal())
	require.True(t, StatusSucceeded.IsTerminal())
	require.True(t, StatusFailed.IsTerminal())
	require.True(t, StatusCanceled.IsTerminal())
}
