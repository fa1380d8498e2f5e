package forecasterr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromWrapsPlainError(t *testing.T) {
	e := From(errors.New("boom"))
	require.Equal(t, CodeInternalError, e.Code)
	require.Equal(t, "boom", e.Detail)
}

func TestFromPassesThroughOwnType(t *testing.T) {
	orig := JobNotFound("abc")
	got := From(orig)
	require.Same(t, orig, got)
}

func TestErrorStringFormat(t *testing.T) {
	e := New(CodeJobNotReady, "not ready")
	require.Equal(t, "JOB_NOT_READY: not ready", e.Error())
}
