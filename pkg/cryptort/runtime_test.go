package cryptort

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func TestInitShutdown(t *testing.T) {
	rt, err := Init()
	require.NoError(t, err)
	require.NoError(t, rt.Check())

	rt.Shutdown()
	rt.Shutdown()
	require.ErrorIs(t, rt.Check(), ErrShutdown)
}

func TestInitBadEntropy(t *testing.T) {
	_, err := Init(WithRand(brokenReader{}))
	require.ErrorIs(t, err, ErrEntropy)
}

func TestClock(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rt, err := Init(WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)
	require.Equal(t, fixed, rt.Now())
}

func TestNilRuntime(t *testing.T) {
	var rt *Runtime
	require.Error(t, rt.Check())
}
