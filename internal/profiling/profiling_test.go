package profiling

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/webloader/internal/logger"
)

func TestStartPyroscope_Disabled(t *testing.T) {
	t.Setenv(envPyroscopeEnabled, "")

	profiler, err := StartPyroscope("webloader", "dev", logger.NewNop())
	require.NoError(t, err)
	assert.Nil(t, profiler)
}

func TestProfiler_StopNilSafe(t *testing.T) {
	var p *Profiler
	assert.NoError(t, p.Stop())
}

func TestStartPprofServer_Disabled(t *testing.T) {
	t.Setenv(envPprofEnabled, "")

	// Must be a no-op when disabled; nothing to assert beyond not
	// panicking and not blocking.
	StartPprofServer(logger.NewNop())
}
