package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/mpm/config"
)

func TestOutputManager_Disabled(t *testing.T) {
	om, err := NewOutputManager("")
	require.NoError(t, err)
	assert.Nil(t, om)

	// Nil manager methods are no-ops.
	assert.NoError(t, om.WriteStats(StepStats{}))
	assert.NoError(t, om.WritePerf(PerfStats{}, 0))
	assert.NoError(t, om.WriteConfig(config.Defaults()))
	assert.NoError(t, om.Close())
	assert.Equal(t, "", om.Dir())
}

func TestOutputManager_WritesCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	require.NoError(t, err)

	require.NoError(t, om.WriteStats(StepStats{Step: 10, Particles: 3, TotalMass: 1.5}))
	require.NoError(t, om.WriteStats(StepStats{Step: 20, Particles: 3, TotalMass: 1.5}))

	pc := NewPerfCollector(2)
	pc.StartStep()
	pc.RecordPhase(PhaseGather, time.Millisecond)
	pc.EndStep()
	require.NoError(t, om.WritePerf(pc.Stats(), 20))
	require.NoError(t, om.WriteConfig(config.Defaults()))
	require.NoError(t, om.Close())

	data, err := os.ReadFile(filepath.Join(dir, "stats.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3, "one header and two rows")
	assert.True(t, strings.HasPrefix(lines[0], "step,sim_time,particles,total_mass"))
	assert.True(t, strings.HasPrefix(lines[2], "20,"))

	data, err = os.ReadFile(filepath.Join(dir, "perf.csv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "step_end,avg_step_us"))

	_, err = os.Stat(filepath.Join(dir, "config.yaml"))
	assert.NoError(t, err)
}
