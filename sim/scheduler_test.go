package sim

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/mpm/systems"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stage(id string, run func(*systems.State), deps ...string) systems.Stage {
	return systems.Stage{SystemInfo: systems.SystemInfo{ID: id, DependsOn: deps}, Run: run}
}

func TestScheduler_DefaultPipelineWaves(t *testing.T) {
	s, err := NewScheduler(systems.NewSystemRegistry().Pipeline(), quietLogger())
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{systems.StageStepCounter, systems.StageCleanGrid},
		{systems.StageP2G},
		{systems.StageGridM2V},
		{systems.StageApplyGravity},
		{systems.StageApplyElasticity},
		{systems.StageApplyFriction},
		{systems.StageGridF2V},
		{systems.StageGridSetBoundary},
		{systems.StageEvolveDeformation, systems.StageG2P},
	}, s.Waves())
}

func TestScheduler_RunsInDependencyOrder(t *testing.T) {
	var clock atomic.Int64
	var started, finished [4]atomic.Int64
	record := func(slot int) func(*systems.State) {
		return func(*systems.State) {
			started[slot].Store(clock.Add(1))
			finished[slot].Store(clock.Add(1))
		}
	}

	const a, b, c, d = 0, 1, 2, 3
	s, err := NewScheduler([]systems.Stage{
		stage("d", record(d), "b", "c"),
		stage("b", record(b), "a"),
		stage("c", record(c), "a"),
		stage("a", record(a)),
	}, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"a"}, {"b", "c"}, {"d"}}, s.Waves())

	s.Run(&systems.State{})
	assert.Less(t, finished[a].Load(), started[b].Load())
	assert.Less(t, finished[a].Load(), started[c].Load())
	assert.Less(t, finished[b].Load(), started[d].Load())
	assert.Less(t, finished[c].Load(), started[d].Load())

	assert.Len(t, s.Durations(), 4)
}

func TestScheduler_InvalidGraphs(t *testing.T) {
	noop := func(*systems.State) {}
	tests := []struct {
		name   string
		stages []systems.Stage
	}{
		{"unknown dependency", []systems.Stage{stage("a", noop, "missing")}},
		{"cycle", []systems.Stage{stage("a", noop, "c"), stage("b", noop, "a"), stage("c", noop, "b")}},
		{"self loop", []systems.Stage{stage("a", noop, "a")}},
		{"duplicate", []systems.Stage{stage("a", noop), stage("a", noop)}},
		{"missing kernel", []systems.Stage{stage("a", nil)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScheduler(tt.stages, quietLogger())
			assert.ErrorIs(t, err, ErrInvalidPipeline)
		})
	}
}

func TestScheduler_StagePanic(t *testing.T) {
	s, err := NewScheduler([]systems.Stage{
		stage("ok", func(*systems.State) {}),
		stage("bad", func(*systems.State) { panic("boom") }),
		stage("after", func(*systems.State) { t.Error("dependent stage ran after a panic") }, "bad"),
	}, quietLogger())
	require.NoError(t, err)

	defer func() {
		r := recover()
		sp, ok := r.(*StagePanic)
		require.True(t, ok, "got %T", r)
		assert.Equal(t, "bad", sp.Stage)
		assert.Equal(t, "boom", sp.Value)
	}()
	s.Run(&systems.State{})
}
