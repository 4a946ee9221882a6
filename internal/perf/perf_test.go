package perf

import (
	"context"
	"math"
	"testing"

	"github.com/go-logr/logr"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusNilBeforeFirstPoll(t *testing.T) {
	var p PerfS
	assert.Nil(t, p.Status())
}

func TestPollReportsOutputFilesystem(t *testing.T) {
	dir := t.TempDir()
	p := PerfS{log: logr.Discard(), dir: dir}

	viper.Set("perf.minfree", uint64(math.MaxUint64))
	t.Cleanup(func() { viper.Set("perf.minfree", 100*1024*1024) })
	p.Poll(context.Background())

	got, ok := p.Status().(DiskStats)
	require.True(t, ok)
	assert.Equal(t, dir, got.Path)
	assert.NotZero(t, got.Total)
	assert.True(t, got.Low)
	assert.False(t, got.Updated.IsZero())
}

func TestPollUnknownPathKeepsPreviousStats(t *testing.T) {
	p := PerfS{log: logr.Discard(), dir: "/linelogger/does/not/exist"}
	p.Poll(context.Background())
	assert.Nil(t, p.Status())
}

func TestDisabled(t *testing.T) {
	viper.Set("perf.enabled", false)
	t.Cleanup(func() { viper.Set("perf.enabled", true) })

	var p PerfS
	require.NoError(t, p.Start(logr.Discard()))
	assert.Nil(t, p.Status())
	p.Stop()
}
