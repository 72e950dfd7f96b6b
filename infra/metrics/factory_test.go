package metrics

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/bessarb/core/factory"
	coremetrics "github.com/kilianp07/bessarb/core/metrics"
	"github.com/kilianp07/bessarb/infra/store"
)

func TestRegisteredSinks(t *testing.T) {
	s, err := coremetrics.NewSink([]factory.ModuleConfig{{Type: "nop"}})
	require.NoError(t, err)
	assert.IsType(t, coremetrics.NopSink{}, s)

	s, err = coremetrics.NewSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "prometheus", Conf: map[string]any{"job": "test"}}})
	require.NoError(t, err)
	multi, ok := s.(*coremetrics.MultiSink)
	require.True(t, ok)
	require.Len(t, multi.Sinks, 2)
	prom, ok := multi.Sinks[1].(*PromSink)
	require.True(t, ok)
	assert.Equal(t, "test", prom.cfg.Job)
	assert.NoError(t, multi.Close())

	_, err = coremetrics.NewSink([]factory.ModuleConfig{{Type: "mqtt", Conf: map[string]any{}}})
	assert.Error(t, err)
}

func TestRegisteredSinks_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.db")
	s, err := coremetrics.NewSink([]factory.ModuleConfig{{Type: "sqlite", Conf: map[string]any{"path": path}}})
	require.NoError(t, err)
	_, ok := s.(*store.SQLiteStore)
	assert.True(t, ok)
	assert.NoError(t, coremetrics.Close(s))
	assert.FileExists(t, path)
}
