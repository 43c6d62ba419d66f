package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCreated("issues")
	c.RecordCreated("issues")
	c.RecordCreated("issues.notes")
	c.RecordFailure("issues.notes", "permanent")
	c.RecordSkipped("ci_pipelines")
	c.RecordNotice("unresolved_identity")
	c.RecordReused("label")
	c.ObserveRestore("success", 250*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.created.WithLabelValues("issues")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.created.WithLabelValues("issues.notes")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.failures.WithLabelValues("issues.notes", "permanent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.skipped.WithLabelValues("ci_pipelines")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.notices.WithLabelValues("unresolved_identity")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.reused.WithLabelValues("label")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.duration))
}

func TestWriteFile(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordCreated("issues")

	path := filepath.Join(t.TempDir(), "restore.prom")
	require.NoError(t, WriteFile(reg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), `treeport_records_created_total{relation="issues"} 1`))
}

func TestNopSatisfiesRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.RecordCreated("issues")
	r.ObserveRestore("failed", time.Second)
}
