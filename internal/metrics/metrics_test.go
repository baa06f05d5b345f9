package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.AuditDropped.Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.AuditDropped))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.AuditDropped))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.UseCaseTotal.WithLabelValues("cascade.apply", "ok").Inc()

	path := filepath.Join(t.TempDir(), "planloom.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `planloom_use_case_total{outcome="ok",use_case="cascade.apply"} 1`)
}
