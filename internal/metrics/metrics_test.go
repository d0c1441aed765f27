package metrics

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err, "second registration collides")
}

func TestObserveMutation(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)

	m.ObserveMutation("account-create", time.Millisecond, nil)
	m.ObserveMutation("account-create", time.Millisecond, errors.New("x"))
	m.ObserveMutation("account-create", time.Millisecond, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Mutations.WithLabelValues("account-create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Mutations.WithLabelValues("account-create", "error")))
}

func TestBatchAndImportGauges(t *testing.T) {
	m, err := New(nil)
	require.NoError(t, err)

	m.BatchStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BatchOpen))
	m.BatchEnded("messages", nil)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BatchOpen))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Batches.WithLabelValues("messages", "ok")))

	m.ImportTransition("start", true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Importing))
	m.ImportTransition("abort", false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Importing))

	m.SyncEvent("sent")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SyncEvents.WithLabelValues("sent")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveMutation("op", time.Second, nil)
		m.SyncEvent("sent")
		m.BatchStarted()
		m.BatchEnded("import", nil)
		m.ImportTransition("start", true)
	})
}

func TestWriteText(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)
	m.ObserveMutation("payee-create", time.Millisecond, nil)
	m.ImportTransition("start", true)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, reg))
	out := buf.String()
	assert.Contains(t, out, "# HELP budgetsync_mutations_total Mutating operations by operation and result.")
	assert.Contains(t, out, `budgetsync_mutations_total{op="payee-create",result="ok"} 1`)
	assert.Contains(t, out, `budgetsync_import_transitions_total{transition="start"} 1`)
	assert.Contains(t, out, "budgetsync_importing 1")
	assert.Contains(t, out, "budgetsync_batch_open 0")
}
