package api

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/roach88/budgetsync/internal/data"
	"github.com/roach88/budgetsync/internal/metrics"
)

func TestMutate_BroadcastsToOtherClients(t *testing.T) {
	f := createTestServer(t, 2)
	f.createTestBudget(t)
	ctx := context.Background()

	_, err := f.srv.CreatePayee(ctx, Payee{Name: "Grocer"})
	require.NoError(t, err)

	for _, c := range f.conns {
		assert.Equal(t, [][]string{{"payees"}}, syncTables(t, c.Drain()), c.ID())
	}
}

func TestMutate_ListsEveryDatasetWritten(t *testing.T) {
	f := createTestServer(t, 3)
	f.createTestBudget(t)
	ctx := context.Background()

	_, err := f.srv.CreateAccount(ctx, NewAccount{Name: "Checking", InitialBalance: 1000})
	require.NoError(t, err)

	got := syncTables(t, f.conns[0].Drain())
	assert.Equal(t, [][]string{{"accounts", "payees", "transactions"}}, got)
}

func TestMutate_SingleClientIsNotNotified(t *testing.T) {
	f := createTestServer(t, 1)
	f.createTestBudget(t)
	ctx := context.Background()

	id, err := f.srv.CreatePayee(ctx, Payee{Name: "Grocer"})
	require.NoError(t, err)

	assert.Empty(t, f.conns[0].Drain())
	payees, err := f.srv.Payees(ctx)
	require.NoError(t, err)
	assert.Contains(t, payees, Payee{ID: id, Name: "Grocer"})
}

func TestMutate_FailureIsNotBroadcast(t *testing.T) {
	f := createTestServer(t, 2)
	f.createTestBudget(t)
	name := "Renamed"

	err := f.srv.UpdateAccount(context.Background(), "missing", AccountFields{Name: &name})
	require.ErrorIs(t, err, data.ErrNotFound)

	for _, c := range f.conns {
		assert.Empty(t, c.Drain())
	}
}

func TestMutate_RequiresOpenFile(t *testing.T) {
	f := createTestServer(t, 2)

	_, err := f.srv.CreatePayee(context.Background(), Payee{Name: "Grocer"})
	require.Error(t, err)
	assert.True(t, IsPreconditionError(err))
	assert.Equal(t, "No budget file is open", err.Error())
}

func TestMutate_BroadcastFailureDoesNotFailMutation(t *testing.T) {
	f := createTestServer(t, 2)
	f.createTestBudget(t)
	f.conns[1].Close()

	_, err := f.srv.CreatePayee(context.Background(), Payee{Name: "Grocer"})
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"payees"}}, syncTables(t, f.conns[0].Drain()))
	assert.Equal(t, 1, f.hub.NumClients())
}

func TestMutate_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	f := createTestServer(t, 2, WithMetrics(m), WithTracer(noop.NewTracerProvider().Tracer("test")))
	f.createTestBudget(t)
	ctx := context.Background()

	_, err = f.srv.CreatePayee(ctx, Payee{Name: "Grocer"})
	require.NoError(t, err)
	err = f.srv.DeletePayee(ctx, "missing")
	require.Error(t, err)

	assert.Equal(t, 1.0, promtest.ToFloat64(m.Mutations.WithLabelValues("payee-create", "ok")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Mutations.WithLabelValues("payee-delete", "error")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.SyncEvents.WithLabelValues("sent")))
}
