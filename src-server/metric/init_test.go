package metric_test

import (
	"context"
	"testing"
	"time"

	"duocal/src-server/metric"
	"duocal/src-server/model"
	"duocal/src-server/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) (float64, bool) {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name && len(family.GetMetric()) > 0 {
			return family.GetMetric()[0].GetGauge().GetValue(), true
		}
	}
	return 0, false
}

func TestInit(t *testing.T) {
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("METRIC_COLLECTION_INTERVAL", "20ms")

	db, err := utils.OpenDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, model.CreateSchema(context.Background(), db))

	as := &utils.AppState{
		Config:      utils.NewConfig(),
		BunDB:       db,
		MetricChans: utils.NewMetric(),
	}
	reg := prometheus.NewRegistry()
	metric.Init(as, reg)

	as.MetricChans.DatabaseWrite <- 42
	assert.Eventually(t, func() bool {
		v, ok := gaugeValue(t, reg, "duocal_database_write_microsec")
		return ok && v == 42
	}, time.Second, 5*time.Millisecond)

	// the empty read runs on its own ticker
	assert.Eventually(t, func() bool {
		v, ok := gaugeValue(t, reg, "duocal_database_empty_read_microsec")
		return ok && v > 0
	}, time.Second, 5*time.Millisecond)

	as.GracefulShutdown()
	assert.Eventually(t, func() bool {
		families, err := reg.Gather()
		return err == nil && len(families) == 0
	}, time.Second, 5*time.Millisecond)
}
