package metric

import (
	"log/slog"
	"time"

	"duocal/src-server/utils"

	"github.com/prometheus/client_golang/prometheus"
)

// newGauge registers a gauge, reusing one that is already registered under
// the same name.
func newGauge(reg prometheus.Registerer, name string, help string) prometheus.Gauge {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing
			}
		}
		slog.Error("can't register metric", "name", name, "error", err)
		return gauge
	}
	slog.Debug("metric registered", "name", name)
	gauge.Set(0)
	return gauge
}

func unregister(reg prometheus.Registerer, name string, gauge prometheus.Gauge) {
	switch reg.Unregister(gauge) {
	case true:
		slog.Debug("metric unregistered", "name", name)
	case false:
		slog.Warn("metric not registered", "name", name)
	}
}

// Sample the database latency every tickerInterval.
func databaseEmptyRead(as *utils.AppState, reg prometheus.Registerer, tickerInterval time.Duration) {
	const name = "duocal_database_empty_read_microsec"
	gauge := newGauge(reg, name, "The latency of an empty database read in microseconds")
	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		ticker := time.NewTicker(tickerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-*gracefulShutdownCh:
				unregister(reg, name, gauge)
				return
			case <-ticker.C:
				latency, err := database(as)
				if err != nil {
					slog.Error("can't get database latency", "error", err)
					continue
				}
				gauge.Set(float64(latency.Microseconds()))
			}
		}
	}()
}

// Mirror the last value reported on ch, dropping back to 0 after
// clearTickerInterval without reports.
func reported(as *utils.AppState, reg prometheus.Registerer, name string, help string, ch chan float64, clearTickerInterval time.Duration) {
	gauge := newGauge(reg, name, help)
	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		clearTicker := time.NewTicker(clearTickerInterval)
		defer clearTicker.Stop()
		for {
			select {
			case <-*gracefulShutdownCh:
				unregister(reg, name, gauge)
				return
			case value := <-ch:
				gauge.Set(value)
				clearTicker.Reset(clearTickerInterval)
			case <-clearTicker.C:
				gauge.Set(0)
			}
		}
	}()
}

func Init(as *utils.AppState, reg prometheus.Registerer) {
	tickerInterval := as.Config.GetMetricCollectionInterval()
	clearTickerInterval := as.Config.GetMetricCollectionInterval() * 2

	databaseEmptyRead(as, reg, tickerInterval)
	reported(as, reg, "duocal_database_read_microsec",
		"The latency of a database read in microseconds",
		as.MetricChans.DatabaseRead, clearTickerInterval)
	reported(as, reg, "duocal_database_write_microsec",
		"The latency of a database write in microseconds",
		as.MetricChans.DatabaseWrite, clearTickerInterval)
	reported(as, reg, "duocal_occurrences_projected",
		"The number of occurrences returned by the last listing",
		as.MetricChans.OccurrencesProjected, clearTickerInterval)
}
