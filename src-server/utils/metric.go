package utils

type Metric struct {
	DatabaseRead         chan float64
	DatabaseWrite        chan float64
	OccurrencesProjected chan float64
}

func NewMetric() *Metric {
	return &Metric{
		DatabaseRead:         make(chan float64, 16),
		DatabaseWrite:        make(chan float64, 16),
		OccurrencesProjected: make(chan float64, 16),
	}
}

// Report sends v without blocking; samples are dropped when nobody reads.
// A nil Metric is a no-op so stores and services work without metrics.
func (m *Metric) Report(pick func(*Metric) chan float64, v float64) {
	if m == nil {
		return
	}
	select {
	case pick(m) <- v:
	default:
	}
}

func DatabaseRead(m *Metric) chan float64         { return m.DatabaseRead }
func DatabaseWrite(m *Metric) chan float64        { return m.DatabaseWrite }
func OccurrencesProjected(m *Metric) chan float64 { return m.OccurrencesProjected }
