package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iburimskiy/synapse-field/internal/sim"
)

// FrameCollector bundles Prometheus metrics fed once per frame by either
// backend.
type FrameCollector struct {
	gatherer prometheus.Gatherer

	Frames         *prometheus.CounterVec
	PhaseDurations *prometheus.HistogramVec

	Particles  prometheus.Gauge
	Edges      prometheus.Gauge
	Pulses     prometheus.Gauge
	Glows      prometheus.Gauge
	ChimeLevel prometheus.Gauge

	Arrivals prometheus.Counter
	Dropped  prometheus.Counter
	Replaced prometheus.Counter
	Formed   prometheus.Counter
	Excited  prometheus.Counter
	Resets   prometheus.Counter
}

// NewFrameCollector registers frame metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewFrameCollector(reg prometheus.Registerer) (*FrameCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	frames, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "synapse_frames_total",
		Help: "Frames stepped, labeled by backend.",
	}, []string{"backend"}), "synapse_frames_total")
	if err != nil {
		return nil, err
	}

	phases, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "synapse_frame_phase_seconds",
		Help:    "Time spent per frame phase (step or draw), labeled by backend.",
		Buckets: []float64{0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.033, 0.066},
	}, []string{"backend", "phase"}), "synapse_frame_phase_seconds")
	if err != nil {
		return nil, err
	}

	c := &FrameCollector{
		gatherer:       gatherer,
		Frames:         frames,
		PhaseDurations: phases,
	}

	gauges := []struct {
		dst        *prometheus.Gauge
		name, help string
	}{
		{&c.Particles, "synapse_particles", "Live particles."},
		{&c.Edges, "synapse_edges", "Live edges."},
		{&c.Pulses, "synapse_pulses", "Pulses in flight."},
		{&c.Glows, "synapse_glows", "Edge-formation glows still showing."},
		{&c.ChimeLevel, "synapse_chime_level", "RMS level of the most recent chime output."},
	}
	for _, g := range gauges {
		gauge, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{Name: g.name, Help: g.help}), g.name)
		if err != nil {
			return nil, err
		}
		*g.dst = gauge
	}

	counters := []struct {
		dst        *prometheus.Counter
		name, help string
	}{
		{&c.Arrivals, "synapse_pulse_arrivals_total", "Pulses that reached their destination."},
		{&c.Dropped, "synapse_pulses_dropped_total", "Pulses refused because the live pulse cap was reached."},
		{&c.Replaced, "synapse_particles_replaced_total", "Particles retired and respawned."},
		{&c.Formed, "synapse_edges_formed_total", "Edges formed, including repairs."},
		{&c.Excited, "synapse_clicks_excited_total", "Clicks that hit a particle."},
		{&c.Resets, "synapse_population_resets_total", "Population resets caused by a tier change."},
	}
	for _, ct := range counters {
		counter, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{Name: ct.name, Help: ct.help}), ct.name)
		if err != nil {
			return nil, err
		}
		*ct.dst = counter
	}

	return c, nil
}

// ObserveStep records the outcome of one simulation step.
func (c *FrameCollector) ObserveStep(backend string, st sim.Stats, took time.Duration) {
	if c == nil {
		return
	}
	c.Frames.WithLabelValues(backend).Inc()
	c.PhaseDurations.WithLabelValues(backend, "step").Observe(took.Seconds())

	c.Particles.Set(float64(st.Particles))
	c.Edges.Set(float64(st.Edges))
	c.Pulses.Set(float64(st.Pulses))
	c.Glows.Set(float64(st.Glows))

	c.Arrivals.Add(float64(len(st.Arrivals)))
	c.Dropped.Add(float64(st.Dropped))
	c.Replaced.Add(float64(st.Replaced))
	c.Formed.Add(float64(st.Formed))
	if st.Excited {
		c.Excited.Inc()
	}
}

func (c *FrameCollector) ObserveDraw(backend string, took time.Duration) {
	if c == nil {
		return
	}
	c.PhaseDurations.WithLabelValues(backend, "draw").Observe(took.Seconds())
}

func (c *FrameCollector) ObserveReset() {
	if c == nil {
		return
	}
	c.Resets.Inc()
}

func (c *FrameCollector) SetChimeLevel(v float64) {
	if c == nil {
		return
	}
	c.ChimeLevel.Set(v)
}

// Handler exposes a ready-to-use /metrics handler.
func (c *FrameCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
