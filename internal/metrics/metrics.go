package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"Guanfancy/internal/model"
)

// Recorder receives bot events.
type Recorder interface {
	SetZone(z model.Zone)
	IncReminder(kind string)
	IncCommand(command string)
	IncIntakeEvent(event string)
}

// Reminder kinds.
const (
	ReminderIntake     = "intake"
	ReminderFeedback   = "feedback"
	ReminderZoneChange = "zone_change"
	ReminderDaily      = "daily"
)

// Intake events.
const (
	EventTaken      = "taken"
	EventFeedback   = "feedback"
	EventManual     = "manual"
	EventReschedule = "reschedule"
)

type Metrics struct {
	registry     *prometheus.Registry
	zone         prometheus.Gauge
	reminders    *prometheus.CounterVec
	commands     *prometheus.CounterVec
	intakeEvents *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		zone: factory.NewGauge(prometheus.GaugeOpts{
			Name: "guanfancy_current_zone",
			Help: "Current food zone: 0 red, 1 yellow, 2 green",
		}),
		reminders: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guanfancy_reminders_sent_total",
			Help: "Notifications sent by kind",
		}, []string{"kind"}),
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guanfancy_commands_total",
			Help: "Chat commands received",
		}, []string{"command"}),
		intakeEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "guanfancy_intake_events_total",
			Help: "Intake state changes by event",
		}, []string{"event"}),
	}
}

func (m *Metrics) SetZone(z model.Zone)        { m.zone.Set(float64(z)) }
func (m *Metrics) IncReminder(kind string)     { m.reminders.WithLabelValues(kind).Inc() }
func (m *Metrics) IncCommand(command string)   { m.commands.WithLabelValues(command).Inc() }
func (m *Metrics) IncIntakeEvent(event string) { m.intakeEvents.WithLabelValues(event).Inc() }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Noop discards everything; used when metrics are disabled.
type Noop struct{}

func (Noop) SetZone(model.Zone)    {}
func (Noop) IncReminder(string)    {}
func (Noop) IncCommand(string)     {}
func (Noop) IncIntakeEvent(string) {}

var (
	_ Recorder = (*Metrics)(nil)
	_ Recorder = Noop{}
)
