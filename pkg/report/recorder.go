package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/picogrid/fragment-simulations/pkg/logger"
	"github.com/picogrid/fragment-simulations/pkg/potential"
)

// Recorder keeps the events and metric histories of one run
type Recorder struct {
	runID     uuid.UUID
	runType   string
	startTime time.Time
	endTime   time.Time
	status    string
	energy    *potential.Energy
	events    []Event
	metrics   map[string]Metric
	w         io.Writer
	mu        sync.RWMutex
}

// Event is one recorded occurrence during a run
type Event struct {
	Timestamp time.Time              `yaml:"timestamp" json:"timestamp"`
	Type      string                 `yaml:"type" json:"type"`
	Severity  string                 `yaml:"severity" json:"severity"`
	Step      int                    `yaml:"step" json:"step"`
	Message   string                 `yaml:"message" json:"message"`
	Details   map[string]interface{} `yaml:"details,omitempty" json:"details,omitempty"`
}

// Metric is a tracked scalar and its per-step history
type Metric struct {
	Name        string        `yaml:"name" json:"name"`
	Value       float64       `yaml:"value" json:"value"`
	Unit        string        `yaml:"unit" json:"unit"`
	LastUpdated time.Time     `yaml:"last_updated" json:"last_updated"`
	History     []MetricPoint `yaml:"history" json:"history"`
}

// MetricPoint is a metric value at one step
type MetricPoint struct {
	Step  int     `yaml:"step" json:"step"`
	Value float64 `yaml:"value" json:"value"`
}

const (
	EventTypeStart      = "start"
	EventTypeStep       = "step"
	EventTypeConverged  = "converged"
	EventTypeStepLimit  = "step_limit"
	EventTypeEvaluation = "evaluation"
	EventTypeError      = "error"
	EventTypeFinish     = "finish"
)

const (
	SeverityDebug   = "debug"
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Final run states
const (
	StatusRunning          = "running"
	StatusCompleted        = "completed"
	StatusConverged        = "converged"
	StatusStepLimitReached = "step_limit_reached"
	StatusFailed           = "failed"
)

const maxHistory = 100000

var (
	colorDebug   = color.New(color.FgHiBlack)
	colorInfo    = color.New(color.FgCyan)
	colorWarning = color.New(color.FgYellow)
	colorError   = color.New(color.FgRed)
	colorSuccess = color.New(color.FgGreen, color.Bold)
)

// NewRecorder starts recording a run of the given type. Milestones are
// echoed to stderr.
func NewRecorder(runType string) *Recorder {
	return NewRecorderTo(runType, os.Stderr)
}

// NewRecorderTo is NewRecorder echoing milestones to w. A nil w disables
// the echo.
func NewRecorderTo(runType string, w io.Writer) *Recorder {
	r := &Recorder{
		runID:     uuid.New(),
		runType:   runType,
		startTime: time.Now(),
		status:    StatusRunning,
		metrics:   make(map[string]Metric),
		w:         w,
	}

	r.logEvent(Event{
		Type:     EventTypeStart,
		Severity: SeverityInfo,
		Message:  fmt.Sprintf("%s run started", runType),
	})
	r.echo(SeverityInfo, "Run Started",
		fmt.Sprintf("ID: %s | Type: %s", r.runID.String()[:8], runType))

	return r
}

// RunID identifies the run
func (r *Recorder) RunID() uuid.UUID {
	return r.runID
}

// LogStep records the status of one iteration
func (r *Recorder) LogStep(step int, message string, details map[string]interface{}) {
	r.logEvent(Event{
		Type:     EventTypeStep,
		Severity: SeverityDebug,
		Step:     step,
		Message:  message,
		Details:  details,
	})
}

// LogEvaluation records a single engine evaluation outside an iteration
func (r *Recorder) LogEvaluation(message string, details map[string]interface{}) {
	r.logEvent(Event{
		Type:     EventTypeEvaluation,
		Severity: SeverityDebug,
		Message:  message,
		Details:  details,
	})
}

// Finish records the final status of the run
func (r *Recorder) Finish(step int, status string, message string) {
	eventType, severity := EventTypeFinish, SeverityInfo
	switch status {
	case StatusConverged:
		eventType = EventTypeConverged
	case StatusStepLimitReached:
		eventType, severity = EventTypeStepLimit, SeverityWarning
	case StatusFailed:
		eventType, severity = EventTypeError, SeverityError
	}

	r.logEvent(Event{
		Type:     eventType,
		Severity: severity,
		Step:     step,
		Message:  message,
	})

	r.mu.Lock()
	r.status = status
	r.endTime = time.Now()
	r.mu.Unlock()

	r.echo(severity, "Run Finished", fmt.Sprintf("Status: %s | %s", status, message))
}

// LogError records a failure and marks the run failed
func (r *Recorder) LogError(message string, err error) {
	r.logEvent(Event{
		Type:     EventTypeError,
		Severity: SeverityError,
		Message:  message,
		Details:  map[string]interface{}{"error": err.Error()},
	})

	r.mu.Lock()
	r.status = StatusFailed
	r.endTime = time.Now()
	r.mu.Unlock()

	logger.Errorf("%s: %v", message, err)
}

// RecordEnergy keeps en as the latest energy of the run and appends its
// total to the energy metric
func (r *Recorder) RecordEnergy(step int, en potential.Energy) {
	r.mu.Lock()
	r.energy = &en
	r.mu.Unlock()

	r.UpdateMetric("energy", step, en.Total, "hartree")
}

// Energy returns the latest recorded energy
func (r *Recorder) Energy() (potential.Energy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.energy == nil {
		return potential.Energy{}, false
	}
	return *r.energy, true
}

// UpdateMetric records the value of a metric at a step
func (r *Recorder) UpdateMetric(name string, step int, value float64, unit string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	metric, exists := r.metrics[name]
	if !exists {
		metric = Metric{Name: name, Unit: unit}
	}

	metric.Value = value
	metric.LastUpdated = time.Now()
	metric.History = append(metric.History, MetricPoint{Step: step, Value: value})
	if len(metric.History) > maxHistory {
		metric.History = metric.History[len(metric.History)-maxHistory:]
	}

	r.metrics[name] = metric
}

// Status returns the current run status
func (r *Recorder) Status() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Events returns all recorded events
func (r *Recorder) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]Event, len(r.events))
	copy(events, r.events)
	return events
}

// Metrics returns the tracked metrics sorted by name
func (r *Recorder) Metrics() []Metric {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metrics := make([]Metric, 0, len(r.metrics))
	for _, m := range r.metrics {
		metrics = append(metrics, m)
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i].Name < metrics[j].Name })
	return metrics
}

// Metric returns one tracked metric
func (r *Recorder) Metric(name string) (Metric, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.metrics[name]
	return m, ok
}

func (r *Recorder) logEvent(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
	if len(r.events) > maxHistory {
		r.events = r.events[len(r.events)-maxHistory:]
	}
}

func (r *Recorder) echo(severity, title, message string) {
	if r.w == nil {
		return
	}

	var c *color.Color
	switch severity {
	case SeverityDebug:
		c = colorDebug
	case SeverityWarning:
		c = colorWarning
	case SeverityError:
		c = colorError
	default:
		c = colorInfo
	}
	if title == "Run Finished" && severity == SeverityInfo {
		c = colorSuccess
	}

	_, _ = fmt.Fprintf(r.w, "[%s] %s %s | %s\n",
		time.Now().Format("15:04:05.000"),
		c.Sprint(fmt.Sprintf("%-8s", severity)),
		title,
		message)
}
