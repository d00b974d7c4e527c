package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// MeasurementEvent describes one step of a protocol run
type MeasurementEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	RequestID      string                 `json:"request_id,omitempty"`
	Protocol       string                 `json:"protocol,omitempty"`
	Source         string                 `json:"source,omitempty"` // image URL, or "upload"
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of measurement event
type EventType string

const (
	MeasurementStarted   EventType = "measurement_started"
	MeasurementCompleted EventType = "measurement_completed"
	MeasurementFailed    EventType = "measurement_failed"
	ImageFetched         EventType = "image_fetched"
	ImageFetchFailed     EventType = "image_fetch_failed"
)

// Metadata keys set by the measurement service
const (
	MetaMarkersDetected   = "markers_detected"
	MetaLandmarksExpected = "landmarks_expected"
	MetaTopologyVersion   = "topology_version"
	MetaErrorType         = "error_type"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event MeasurementEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event MeasurementEvent)
}

// LoggingObserver logs measurement events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent logs the event at a level matching its outcome
func (o *LoggingObserver) OnEvent(ctx context.Context, event MeasurementEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"protocol":        event.Protocol,
		"source":          event.Source,
		"processing_time": event.ProcessingTime.Seconds(),
		"success":         event.Success,
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case MeasurementStarted:
		entry.Debug("Measurement started")
	case MeasurementCompleted:
		entry.Info("Measurement completed")
	case MeasurementFailed:
		entry.Warn("Measurement failed")
	case ImageFetched:
		entry.Debug("Image fetched successfully")
	case ImageFetchFailed:
		entry.Error("Image fetch failed")
	default:
		entry.Info("Measurement event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsSnapshot is the JSON body served on /metrics
type MetricsSnapshot struct {
	TotalMeasurements      int64            `json:"total_measurements"`
	SuccessfulMeasurements int64            `json:"successful_measurements"`
	FailedMeasurements     int64            `json:"failed_measurements"`
	PartialDetections      int64            `json:"partial_detections"`
	ImageFetchFailures     int64            `json:"image_fetch_failures"`
	ByProtocol             map[string]int64 `json:"by_protocol"`
	AvgProcessingTimeSec   float64          `json:"avg_processing_time_sec"`
	TotalProcessingTimeSec float64          `json:"total_processing_time_sec"`
}

// MetricsObserver aggregates counters from measurement events
type MetricsObserver struct {
	mu                     sync.RWMutex
	totalMeasurements      int64
	successfulMeasurements int64
	failedMeasurements     int64
	partialDetections      int64
	imageFetchFailures     int64
	byProtocol             map[string]int64
	totalProcessingTime    time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{byProtocol: make(map[string]int64)}
}

// OnEvent updates the counters
func (o *MetricsObserver) OnEvent(ctx context.Context, event MeasurementEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case MeasurementStarted:
		o.totalMeasurements++
		if event.Protocol != "" {
			o.byProtocol[event.Protocol]++
		}
	case MeasurementCompleted:
		o.successfulMeasurements++
		o.totalProcessingTime += event.ProcessingTime
		if isPartial(event.Metadata) {
			o.partialDetections++
		}
	case MeasurementFailed:
		o.failedMeasurements++
	case ImageFetchFailed:
		o.imageFetchFailures++
	}
}

func isPartial(meta map[string]interface{}) bool {
	detected, ok1 := meta[MetaMarkersDetected].(int)
	expected, ok2 := meta[MetaLandmarksExpected].(int)
	return ok1 && ok2 && detected < expected
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns a copy of the current counters
func (o *MetricsObserver) GetMetrics() MetricsSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	byProtocol := make(map[string]int64, len(o.byProtocol))
	for k, v := range o.byProtocol {
		byProtocol[k] = v
	}

	snapshot := MetricsSnapshot{
		TotalMeasurements:      o.totalMeasurements,
		SuccessfulMeasurements: o.successfulMeasurements,
		FailedMeasurements:     o.failedMeasurements,
		PartialDetections:      o.partialDetections,
		ImageFetchFailures:     o.imageFetchFailures,
		ByProtocol:             byProtocol,
		TotalProcessingTimeSec: o.totalProcessingTime.Seconds(),
	}
	if o.successfulMeasurements > 0 {
		snapshot.AvgProcessingTimeSec = snapshot.TotalProcessingTimeSec / float64(o.successfulMeasurements)
	}
	return snapshot
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	inflight  sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer by name
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers event to every observer on its own goroutine
func (p *EventPublisher) NotifyObservers(ctx context.Context, event MeasurementEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	// observers must not be tied to the request lifetime
	ctx = context.WithoutCancel(ctx)
	for _, observer := range observers {
		p.inflight.Add(1)
		go func(obs Observer) {
			defer p.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}

// Wait blocks until all dispatched notifications have been handled
func (p *EventPublisher) Wait() {
	p.inflight.Wait()
}
