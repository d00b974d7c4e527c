package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"alignme-measure/internal/analyzer"
	"alignme-measure/internal/calibration"
	apperrors "alignme-measure/internal/errors"
	"alignme-measure/internal/imaging"
	"alignme-measure/internal/landmark"
	"alignme-measure/internal/logger"
	"alignme-measure/internal/measurement"
	"alignme-measure/internal/observer"
	"alignme-measure/internal/repository"
	"alignme-measure/internal/strategy"
	"alignme-measure/internal/topology"
	"alignme-measure/pkg/geometry"
	"alignme-measure/pkg/models"
	"alignme-measure/pkg/validation"
)

// SourceUpload marks images that arrived in the request body
const SourceUpload = "upload"

// ProtocolRequest is one measurement run over an in-memory photograph
type ProtocolRequest struct {
	Protocol  topology.Protocol
	Version   string // empty selects the protocol default
	Image     []byte
	Reference calibration.ReferenceInput
	Detection string // detection strategy name; empty selects the configured default
	DebugMask bool

	RequestID string
	Source    string
}

// MeasurementService runs the detect, sequence, calibrate and measure pipeline
type MeasurementService interface {
	RunProtocol(ctx context.Context, req ProtocolRequest) (*models.MeasurementResult, error)

	// RunProtocolFromURL fetches the photograph first; req.Image is ignored
	RunProtocolFromURL(ctx context.Context, imageURL string, req ProtocolRequest) (*models.MeasurementResult, error)

	Topologies() []*topology.LandmarkTopology
	ValidateImageURL(imageURL string) error
}

// Options configures a measurementService. A nil Strategies falls back to
// strategy.DefaultSelector.
type Options struct {
	Strategies     *strategy.Selector
	FetchTimeout   time.Duration
	MaxImagePixels int64 // 0 selects imaging.DefaultMaxPixels
}

type measurementService struct {
	imageRepo   repository.ImageRepository
	registry    *topology.Registry
	sequencer   landmark.Sequencer
	pool        *analyzer.WorkerPool
	publisher   observer.Subject
	validator   *validation.DetectionValidator
	photo       analyzer.PhotoMetricsCalculator
	opts        Options
	newDetector func(analyzer.DetectionOptions) analyzer.MarkerDetector

	// one shared detector per strategy name; requests with a mask hook get their own
	detectors sync.Map
}

// NewMeasurementService wires the pipeline. The pool must be started by the caller;
// imageRepo and publisher may be nil.
func NewMeasurementService(
	imageRepo repository.ImageRepository,
	registry *topology.Registry,
	sequencer landmark.Sequencer,
	pool *analyzer.WorkerPool,
	publisher observer.Subject,
	opts Options,
) MeasurementService {
	if opts.Strategies == nil {
		opts.Strategies = strategy.DefaultSelector()
	}
	return &measurementService{
		imageRepo:   imageRepo,
		registry:    registry,
		sequencer:   sequencer,
		pool:        pool,
		publisher:   publisher,
		validator:   validation.NewDetectionValidator(),
		photo:       analyzer.NewPhotoMetricsCalculator(),
		opts:        opts,
		newDetector: analyzer.NewMarkerDetector,
	}
}

// pipelineOutput is what a pool job hands back to the waiting request
type pipelineOutput struct {
	result *models.MeasurementResult
	err    error
}

func (s *measurementService) RunProtocol(ctx context.Context, req ProtocolRequest) (*models.MeasurementResult, error) {
	start := time.Now()
	if req.Source == "" {
		req.Source = SourceUpload
	}
	s.publish(ctx, req, observer.MeasurementEvent{EventType: observer.MeasurementStarted})

	result, err := s.dispatch(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		var appErr *apperrors.AppError
		meta := map[string]interface{}{}
		if errors.As(err, &appErr) {
			meta[observer.MetaErrorType] = string(appErr.Type)
		}
		s.publish(ctx, req, observer.MeasurementEvent{
			EventType:      observer.MeasurementFailed,
			ProcessingTime: elapsed,
			ErrorMessage:   err.Error(),
			Metadata:       meta,
		})
		return nil, err
	}

	result.ProcessingTimeSec = elapsed.Seconds()
	s.publish(ctx, req, observer.MeasurementEvent{
		EventType:      observer.MeasurementCompleted,
		ProcessingTime: elapsed,
		Success:        true,
		Metadata: map[string]interface{}{
			observer.MetaMarkersDetected:   result.MarkersDetected,
			observer.MetaLandmarksExpected: result.LandmarksExpected,
			observer.MetaTopologyVersion:   result.TopologyVersion,
		},
	})
	return result, nil
}

// dispatch runs the CPU-bound part on the worker pool. When ctx ends first the
// caller gets a timeout while the job finishes in the background.
func (s *measurementService) dispatch(ctx context.Context, req ProtocolRequest) (*models.MeasurementResult, error) {
	topo, err := s.registry.Get(req.Protocol, req.Version)
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown protocol or version %q/%q", req.Protocol, req.Version), err)
	}

	if req.Reference == nil {
		return nil, apperrors.NewInvalidReferenceError("a calibration reference is required", calibration.ErrInvalidReference)
	}
	scale, err := req.Reference.Scale()
	if err != nil {
		return nil, apperrors.NewInvalidReferenceError("calibration reference is degenerate", err)
	}

	detection, err := s.opts.Strategies.Resolve(req.Detection)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid detection strategy", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewTimeoutError("request ended before processing", err)
	}

	done := make(chan pipelineOutput, 1)
	err = s.pool.SubmitContext(ctx, func() {
		result, err := s.execute(req, topo, scale, detection)
		done <- pipelineOutput{result: result, err: err}
	})
	switch {
	case errors.Is(err, analyzer.ErrPoolClosed):
		return nil, apperrors.NewInternalError("service is shutting down", err)
	case err != nil:
		return nil, apperrors.NewTimeoutError("measurement queue is full", err)
	}

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, apperrors.NewTimeoutError("measurement did not finish in time", ctx.Err())
	}
}

// execute is the pure pipeline: decode, detect, sequence, measure, report
func (s *measurementService) execute(
	req ProtocolRequest,
	topo *topology.LandmarkTopology,
	scale calibration.PixelScale,
	detection strategy.DetectionStrategy,
) (*models.MeasurementResult, error) {
	img, _, err := imaging.DecodeLimited(req.Image, s.opts.MaxImagePixels)
	if err != nil {
		return nil, apperrors.NewDecodeError("uploaded file is not a readable image", err)
	}

	var mask *image.Gray
	var hook analyzer.MaskHook
	if req.DebugMask {
		hook = func(m *image.Gray) { mask = m }
	}

	markers, err := s.detectorFor(detection, hook).Detect(img)
	if err != nil {
		return nil, apperrors.NewProcessingError("marker detection failed", err)
	}

	centers := analyzer.Centers(markers)
	set := s.sequencer.Sequence(centers, topo)

	result := &models.MeasurementResult{
		Protocol:          string(topo.Protocol),
		TopologyVersion:   topo.Version,
		Detection:         detection.GetStrategyName(),
		Timestamp:         time.Now().UTC(),
		Measurements:      measurement.Measure(set, topo, scale),
		ScaleCmPerPixel:   scale.CmPerPixel(),
		MarkersDetected:   len(markers),
		LandmarksExpected: topo.Size(),
		Landmarks:         toPositions(set),
	}

	quality := s.photo.Calculate(img)
	result.Photo = models.PhotoQuality{
		Brightness: geometry.Round2(quality.Brightness),
		Sharpness:  geometry.Round2(quality.Sharpness),
	}

	bounds := img.Bounds()
	issues := s.validator.Validate(topo.Size(), len(markers))
	issues = append(issues, s.validator.ValidateImage(bounds.Dx(), bounds.Dy())...)
	issues = append(issues, s.validator.ValidatePhoto(quality.Brightness, quality.Sharpness)...)
	if len(issues) > 0 {
		result.Warnings = s.validator.ConvertIssuesToMessages(issues)
	}

	if mask != nil {
		encoded, err := imaging.EncodeMaskPNG(mask)
		if err != nil {
			logger.WithError(err).WithField("request_id", req.RequestID).Warn("Failed to encode debug mask")
		} else {
			result.DebugMask = encoded
		}
	}

	return result, nil
}

// detectorFor returns the cached detector of a strategy, or a fresh one carrying hook
func (s *measurementService) detectorFor(detection strategy.DetectionStrategy, hook analyzer.MaskHook) analyzer.MarkerDetector {
	if hook != nil {
		return s.newDetector(detection.Options().WithMaskHook(hook))
	}
	name := detection.GetStrategyName()
	if d, ok := s.detectors.Load(name); ok {
		return d.(analyzer.MarkerDetector)
	}
	d, _ := s.detectors.LoadOrStore(name, s.newDetector(detection.Options()))
	return d.(analyzer.MarkerDetector)
}

func (s *measurementService) RunProtocolFromURL(ctx context.Context, imageURL string, req ProtocolRequest) (*models.MeasurementResult, error) {
	if s.imageRepo == nil {
		return nil, apperrors.NewInternalError("no image repository configured", repository.ErrRepositoryUnavailable)
	}
	req.Source = imageURL

	fetchCtx := ctx
	if s.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.opts.FetchTimeout)
		defer cancel()
	}

	start := time.Now()
	data, err := s.imageRepo.FetchImage(fetchCtx, imageURL)
	if err != nil {
		s.publish(ctx, req, observer.MeasurementEvent{
			EventType:      observer.ImageFetchFailed,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
		})
		return nil, classifyFetchError(err)
	}
	s.publish(ctx, req, observer.MeasurementEvent{
		EventType:      observer.ImageFetched,
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata:       map[string]interface{}{"bytes": len(data)},
	})

	req.Image = data
	return s.RunProtocol(ctx, req)
}

func classifyFetchError(err error) error {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, repository.ErrInvalidImageURL):
		return apperrors.NewValidationError("invalid image URL", err)
	case errors.Is(err, repository.ErrRepositoryUnavailable):
		return apperrors.NewValidationError("image source not available", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError("image fetch timed out", err)
	default:
		return apperrors.NewNetworkError("failed to fetch image", err)
	}
}

func (s *measurementService) Topologies() []*topology.LandmarkTopology {
	return s.registry.List()
}

func (s *measurementService) ValidateImageURL(imageURL string) error {
	if s.imageRepo == nil {
		return repository.ErrRepositoryUnavailable
	}
	return s.imageRepo.ValidateImageURL(imageURL)
}

func (s *measurementService) publish(ctx context.Context, req ProtocolRequest, event observer.MeasurementEvent) {
	if s.publisher == nil {
		return
	}
	event.RequestID = req.RequestID
	event.Protocol = string(req.Protocol)
	event.Source = req.Source
	s.publisher.NotifyObservers(ctx, event)
}

func toPositions(set landmark.LandmarkSet) []models.LandmarkPosition {
	out := make([]models.LandmarkPosition, len(set))
	for i, l := range set {
		out[i] = models.LandmarkPosition{
			Index:   l.Index,
			Name:    l.Name,
			X:       l.Point.X,
			Y:       l.Point.Y,
			Present: l.Present,
		}
	}
	return out
}
