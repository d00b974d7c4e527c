package container

import (
	"fmt"
	"net/http"

	"alignme-measure/internal/analyzer"
	"alignme-measure/internal/config"
	"alignme-measure/internal/landmark"
	"alignme-measure/internal/logger"
	"alignme-measure/internal/observer"
	"alignme-measure/internal/repository"
	"alignme-measure/internal/service"
	"alignme-measure/internal/storage"
	"alignme-measure/internal/strategy"
	"alignme-measure/internal/topology"
	"alignme-measure/internal/transport"
	"alignme-measure/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config             *config.Config
	registry           *topology.Registry
	pool               *analyzer.WorkerPool
	publisher          *observer.EventPublisher
	metrics            *observer.MetricsObserver
	imageRepository    repository.ImageRepository
	measurementService service.MeasurementService
	handler            http.Handler
}

// NewContainer builds the dependency graph and starts the worker pool
func NewContainer(cfg *config.Config) (*Container, error) {
	registry, err := topology.LoadFile(cfg.TopologyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load topologies: %w", err)
	}

	strategies, err := strategy.NewSelector(cfg.DetectionStrategy)
	if err != nil {
		return nil, fmt.Errorf("invalid DETECTION_STRATEGY: %w", err)
	}

	urlValidator := validation.NewURLValidator()
	var blobs storage.BlobStorage
	if cfg.BlobStorageEnabled() {
		blobs, err = storage.NewAzureStorage(cfg.AzureStorageAccount, cfg.AzureStorageKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize blob storage: %w", err)
		}
		urlValidator.AllowScheme("azblob")
	}

	fetchOpts := storage.DefaultHTTPFetcherOptions()
	fetchOpts.Timeout = cfg.ImageFetchTimeout
	fetchOpts.MaxBytes = cfg.MaxRequestBodySize
	imageRepository := repository.NewImageRepository(storage.NewHTTPImageFetcher(fetchOpts), blobs, urlValidator)

	pool := analyzer.NewWorkerPool(cfg.WorkerCount)
	pool.Start()

	publisher := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)

	measurementService := service.NewMeasurementService(
		imageRepository,
		registry,
		landmark.NewBandSequencer(cfg.BandHeight),
		pool,
		publisher,
		service.Options{
			Strategies:     strategies,
			FetchTimeout:   cfg.ImageFetchTimeout,
			MaxImagePixels: cfg.MaxImagePixels,
		},
	)

	return &Container{
		config:             cfg,
		registry:           registry,
		pool:               pool,
		publisher:          publisher,
		metrics:            metrics,
		imageRepository:    imageRepository,
		measurementService: measurementService,
		handler:            transport.NewHandler(measurementService, metrics, pool, cfg),
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the measurement service
func (c *Container) Service() service.MeasurementService {
	return c.measurementService
}

// Close drains the worker pool and pending event notifications
func (c *Container) Close() {
	c.pool.Close()
	c.pool.Wait()
	c.publisher.Wait()
}
