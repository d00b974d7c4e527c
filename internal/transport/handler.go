package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"time"

	"alignme-measure/internal/analyzer"
	"alignme-measure/internal/calibration"
	"alignme-measure/internal/config"
	apperrors "alignme-measure/internal/errors"
	"alignme-measure/internal/logger"
	"alignme-measure/internal/observer"
	"alignme-measure/internal/service"
	"alignme-measure/internal/topology"
	"alignme-measure/pkg/geometry"
	"alignme-measure/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// FrontalForm is the multipart body of POST /process-image
type FrontalForm struct {
	File            *multipart.FileHeader `form:"file" binding:"required"`
	ReferencePixels float64               `form:"reference_pixels" binding:"required,gt=0"`
	ReferenceCm     float64               `form:"reference_cm" binding:"omitempty,gt=0"`
	Version         string                `form:"version"`
	Detection       string                `form:"detection"`
	DebugMask       bool                  `form:"debug_mask"`
}

// SagittalForm is the multipart body of POST /process-image-sagital
type SagittalForm struct {
	File            *multipart.FileHeader `form:"file" binding:"required"`
	RefX1           *float64              `form:"ref_x1" binding:"required"`
	RefY1           *float64              `form:"ref_y1" binding:"required"`
	RefX2           *float64              `form:"ref_x2" binding:"required"`
	RefY2           *float64              `form:"ref_y2" binding:"required"`
	ReferenceMeters float64               `form:"referencia_metros" binding:"required,gt=0"`
	Version         string                `form:"version"`
	Detection       string                `form:"detection"`
	DebugMask       bool                  `form:"debug_mask"`
}

// Handler serves the measurement API
type Handler struct {
	svc     service.MeasurementService
	metrics *observer.MetricsObserver
	pool    *analyzer.WorkerPool
	cfg     *config.Config
}

// NewHandler builds the gin engine. metrics and pool may be nil.
func NewHandler(svc service.MeasurementService, metrics *observer.MetricsObserver, pool *analyzer.WorkerPool, cfg *config.Config) http.Handler {
	h := &Handler{svc: svc, metrics: metrics, pool: pool, cfg: cfg}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", healthCheck)
	r.GET("/metrics", h.getMetrics)
	r.GET("/topologies", h.listTopologies)
	r.POST("/process-image", h.processFrontal)
	r.POST("/process-image-sagital", h.processSagittal)
	r.POST("/process-image-sagittal", h.processSagittal)
	r.POST("/measure", h.measureFromURL)

	return r
}

func (h *Handler) processFrontal(c *gin.Context) {
	var form FrontalForm
	if err := c.ShouldBind(&form); err != nil {
		respondError(c, bindError(err))
		return
	}

	h.run(c, service.ProtocolRequest{
		Protocol:  topology.Frontal,
		Version:   form.Version,
		Reference: calibration.ScalarReference{Pixels: form.ReferencePixels, LengthCm: form.ReferenceCm},
		Detection: form.Detection,
		DebugMask: form.DebugMask,
	}, form.File)
}

func (h *Handler) processSagittal(c *gin.Context) {
	var form SagittalForm
	if err := c.ShouldBind(&form); err != nil {
		respondError(c, bindError(err))
		return
	}

	a, err := pixel(*form.RefX1, *form.RefY1)
	if err != nil {
		respondError(c, err)
		return
	}
	b, err := pixel(*form.RefX2, *form.RefY2)
	if err != nil {
		respondError(c, err)
		return
	}

	h.run(c, service.ProtocolRequest{
		Protocol: topology.Sagittal,
		Version:  form.Version,
		Reference: calibration.SegmentReference{
			A:      a,
			B:      b,
			Length: form.ReferenceMeters,
			Unit:   calibration.Meters,
		},
		Detection: form.Detection,
		DebugMask: form.DebugMask,
	}, form.File)
}

func (h *Handler) run(c *gin.Context, req service.ProtocolRequest, file *multipart.FileHeader) {
	data, err := readUpload(file, h.cfg.MaxRequestBodySize)
	if err != nil {
		respondError(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	req.Image = data
	req.RequestID = c.GetString(requestIDKey)
	result, err := h.svc.RunProtocol(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) measureFromURL(c *gin.Context) {
	var body models.MeasureURLRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, bindError(err))
		return
	}

	req, err := protocolRequestFromJSON(body)
	if err != nil {
		respondError(c, err)
		return
	}
	req.RequestID = c.GetString(requestIDKey)

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	result, err := h.svc.RunProtocolFromURL(ctx, body.URL, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// protocolRequestFromJSON picks the segment reference when all four coordinates
// are present and the scalar reference otherwise
func protocolRequestFromJSON(body models.MeasureURLRequest) (service.ProtocolRequest, error) {
	protocol, err := topology.ParseProtocol(body.Protocol)
	if err != nil {
		return service.ProtocolRequest{}, apperrors.NewValidationError("unknown protocol", err)
	}

	req := service.ProtocolRequest{
		Protocol:  protocol,
		Version:   body.Version,
		Detection: body.Detection,
		DebugMask: body.DebugMask,
	}

	switch {
	case body.HasSegmentReference():
		unit, err := calibration.ParseUnit(body.ReferenceUnit)
		if err != nil {
			return service.ProtocolRequest{}, apperrors.NewValidationError("invalid reference unit", err)
		}
		a, err := pixel(*body.RefX1, *body.RefY1)
		if err != nil {
			return service.ProtocolRequest{}, err
		}
		b, err := pixel(*body.RefX2, *body.RefY2)
		if err != nil {
			return service.ProtocolRequest{}, err
		}
		req.Reference = calibration.SegmentReference{
			A:      a,
			B:      b,
			Length: body.ReferenceLength,
			Unit:   unit,
		}
	case body.ReferencePixels > 0:
		req.Reference = calibration.ScalarReference{Pixels: body.ReferencePixels, LengthCm: body.ReferenceCm}
	default:
		return service.ProtocolRequest{}, apperrors.NewValidationError(
			"either reference_pixels or ref_x1, ref_y1, ref_x2, ref_y2 is required", nil)
	}
	return req, nil
}

func (h *Handler) getMetrics(c *gin.Context) {
	body := gin.H{}
	if h.metrics != nil {
		body["measurements"] = h.metrics.GetMetrics()
	}
	if h.pool != nil {
		body["worker_pool"] = h.pool.GetStats()
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) listTopologies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"topologies": h.svc.Topologies()})
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// maxCoordinate bounds reference coordinates so rounding to int is well defined
const maxCoordinate = 1 << 30

// pixel rounds client coordinates onto the pixel grid. NaN, Inf and values
// beyond maxCoordinate are an invalid reference.
func pixel(x, y float64) (geometry.Point2D, error) {
	for _, v := range []float64{x, y} {
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > maxCoordinate {
			return geometry.Point2D{}, apperrors.NewInvalidReferenceError(
				fmt.Sprintf("reference coordinate %v is out of range", v), calibration.ErrInvalidReference)
		}
	}
	return geometry.Pt(int(math.Round(x)), int(math.Round(y))), nil
}

func readUpload(file *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, apperrors.NewValidationError("cannot open uploaded file", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, apperrors.NewValidationError("cannot read uploaded file", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, &apperrors.AppError{
			Type:       apperrors.ErrorTypeValidation,
			Message:    fmt.Sprintf("uploaded file exceeds %d bytes", maxBytes),
			StatusCode: http.StatusRequestEntityTooLarge,
		}
	}
	return data, nil
}

func bindError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &apperrors.AppError{
			Type:       apperrors.ErrorTypeValidation,
			Message:    "request body too large",
			StatusCode: http.StatusRequestEntityTooLarge,
			Cause:      err,
		}
	}
	return apperrors.NewValidationError("invalid request format", err)
}

// Middleware and helper functions
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"request_id":  c.GetString(requestIDKey),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"ip":          c.ClientIP(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("Request failed")
			return
		}
		entry.Info("Request handled")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			respondError(c, c.Errors.Last().Err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	code := determineStatusCode(err)
	errType := string(apperrors.ErrorTypeInternal)
	message := "request processing failed"

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		errType = string(appErr.Type)
		message = appErr.Message
	}

	logger.WithError(err).WithFields(logrus.Fields{
		"request_id":  c.GetString(requestIDKey),
		"status_code": code,
		"error_type":  errType,
		"path":        c.Request.URL.Path,
	}).Warn("Request rejected")

	// internal causes stay in the log
	if code < http.StatusInternalServerError && appErr != nil && appErr.Cause != nil {
		message = fmt.Sprintf("%s: %v", message, appErr.Cause)
	}

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:     http.StatusText(code),
		Type:      errType,
		Message:   message,
		RequestID: c.GetString(requestIDKey),
	})
}
