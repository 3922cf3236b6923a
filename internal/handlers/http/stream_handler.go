package http

import (
	"errors"
	"net/http"

	"streamqa/internal/core/domain"
	"streamqa/internal/core/ports"
	"streamqa/internal/infrastructure/streaming"
	apperrors "streamqa/pkg/errors"
	"streamqa/pkg/tracing"
	"streamqa/pkg/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SegmentRecorder is notified of every segment payload served.
type SegmentRecorder interface {
	RecordSegmentServed(bytes int)
}

type StreamHandler struct {
	network  ports.NetworkService
	assets   ports.AssetService
	recorder SegmentRecorder
	logger   *zap.SugaredLogger
}

func NewStreamHandler(
	network ports.NetworkService,
	assets ports.AssetService,
	recorder SegmentRecorder,
	logger *zap.SugaredLogger,
) *StreamHandler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &StreamHandler{
		network:  network,
		assets:   assets,
		recorder: recorder,
		logger:   logger,
	}
}

func (h *StreamHandler) SetupRoutes(router gin.IRoutes) {
	router.GET("/health", h.Health)
	router.GET("/:asset", h.Asset)
}

func (h *StreamHandler) Health(c *gin.Context) {
	snapshot, err := h.network.Health(c.Request.Context())
	if err != nil {
		h.abortWithStateError(c, err)
		return
	}

	tracing.AddSpanAttributes(c.Request.Context(),
		tracing.ConditionKey.String(snapshot.NetworkCondition.String()),
		tracing.BitrateKey.Int(snapshot.Bitrate),
		tracing.LatencyKey.Float64(snapshot.LatencyMs),
	)
	c.JSON(http.StatusOK, snapshot)
}

// Asset serves /stream.m3u8 and /segment<N>.ts.
func (h *StreamHandler) Asset(c *gin.Context) {
	name := c.Param("asset")
	if err := validation.ValidateAssetName(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	switch kind, index := streaming.ParseAssetName(name); kind {
	case streaming.AssetManifest:
		h.manifest(c)
	case streaming.AssetSegment:
		h.segment(c, index)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	}
}

func (h *StreamHandler) manifest(c *gin.Context) {
	if _, err := h.network.ApplyDelay(c.Request.Context()); err != nil {
		h.abortWithStateError(c, err)
		return
	}
	c.Data(http.StatusOK, streaming.ManifestContentType, []byte(h.assets.Manifest()))
}

func (h *StreamHandler) segment(c *gin.Context, index int) {
	tracing.AddSpanAttributes(c.Request.Context(), tracing.SegmentKey.Int(index))

	// Unknown segments are rejected before any delay is simulated.
	data, err := h.assets.Segment(index)
	if err != nil {
		if errors.Is(err, domain.ErrSegmentNotFound) {
			notFound := apperrors.NewNotFoundError("Segment")
			c.JSON(notFound.HTTPStatus, gin.H{"error": notFound.Message})
			return
		}
		_ = c.Error(apperrors.NewInternalError(err, "failed to load segment").WithContext("segment", index))
		return
	}

	if _, err := h.network.ApplyDelay(c.Request.Context()); err != nil {
		h.abortWithStateError(c, err)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordSegmentServed(len(data))
	}
	c.Data(http.StatusOK, streaming.SegmentContentType, data)
}

func (h *StreamHandler) abortWithStateError(c *gin.Context, err error) {
	if c.Request.Context().Err() != nil {
		h.logger.Debugw("client went away during simulated delay", "path", c.Request.URL.Path)
		c.Abort()
		return
	}
	tracing.RecordError(c.Request.Context(), err)
	_ = c.Error(apperrors.NewStateUnavailableError(err, "server state unavailable"))
}

var _ ports.StreamHTTPHandler = (*StreamHandler)(nil)
