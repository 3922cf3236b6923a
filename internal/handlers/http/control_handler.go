package http

import (
	"errors"
	"net/http"

	"streamqa/internal/core/domain"
	"streamqa/internal/core/ports"
	apperrors "streamqa/pkg/errors"
	"streamqa/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

type ControlHandler struct {
	network ports.NetworkService
	logger  *zap.SugaredLogger
}

func NewControlHandler(network ports.NetworkService, logger *zap.SugaredLogger) *ControlHandler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ControlHandler{
		network: network,
		logger:  logger,
	}
}

func (h *ControlHandler) SetupRoutes(router gin.IRoutes) {
	router.POST("/control/network/:condition", h.SetConditionFromPath)
	router.POST("/control/network/", h.SetConditionFromBody)
}

func (h *ControlHandler) SetConditionFromPath(c *gin.Context) {
	h.setCondition(c, c.Param("condition"))
}

// SetConditionFromBody accepts {"condition": "<name>"}. A missing or
// malformed body is reported like an unknown condition.
func (h *ControlHandler) SetConditionFromBody(c *gin.Context) {
	var req struct {
		Condition string `json:"condition"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debugw("unreadable control body", "error", err)
	}
	h.setCondition(c, req.Condition)
}

func (h *ControlHandler) setCondition(c *gin.Context, raw string) {
	ctx := c.Request.Context()
	tracing.AddSpanAttributes(ctx, tracing.ConditionKey.String(raw))

	state, err := h.network.SetCondition(ctx, raw)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCondition) {
			invalid := apperrors.NewInvalidConditionError(domain.InvalidConditionMessage())
			c.JSON(invalid.HTTPStatus, gin.H{
				"status":  statusError,
				"message": invalid.Message,
			})
			return
		}
		tracing.RecordError(ctx, err)
		_ = c.Error(apperrors.NewStateUnavailableError(err, "failed to change network condition"))
		return
	}

	c.JSON(http.StatusOK, domain.ConditionChange{
		Status:           statusSuccess,
		NetworkCondition: state.Condition,
		Bitrate:          state.Bitrate,
	})
}

var _ ports.ControlHTTPHandler = (*ControlHandler)(nil)
