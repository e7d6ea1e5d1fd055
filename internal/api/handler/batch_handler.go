package handler

import (
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/notifyhub/supplytrack/internal/api/middleware"
	"github.com/notifyhub/supplytrack/internal/domain"
	"github.com/notifyhub/supplytrack/internal/service"
)

// BatchHandler handles notification batches.
type BatchHandler struct {
	svc    *service.TrackingService
	logger *zap.Logger
}

func NewBatchHandler(svc *service.TrackingService, logger *zap.Logger) *BatchHandler {
	return &BatchHandler{svc: svc, logger: logger}
}

// Send handles POST /api/v1/notifications/batch
//
// The response is 200 whenever the batch was dispatched, even if some or all
// targets failed; per-target outcomes are in results.
//
// @Summary  Notify up to 500 entities, one send at a time
// @Tags     notifications
// @Accept   json
// @Produce  json
// @Param    body  body      domain.BatchRequest  true  "Batch payload"
// @Success  200   {object}  domain.BatchResponse
// @Failure  404   {object}  map[string]string
// @Failure  422   {object}  map[string]string
// @Router   /api/v1/notifications/batch [post]
func (h *BatchHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.BatchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.svc.SendBatch(r.Context(), req)
	if err != nil {
		h.logger.Warn("notification batch failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
