package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/notifyhub/supplytrack/internal/domain"
	"github.com/notifyhub/supplytrack/internal/service"
)

// ClassifyHandler classifies caller-supplied records without storing them.
type ClassifyHandler struct {
	svc    *service.TrackingService
	logger *zap.Logger
}

func NewClassifyHandler(svc *service.TrackingService, logger *zap.Logger) *ClassifyHandler {
	return &ClassifyHandler{svc: svc, logger: logger}
}

type classifyRequest struct {
	Records []domain.RawEntity `json:"records"`
	Filter  filterParams       `json:"filter"`
}

// Classify handles POST /api/v1/classify
//
// @Summary  Normalize, filter and classify raw records
// @Tags     entities
// @Accept   json
// @Produce  json
// @Success  200  {object}  service.ClassifyResult
// @Failure  400  {object}  map[string]string
// @Router   /api/v1/classify [post]
func (h *ClassifyHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req classifyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	spec, err := req.Filter.spec()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.svc.ClassifyRecords(req.Records, spec))
}
