package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/notifyhub/supplytrack/internal/api/middleware"
	"github.com/notifyhub/supplytrack/internal/domain"
	"github.com/notifyhub/supplytrack/internal/service"
)

// EntityHandler serves read access to tracked entities and record imports.
type EntityHandler struct {
	svc    *service.TrackingService
	logger *zap.Logger
}

func NewEntityHandler(svc *service.TrackingService, logger *zap.Logger) *EntityHandler {
	return &EntityHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/entities/{kind}
//
// @Summary  List classified entities of one kind
// @Tags     entities
// @Produce  json
// @Param    kind          path   string  true   "shipment | order | sample"
// @Param    status        query  string  false  "Comma-separated persisted statuses"
// @Param    owner         query  string  false  "Comma-separated owners"
// @Param    carrier       query  string  false  "Comma-separated carriers"
// @Param    counterparty  query  string  false  "Comma-separated counterparties"
// @Param    category      query  string  false  "Comma-separated categories"
// @Param    from          query  string  false  "Primary date lower bound (YYYY-MM-DD)"
// @Param    to            query  string  false  "Primary date upper bound (YYYY-MM-DD)"
// @Param    q             query  string  false  "Free-text search"
// @Param    state         query  string  false  "Derived state: on_time | due_soon | overdue | delivered | unknown"
// @Success  200  {object}  map[string]any
// @Failure  400  {object}  map[string]string
// @Router   /api/v1/entities/{kind} [get]
func (h *EntityHandler) List(w http.ResponseWriter, r *http.Request) {
	kind := domain.Kind(chi.URLParam(r, "kind"))

	params, err := paramsFromQuery(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	spec, err := params.spec()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	views, err := h.svc.ListEntities(r.Context(), kind, spec)
	if err != nil {
		h.logger.Warn("list entities failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"data":  views,
		"total": len(views),
	})
}

// Get handles GET /api/v1/entities/{kind}/{id}
//
// @Summary  Get one classified entity
// @Tags     entities
// @Produce  json
// @Success  200  {object}  service.EntityView
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/entities/{kind}/{id} [get]
func (h *EntityHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetEntity(r.Context(), domain.Kind(chi.URLParam(r, "kind")), chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// EmailHistory handles GET /api/v1/entities/{kind}/{id}/email-history
//
// @Summary  Notification audit trail of one entity
// @Tags     entities
// @Produce  json
// @Success  200  {object}  map[string]any
// @Failure  404  {object}  map[string]string
// @Router   /api/v1/entities/{kind}/{id}/email-history [get]
func (h *EntityHandler) EmailHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entries, err := h.svc.EmailHistory(r.Context(), domain.Kind(chi.URLParam(r, "kind")), id)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"entity_id":     id,
		"email_history": entries,
	})
}

type importRequest struct {
	Records []domain.RawEntity `json:"records"`
}

// Import handles POST /api/v1/entities/import
//
// @Summary  Normalize and store raw records
// @Tags     entities
// @Accept   json
// @Produce  json
// @Success  200  {object}  map[string]int
// @Failure  422  {object}  map[string]string
// @Router   /api/v1/entities/import [post]
func (h *EntityHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	n, err := h.svc.Import(r.Context(), req.Records)
	if err != nil {
		h.logger.Warn("import failed", zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"imported": n})
}
