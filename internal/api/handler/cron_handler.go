package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/notifyhub/supplytrack/internal/domain"
	"github.com/notifyhub/supplytrack/internal/service"
)

// cronSender is recorded as sent_by on notices triggered by the scheduler.
const cronSender = "cron"

// CronHandler serves scheduler-triggered jobs. Routes are expected to sit
// behind middleware.CronAuth.
type CronHandler struct {
	svc    *service.TrackingService
	logger *zap.Logger
}

func NewCronHandler(svc *service.TrackingService, logger *zap.Logger) *CronHandler {
	return &CronHandler{svc: svc, logger: logger}
}

// Overdue handles POST /api/v1/cron/overdue
//
// Without ?kind= every kind is swept. A failure on one kind is reported in
// its entry and does not stop the others.
//
// @Summary  Send overdue notices
// @Tags     cron
// @Produce  json
// @Param    kind  query     string  false  "Limit the sweep to one kind"
// @Success  200   {object}  map[string]any
// @Failure  401   {object}  map[string]string
// @Router   /api/v1/cron/overdue [post]
func (h *CronHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	kinds := domain.Kinds()
	if k := r.URL.Query().Get("kind"); k != "" {
		kind := domain.Kind(k)
		if !kind.IsValid() {
			mapError(w, domain.ErrInvalidKind)
			return
		}
		kinds = []domain.Kind{kind}
	}

	out := make(map[domain.Kind]any, len(kinds))
	for _, kind := range kinds {
		resp, err := h.svc.NotifyOverdue(r.Context(), kind, cronSender)
		if err != nil {
			h.logger.Error("overdue sweep failed", zap.String("kind", string(kind)), zap.Error(err))
			out[kind] = map[string]string{"error": err.Error()}
			continue
		}
		out[kind] = resp
	}
	respondJSON(w, http.StatusOK, out)
}
