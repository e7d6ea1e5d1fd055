package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/notifyhub/supplytrack/internal/audit"
	"github.com/notifyhub/supplytrack/internal/classifier"
	"github.com/notifyhub/supplytrack/internal/dispatcher"
	"github.com/notifyhub/supplytrack/internal/domain"
	"github.com/notifyhub/supplytrack/internal/filter"
	"github.com/notifyhub/supplytrack/internal/provider"
	"github.com/notifyhub/supplytrack/internal/repository"
)

// Batch origins reported to the Observer.
const (
	OriginAPI  = "api"
	OriginCron = "cron"
)

// ActionNotificationSent is the history action appended after a successful send.
const ActionNotificationSent = "notification_sent"

// bookkeepingTimeout bounds the history and audit writes that follow a batch.
const bookkeepingTimeout = 10 * time.Second

// Route pairs a channel's provider with the dispatcher that paces it.
type Route struct {
	Dispatcher *dispatcher.Dispatcher
	Provider   provider.Provider
}

// Observer receives service-level measurements. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveBatch(origin string)
	SetOverdue(kind domain.Kind, n int)
}

type nopObserver struct{}

func (nopObserver) ObserveBatch(string)         {}
func (nopObserver) SetOverdue(domain.Kind, int) {}

// Options configures a TrackingService. Zero values select defaults.
type Options struct {
	HorizonDays   int
	DefaultSender string
	Clock         func() time.Time
	Audit         audit.Sink
	Observer      Observer
}

// EntityView is an entity together with its classification at the time of
// the request.
type EntityView struct {
	*domain.TrackedEntity
	Classification classifier.Classification `json:"classification"`
}

// RejectedRecord reports a raw record that could not be normalized.
type RejectedRecord struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

// ClassifyResult is the outcome of classifying caller-supplied records.
type ClassifyResult struct {
	Entities []EntityView     `json:"entities"`
	Rejected []RejectedRecord `json:"rejected"`
}

// TrackingService reads entities from the repository, classifies and filters
// them, and drives notification batches through the per-channel routes.
// HTTP handlers and the overdue sweeper depend on this service.
type TrackingService struct {
	repo          repository.EntityRepository
	routes        map[domain.Channel]Route
	audit         audit.Sink
	observer      Observer
	now           func() time.Time
	horizon       int
	defaultSender string
	logger        *zap.Logger
}

func NewTrackingService(
	repo repository.EntityRepository,
	routes map[domain.Channel]Route,
	opts Options,
	logger *zap.Logger,
) *TrackingService {
	s := &TrackingService{
		repo:          repo,
		routes:        routes,
		audit:         opts.Audit,
		observer:      opts.Observer,
		now:           opts.Clock,
		horizon:       opts.HorizonDays,
		defaultSender: opts.DefaultSender,
		logger:        logger,
	}
	if s.audit == nil {
		s.audit = audit.NopSink{}
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.horizon <= 0 {
		s.horizon = classifier.DefaultHorizonDays
	}
	if s.defaultSender == "" {
		s.defaultSender = "system"
	}
	return s
}

// HorizonDays is the due-soon window applied when a request does not set one.
func (s *TrackingService) HorizonDays() int { return s.horizon }

// ListEntities returns the entities of kind matching spec, each classified at
// spec.At (the service clock when zero).
func (s *TrackingService) ListEntities(ctx context.Context, kind domain.Kind, spec filter.Spec) ([]EntityView, error) {
	if !kind.IsValid() {
		return nil, domain.ErrInvalidKind
	}
	entities, err := s.repo.List(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	spec = s.withDefaults(spec)

	overdue := 0
	for _, e := range entities {
		if classifier.IsOverdue(e, spec.At) {
			overdue++
		}
	}
	s.observer.SetOverdue(kind, overdue)

	return s.views(filter.Apply(entities, spec), spec), nil
}

func (s *TrackingService) GetEntity(ctx context.Context, kind domain.Kind, id string) (*EntityView, error) {
	if !kind.IsValid() {
		return nil, domain.ErrInvalidKind
	}
	e, err := s.repo.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return &EntityView{TrackedEntity: e, Classification: classifier.Classify(e, s.now(), s.horizon)}, nil
}

// EmailHistory returns the notification audit trail of one entity.
func (s *TrackingService) EmailHistory(ctx context.Context, kind domain.Kind, id string) ([]domain.EmailHistoryEntry, error) {
	if _, err := s.GetEntity(ctx, kind, id); err != nil {
		return nil, err
	}
	return s.repo.ListEmailHistory(ctx, id)
}

// ClassifyRecords normalizes caller-supplied records, filters them and
// classifies the survivors. Records that fail normalization are reported,
// not fatal.
func (s *TrackingService) ClassifyRecords(raw []domain.RawEntity, spec filter.Spec) ClassifyResult {
	spec = s.withDefaults(spec)
	result := ClassifyResult{Entities: []EntityView{}, Rejected: []RejectedRecord{}}

	entities := make([]*domain.TrackedEntity, 0, len(raw))
	for i, r := range raw {
		e, err := domain.Normalize(r)
		if err != nil {
			result.Rejected = append(result.Rejected, RejectedRecord{Index: i, ID: r.ID, Error: err.Error()})
			continue
		}
		entities = append(entities, e)
	}
	result.Entities = s.views(filter.Apply(entities, spec), spec)
	return result
}

// Import normalizes and stores records. The first invalid record aborts the
// import before anything is written.
func (s *TrackingService) Import(ctx context.Context, raw []domain.RawEntity) (int, error) {
	entities := make([]*domain.TrackedEntity, 0, len(raw))
	for i, r := range raw {
		e, err := domain.Normalize(r)
		if err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		entities = append(entities, e)
	}
	if err := s.repo.Upsert(ctx, entities); err != nil {
		return 0, fmt.Errorf("store records: %w", err)
	}
	return len(entities), nil
}

// SendBatch notifies the entities named in req. Stored contacts are used
// unless the request overrides them; subject and message default to a status
// notice built from the entity. Every target is accounted for in the response
// and recorded in the email history.
func (s *TrackingService) SendBatch(ctx context.Context, req domain.BatchRequest) (*domain.BatchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, ok := s.routes[req.Channel]; !ok {
		return nil, fmt.Errorf("%w: %s is not configured", domain.ErrInvalidChannel, req.Channel)
	}

	now := s.now()
	targets := make([]domain.NotificationTarget, 0, len(req.Targets))
	for _, t := range req.Targets {
		e, err := s.repo.GetByID(ctx, req.Kind, t.EntityID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%s %s: %w", req.Kind, t.EntityID, err)
			}
			return nil, fmt.Errorf("resolve %s: %w", t.EntityID, err)
		}
		target := s.targetFor(e, req.Channel, now)
		if email := strings.TrimSpace(t.Email); email != "" {
			target.Email = email
		}
		if phone := strings.TrimSpace(t.Phone); phone != "" {
			target.Phone = phone
		}
		if req.Subject != "" {
			target.Subject = req.Subject
		}
		if req.Message != "" {
			target.Message = req.Message
		}
		targets = append(targets, target)
	}

	sentBy := req.SentBy
	if sentBy == "" {
		sentBy = s.defaultSender
	}
	return s.dispatch(ctx, req.Channel, targets, sentBy, OriginAPI)
}

// NotifyOverdue sends an email notice for every overdue entity of kind that
// has a contact email. An empty selection yields an empty response.
func (s *TrackingService) NotifyOverdue(ctx context.Context, kind domain.Kind, sentBy string) (*domain.BatchResponse, error) {
	if !kind.IsValid() {
		return nil, domain.ErrInvalidKind
	}
	if _, ok := s.routes[domain.ChannelEmail]; !ok {
		return nil, fmt.Errorf("%w: email is not configured", domain.ErrInvalidChannel)
	}
	entities, err := s.repo.List(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}

	now := s.now()
	var overdue int
	var targets []domain.NotificationTarget
	for _, e := range entities {
		if !classifier.IsOverdue(e, now) {
			continue
		}
		overdue++
		if e.ContactEmail == "" {
			s.logger.Debug("overdue entity has no contact email", zap.String("entity_id", e.ID))
			continue
		}
		targets = append(targets, s.targetFor(e, domain.ChannelEmail, now))
	}
	s.observer.SetOverdue(kind, overdue)

	if len(targets) == 0 {
		return &domain.BatchResponse{
			DispatchReport: &domain.DispatchReport{Results: []domain.TargetResult{}},
			EmailHistory:   []domain.EmailHistoryEntry{},
		}, nil
	}
	if sentBy == "" {
		sentBy = s.defaultSender
	}
	return s.dispatch(ctx, domain.ChannelEmail, targets, sentBy, OriginCron)
}

// ---- private helpers ----

func (s *TrackingService) withDefaults(spec filter.Spec) filter.Spec {
	if spec.At.IsZero() {
		spec.At = s.now()
	}
	if spec.HorizonDays <= 0 {
		spec.HorizonDays = s.horizon
	}
	return spec
}

func (s *TrackingService) views(entities []*domain.TrackedEntity, spec filter.Spec) []EntityView {
	out := make([]EntityView, len(entities))
	for i, e := range entities {
		out[i] = EntityView{TrackedEntity: e, Classification: classifier.Classify(e, spec.At, spec.HorizonDays)}
	}
	return out
}

func (s *TrackingService) targetFor(e *domain.TrackedEntity, ch domain.Channel, now time.Time) domain.NotificationTarget {
	c := classifier.Classify(e, now, s.horizon)
	return domain.NotificationTarget{
		EntityID: e.ID,
		Channel:  ch,
		Email:    strings.TrimSpace(e.ContactEmail),
		Phone:    strings.TrimSpace(e.ContactPhone),
		Subject:  DefaultSubject(e, c),
		Message:  DefaultMessage(e, c),
	}
}

func (s *TrackingService) dispatch(
	ctx context.Context,
	ch domain.Channel,
	targets []domain.NotificationTarget,
	sentBy, origin string,
) (*domain.BatchResponse, error) {
	route := s.routes[ch]
	report, err := route.Dispatcher.Dispatch(ctx, targets, route.Provider)
	if err != nil {
		return nil, err
	}
	s.observer.ObserveBatch(origin)

	now := s.now().UTC()
	history := make([]domain.EmailHistoryEntry, len(report.Results))
	for i, r := range report.Results {
		status := domain.EmailStatusSent
		if !r.Success {
			status = domain.EmailStatusFailed
		}
		history[i] = domain.EmailHistoryEntry{
			ID:        uuid.New().String(),
			EntityID:  r.Target.EntityID,
			Timestamp: now,
			Recipient: r.Target.Address(),
			Subject:   r.Target.Subject,
			Status:    status,
			MessageID: r.MessageID,
			Error:     r.Error,
			SentBy:    sentBy,
		}
	}

	// The sends already happened, so the records outlive a cancelled caller.
	// Failures are logged and the caller still receives the report.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
	defer cancel()
	if err := s.repo.AppendEmailHistory(ctx, history); err != nil {
		s.logger.Error("failed to store email history", zap.Int("entries", len(history)), zap.Error(err))
	}
	for _, r := range report.Results {
		if !r.Success {
			continue
		}
		entry := domain.HistoryEntry{
			ID:        uuid.New().String(),
			Timestamp: now,
			Action:    ActionNotificationSent,
			User:      sentBy,
			Changes: map[string]string{
				"channel":   string(r.Target.Channel),
				"recipient": r.Target.Address(),
			},
		}
		if r.MessageID != "" {
			entry.Changes["message_id"] = r.MessageID
		}
		if err := s.repo.AppendHistory(ctx, r.Target.EntityID, entry); err != nil {
			s.logger.Error("failed to append history", zap.String("entity_id", r.Target.EntityID), zap.Error(err))
		}
	}
	if err := s.audit.Publish(ctx, history); err != nil {
		s.logger.Warn("failed to publish audit events", zap.Error(err))
	}

	s.logger.Info("notification batch dispatched",
		zap.String("origin", origin),
		zap.String("channel", string(ch)),
		zap.Int("success", report.SuccessCount),
		zap.Int("failed", report.FailedCount),
	)
	return &domain.BatchResponse{DispatchReport: report, EmailHistory: history}, nil
}
