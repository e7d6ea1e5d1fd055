package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifyhub/supplytrack/internal/domain"
)

type pgEntityRepository struct {
	pool *pgxpool.Pool
}

// NewPgEntityRepository returns an EntityRepository backed by PostgreSQL.
func NewPgEntityRepository(pool *pgxpool.Pool) EntityRepository {
	return &pgEntityRepository{pool: pool}
}

const entityColumns = `
	id, kind, reference, counterparty, contact_email, contact_phone,
	owner, carrier, category, primary_date, expected_date, actual_date,
	status, notes`

func (r *pgEntityRepository) List(ctx context.Context, kind domain.Kind) ([]*domain.TrackedEntity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+entityColumns+`
		FROM tracked_entities
		WHERE kind = $1
		ORDER BY created_at ASC, id ASC`, kind)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	entities, err := scanEntities(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachHistory(ctx, entities); err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *pgEntityRepository) GetByID(ctx context.Context, kind domain.Kind, id string) (*domain.TrackedEntity, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT`+entityColumns+`
		FROM tracked_entities WHERE id = $1 AND kind = $2`, id, kind)

	e, err := scanEntity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", err)
	}
	if err := r.attachHistory(ctx, []*domain.TrackedEntity{e}); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *pgEntityRepository) Upsert(ctx context.Context, entities []*domain.TrackedEntity) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, e := range entities {
		_, err = tx.Exec(ctx, `
			INSERT INTO tracked_entities (`+entityColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			ON CONFLICT (id) DO UPDATE SET
				kind = EXCLUDED.kind, reference = EXCLUDED.reference,
				counterparty = EXCLUDED.counterparty, contact_email = EXCLUDED.contact_email,
				contact_phone = EXCLUDED.contact_phone, owner = EXCLUDED.owner,
				carrier = EXCLUDED.carrier, category = EXCLUDED.category,
				primary_date = EXCLUDED.primary_date, expected_date = EXCLUDED.expected_date,
				actual_date = EXCLUDED.actual_date, status = EXCLUDED.status,
				notes = EXCLUDED.notes, updated_at = NOW()`,
			e.ID, e.Kind, e.Reference, e.Counterparty, e.ContactEmail, e.ContactPhone,
			e.Owner, e.Carrier, e.Category, e.PrimaryDate, e.ExpectedDate, e.ActualDate,
			e.Status, e.Notes,
		)
		if err != nil {
			return fmt.Errorf("upsert entity %s: %w", e.ID, err)
		}
		for _, h := range e.History {
			if err := insertHistory(ctx, tx, e.ID, h); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

func (r *pgEntityRepository) AppendHistory(ctx context.Context, entityID string, entry domain.HistoryEntry) error {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tracked_entities WHERE id = $1)`, entityID).Scan(&exists); err != nil {
		return fmt.Errorf("check entity: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return insertHistory(ctx, r.pool, entityID, entry)
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertHistory(ctx context.Context, db execer, entityID string, h domain.HistoryEntry) error {
	_, err := db.Exec(ctx, `
		INSERT INTO entity_history (id, entity_id, ts, action, username, changes)
		VALUES ($1,$2,$3,$4,$5,COALESCE($6::jsonb, '{}'::jsonb))
		ON CONFLICT (id) DO NOTHING`,
		h.ID, entityID, h.Timestamp, h.Action, h.User, h.Changes,
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (r *pgEntityRepository) AppendEmailHistory(ctx context.Context, entries []domain.EmailHistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, h := range entries {
		batch.Queue(`
			INSERT INTO email_history
				(id, entity_id, ts, recipient, subject, status, message_id, error, sent_by)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			h.ID, h.EntityID, h.Timestamp, h.Recipient, h.Subject, h.Status, h.MessageID, h.Error, h.SentBy,
		)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert email history: %w", err)
	}
	return nil
}

func (r *pgEntityRepository) ListEmailHistory(ctx context.Context, entityID string) ([]domain.EmailHistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, entity_id, ts, recipient, subject, status, message_id, error, sent_by
		FROM email_history WHERE entity_id = $1
		ORDER BY ts ASC, id ASC`, entityID)
	if err != nil {
		return nil, fmt.Errorf("list email history: %w", err)
	}
	defer rows.Close()

	result := []domain.EmailHistoryEntry{}
	for rows.Next() {
		var h domain.EmailHistoryEntry
		if err := rows.Scan(&h.ID, &h.EntityID, &h.Timestamp, &h.Recipient, &h.Subject,
			&h.Status, &h.MessageID, &h.Error, &h.SentBy); err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

// ---- helpers ----

// attachHistory loads the history of every entity in one query.
func (r *pgEntityRepository) attachHistory(ctx context.Context, entities []*domain.TrackedEntity) error {
	if len(entities) == 0 {
		return nil
	}
	byID := make(map[string]*domain.TrackedEntity, len(entities))
	ids := make([]string, len(entities))
	for i, e := range entities {
		byID[e.ID] = e
		ids[i] = e.ID
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, entity_id, ts, action, username, changes
		FROM entity_history
		WHERE entity_id = ANY($1)
		ORDER BY ts ASC, id ASC`, ids)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var h domain.HistoryEntry
		var entityID string
		if err := rows.Scan(&h.ID, &entityID, &h.Timestamp, &h.Action, &h.User, &h.Changes); err != nil {
			return err
		}
		if e, ok := byID[entityID]; ok {
			e.History = append(e.History, h)
		}
	}
	return rows.Err()
}

// scanEntity reads a single entity row from any pgx row type.
func scanEntity(row pgx.Row) (*domain.TrackedEntity, error) {
	var e domain.TrackedEntity
	err := row.Scan(
		&e.ID, &e.Kind, &e.Reference, &e.Counterparty, &e.ContactEmail, &e.ContactPhone,
		&e.Owner, &e.Carrier, &e.Category, &e.PrimaryDate, &e.ExpectedDate, &e.ActualDate,
		&e.Status, &e.Notes,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanEntities(rows pgx.Rows) ([]*domain.TrackedEntity, error) {
	defer rows.Close()
	var result []*domain.TrackedEntity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}
