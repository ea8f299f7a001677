package pgdb

import (
	"context"
	"sort"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jimlawless/whereami"
)

// OutboxChannel — канал LISTEN/NOTIFY, в который сообщается о новых событиях.
const OutboxChannel = "outbox_pending"

const outboxColumns = `id, event_id, event_type, aggregate_id, payload, status, attempts, last_error,
	next_attempt_at, created_at, processed_at`

type OutboxEventRepo struct {
	getter *tr.Getter
	conv   converter.OutboxEventConverter
	// staleAfter — через сколько событие в processing считается брошенным упавшим воркером
	staleAfter time.Duration
}

func NewOutboxEventRepo(getter *tr.Getter, conv converter.OutboxEventConverter, staleAfter time.Duration) *OutboxEventRepo {
	return &OutboxEventRepo{
		getter:     getter,
		conv:       conv,
		staleAfter: staleAfter,
	}
}

// Create пишет событие в транзакции из ctx и будит воркер через NOTIFY.
// Уведомление доставляется слушателям только после коммита.
func (o *OutboxEventRepo) Create(ctx context.Context, event *usecase.OutboxEvent) (*usecase.OutboxEvent, error) {
	q := o.getter.FromCtx(ctx)

	model := o.conv.ToModel(event)
	query := `
		INSERT INTO outbox_events (
			event_id,
			event_type,
			aggregate_id,
			payload,
			status
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + outboxColumns

	rows, err := q.Query(ctx, query,
		model.EventID,
		model.EventType,
		model.AggregateID,
		model.Payload,
		model.Status,
	)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	created, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[converter.OutboxEventModel])
	if err != nil {
		if postgresDuplicate(err) {
			return nil, e.Wrap(whereami.WhereAmI(), e.Conflict("outbox event %s already exists", event.EventID))
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if _, err := q.Exec(ctx, "NOTIFY "+OutboxChannel); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return o.conv.ToEntity(&created), nil
}

// GetAndMarkAsProcessing забирает до limit готовых к отправке событий и помечает их processing.
// Параллельные воркеры не получают одни и те же события (SKIP LOCKED).
func (o *OutboxEventRepo) GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*usecase.OutboxEvent, error) {
	query := `
		UPDATE outbox_events
		SET status = $1, processing_started_at = NOW(), attempts = attempts + 1
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE (status = $2 AND next_attempt_at <= NOW())
			   OR (status = $1 AND processing_started_at < NOW() - $4::interval)
			ORDER BY created_at, id
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + outboxColumns

	rows, err := o.getter.FromCtx(ctx).Query(ctx, query, usecase.Processing, usecase.Pending, limit, o.staleAfter)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	models, err := pgx.CollectRows(rows, pgx.RowToStructByName[converter.OutboxEventModel])
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	// RETURNING не сохраняет порядок подзапроса
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })

	return o.conv.ToArrEntity(models), nil
}

func (o *OutboxEventRepo) MarkAsProcessed(ctx context.Context, id int64) error {
	query := `
		UPDATE outbox_events
		SET status = $1, processed_at = NOW(), last_error = NULL
		WHERE id = $2 AND status = $3
	`

	// Событие могло быть уже обработано другим воркером, 0 строк — не ошибка
	if _, err := o.getter.FromCtx(ctx).Exec(ctx, query, usecase.Processed, id, usecase.Processing); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (o *OutboxEventRepo) Reschedule(ctx context.Context, id int64, nextAttemptAt time.Time, lastErr string) error {
	query := `
		UPDATE outbox_events
		SET status = $1, next_attempt_at = $2, last_error = $3, processing_started_at = NULL
		WHERE id = $4 AND status = $5
	`

	if _, err := o.getter.FromCtx(ctx).Exec(ctx, query, usecase.Pending, nextAttemptAt, lastErr, id, usecase.Processing); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (o *OutboxEventRepo) MarkAsFailed(ctx context.Context, id int64, lastErr string) error {
	query := `
		UPDATE outbox_events
		SET status = $1, last_error = $2
		WHERE id = $3 AND status = $4
	`

	if _, err := o.getter.FromCtx(ctx).Exec(ctx, query, usecase.Failed, lastErr, id, usecase.Processing); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
