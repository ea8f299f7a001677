package kafka

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/cfg"
	"github.com/DRSN-tech/shop-backend/internal/repository/pgdb"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/jitter"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var outboxEvents = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "outbox_events_total",
		Help: "Outbox events handled by the relay, by result",
	},
	[]string{"event_type", "result"},
)

const (
	resultPublished = "published"
	resultRetried   = "retried"
	resultFailed    = "failed"
)

// OutboxWorker публикует события из outbox в Kafka.
// Просыпается по NOTIFY outbox_pending и, на случай потерянных уведомлений, по таймеру.
type OutboxWorker struct {
	repo      usecase.OutboxRepository
	logger    logger.Logger
	producer  usecase.MessageProducer
	cfg       *cfg.OutboxCfg
	dbConnStr string // пусто — без LISTEN, только опрос

	retryBase time.Duration
	retryMax  time.Duration
	now       func() time.Time

	wake   chan struct{}
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func NewOutboxWorker(
	repo usecase.OutboxRepository,
	logger logger.Logger,
	producer usecase.MessageProducer,
	cfg *cfg.OutboxCfg,
	dbConnStr string,
) *OutboxWorker {
	return &OutboxWorker{
		repo:      repo,
		logger:    logger,
		producer:  producer,
		cfg:       cfg,
		dbConnStr: dbConnStr,
		retryBase: time.Second,
		retryMax:  5 * time.Minute,
		now:       time.Now,
		wake:      make(chan struct{}, 1),
	}
}

func (w *OutboxWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()

	if w.dbConnStr != "" {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.listenOutboxNotifications(ctx)
		}()
	}
}

// Stop останавливает воркер и ждёт завершения горутин; сигнатура подходит для closer.Func.
func (w *OutboxWorker) Stop(ctx context.Context) error {
	w.once.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
	})

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *OutboxWorker) run(ctx context.Context) {
	// Обрабатываем "остатки" при старте
	w.logger.Infof("Draining pending outbox events on startup...")
	w.drain(ctx)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Infof("Outbox worker stopped")
			return
		case <-ticker.C:
			w.drain(ctx)
		case <-w.wake:
			w.drain(ctx)
		}
	}
}

func (w *OutboxWorker) notify() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *OutboxWorker) listenOutboxNotifications(ctx context.Context) {
	var conn *pgx.Conn

	connect := func() error {
		var err error
		conn, err = pgx.Connect(ctx, w.dbConnStr)
		if err != nil {
			return e.Wrap("failed to connect for LISTEN", err)
		}

		if _, err = conn.Exec(ctx, "LISTEN "+pgdb.OutboxChannel); err != nil {
			_ = conn.Close(context.Background())
			conn = nil
			return e.Wrap("failed to LISTEN", err)
		}

		w.logger.Infof("Subscribed to '%s' channel", pgdb.OutboxChannel)
		return nil
	}

	defer func() {
		if conn != nil {
			_ = conn.Close(context.Background())
		}
	}()

	for attempt := 0; ; {
		if conn == nil {
			if err := connect(); err != nil {
				w.logger.Warnf("LISTEN connect failed: %v", err)
				if !w.sleep(ctx, jitter.ExponentialBackoff(time.Second, 30*time.Second, attempt, jitter.DefaultJitter)) {
					return
				}
				attempt++
				continue
			}
			attempt = 0
		}

		notif, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Warnf("LISTEN connection lost: %v. Reconnecting...", err)
			_ = conn.Close(context.Background())
			conn = nil
			continue
		}

		if notif != nil && notif.Channel == pgdb.OutboxChannel {
			w.logger.Debugf("Received outbox notification")
			w.notify()
		}
	}
}

// sleep ждёт d или отмены ctx. false — контекст отменён.
func (w *OutboxWorker) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// drain обрабатывает пачки, пока они заполняются целиком.
func (w *OutboxWorker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		hasMore, err := w.processBatch(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				w.logger.Warnf("Batch processing failed: %v", err)
			}
			return
		}
		if !hasMore {
			return
		}
	}
}

func (w *OutboxWorker) processBatch(ctx context.Context) (bool, error) {
	const op = "OutboxWorker.processBatch"

	events, err := w.repo.GetAndMarkAsProcessing(ctx, w.cfg.BatchSize)
	if err != nil {
		return false, e.Wrap(op, err)
	}

	for _, event := range events {
		w.processEvent(ctx, event)
	}

	return len(events) == w.cfg.BatchSize, nil
}

func (w *OutboxWorker) processEvent(ctx context.Context, event *usecase.OutboxEvent) {
	eventType := string(event.EventType)

	if err := w.producer.WriteMessage(ctx, usecase.NewWriteMessageReq(event)); err != nil {
		w.handleFailure(ctx, event, err)
		return
	}

	if err := w.repo.MarkAsProcessed(ctx, event.ID); err != nil {
		// событие будет опубликовано повторно после таймаута processing
		w.logger.Warnf("mark processed failed: event_id=%s: %v", event.EventID, err)
		return
	}
	outboxEvents.WithLabelValues(eventType, resultPublished).Inc()
}

func (w *OutboxWorker) handleFailure(ctx context.Context, event *usecase.OutboxEvent, cause error) {
	eventType := string(event.EventType)

	if event.Attempts >= w.cfg.MaxAttempts {
		w.logger.Errorf(cause, "outbox event %s failed permanently after %d attempts", event.EventID, event.Attempts)
		if err := w.repo.MarkAsFailed(ctx, event.ID, cause.Error()); err != nil {
			w.logger.Warnf("mark failed failed: event_id=%s: %v", event.EventID, err)
			return
		}
		outboxEvents.WithLabelValues(eventType, resultFailed).Inc()
		return
	}

	delay := jitter.ExponentialBackoff(w.retryBase, w.retryMax, event.Attempts-1, jitter.DefaultJitter)
	w.logger.Warnf("outbox event %s publish failed (attempt %d), retry in %s: %v", event.EventID, event.Attempts, delay, cause)
	if err := w.repo.Reschedule(ctx, event.ID, w.now().Add(delay), cause.Error()); err != nil {
		w.logger.Warnf("reschedule failed: event_id=%s: %v", event.EventID, err)
		return
	}
	outboxEvents.WithLabelValues(eventType, resultRetried).Inc()
}
