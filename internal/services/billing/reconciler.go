// Package billing содержит ядро биллинга: идемпотентную сверку платёжных
// событий (Reconciler) и сервисный слой для HTTP-обработчиков (Service).
package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/stock-signals/internal/lib/sl"
	"github.com/magabrotheeeer/stock-signals/internal/models"
	"github.com/magabrotheeeer/stock-signals/internal/storage/repository"
)

// eventCacheTTL — время жизни быстрого ключа идемпотентности в Redis.
const eventCacheTTL = 24 * time.Hour

// OutcomeKind — вид результата сверки.
type OutcomeKind string

const (
	// OutcomeGranted — доступ выдан, событие обработано впервые.
	OutcomeGranted OutcomeKind = "granted"
	// OutcomeAlreadyProcessed — событие уже обрабатывалось, действий нет.
	OutcomeAlreadyProcessed OutcomeKind = "already_processed"
	// OutcomeRejected — событие отклонено, причина в Reason.
	OutcomeRejected OutcomeKind = "rejected"
)

// Outcome — результат сверки платёжного события.
type Outcome struct {
	Kind   OutcomeKind `json:"status"`
	Reason string      `json:"reason,omitempty"`
}

// UserRepository описывает контракт хранилища для сверки.
type UserRepository interface {
	GetUserByUID(ctx context.Context, userUID string) (*models.User, error)
	SetPaid(ctx context.Context, userUID string, isPaid bool) error
	SavePayment(ctx context.Context, event *models.PaymentEvent, userUID string) (int, error)
}

// Ledger — долговременный журнал обработанных событий.
// MarkEventProcessed обязан быть атомарным относительно конкурентных
// вызовов с одним event_id.
type Ledger interface {
	MarkEventProcessed(ctx context.Context, eventID, gateway string) (bool, error)
	UnmarkEventProcessed(ctx context.Context, eventID string) error
}

// Cache — быстрый ключ идемпотентности. Необязателен для корректности:
// решение принимает Ledger, кеш лишь гасит повторы до похода в базу.
type Cache interface {
	SetIfAbsent(key string, value any, expiration time.Duration) (bool, error)
	Invalidate(key string) error
}

// Notifier отправляет уведомление об успешной выдаче доступа.
type Notifier interface {
	PaymentGranted(ctx context.Context, user *models.User, event *models.PaymentEvent) error
}

// Reconciler идемпотентно применяет платёжные события к учетным записям.
type Reconciler struct {
	users    UserRepository
	ledger   Ledger
	cache    Cache
	notifier Notifier // может быть nil, уведомления best effort
	log      *slog.Logger
}

// NewReconciler создает новый экземпляр Reconciler.
func NewReconciler(users UserRepository, ledger Ledger, cache Cache, notifier Notifier, log *slog.Logger) *Reconciler {
	return &Reconciler{
		users:    users,
		ledger:   ledger,
		cache:    cache,
		notifier: notifier,
		log:      log,
	}
}

func eventCacheKey(eventID string) string {
	return "billing:event:" + eventID
}

// Reconcile применяет нормализованное платёжное событие ровно один раз.
//
// Порядок фиксирован: статус, затем атомарная вставка в журнал событий,
// затем поиск пользователя и выдача доступа. Любая ошибка хранилища до
// мутации пользователя прерывает обработку; неизвестный пользователь
// откатывает вставку журнала, чтобы повторная доставка могла пройти.
func (r *Reconciler) Reconcile(ctx context.Context, event *models.PaymentEvent) (Outcome, error) {
	const op = "billing.Reconcile"
	log := r.log.With(
		slog.String("op", op),
		slog.String("event_id", event.EventID),
		slog.String("gateway", string(event.Gateway)),
	)

	if event.EventID == "" {
		reconcileOutcomes.WithLabelValues(string(OutcomeRejected)).Inc()
		return Outcome{Kind: OutcomeRejected, Reason: "missing event id"}, nil
	}
	if event.Status != models.StatusVerified {
		log.Info("event rejected", slog.String("status", string(event.Status)))
		reconcileOutcomes.WithLabelValues(string(OutcomeRejected)).Inc()
		return Outcome{Kind: OutcomeRejected, Reason: "payment is not verified"}, nil
	}

	// Быстрый путь: SETNX в Redis гасит повторные доставки, не трогая базу.
	// Потеря ключа безопасна, решение остается за журналом в базе.
	cached, err := r.cache.SetIfAbsent(eventCacheKey(event.EventID), "processed", eventCacheTTL)
	if err != nil {
		log.Warn("idempotency cache unavailable", sl.Err(err))
	} else if !cached {
		log.Info("duplicate event, cache hit")
		reconcileOutcomes.WithLabelValues(string(OutcomeAlreadyProcessed)).Inc()
		return Outcome{Kind: OutcomeAlreadyProcessed}, nil
	}

	inserted, err := r.ledger.MarkEventProcessed(ctx, event.EventID, string(event.Gateway))
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}
	if !inserted {
		log.Info("duplicate event, ledger hit")
		reconcileOutcomes.WithLabelValues(string(OutcomeAlreadyProcessed)).Inc()
		return Outcome{Kind: OutcomeAlreadyProcessed}, nil
	}

	user, err := r.users.GetUserByUID(ctx, event.UserRef)
	if err != nil {
		r.rollbackLedger(ctx, event.EventID, log)
		if errors.Is(err, repository.ErrUserNotFound) {
			log.Error("event references unknown user", slog.String("user_ref", event.UserRef))
			reconcileOutcomes.WithLabelValues(string(OutcomeRejected)).Inc()
			return Outcome{Kind: OutcomeRejected, Reason: "unknown user"}, nil
		}
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := r.users.SetPaid(ctx, user.UID, true); err != nil {
		r.rollbackLedger(ctx, event.EventID, log)
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := r.users.SavePayment(ctx, event, user.UID); err != nil {
		log.Warn("failed to journal payment", sl.Err(err))
	}

	if r.notifier != nil {
		if err := r.notifier.PaymentGranted(ctx, user, event); err != nil {
			log.Warn("failed to publish grant notification", sl.Err(err))
		}
	}

	log.Info("access granted", slog.String("user_uid", user.UID))
	reconcileOutcomes.WithLabelValues(string(OutcomeGranted)).Inc()
	return Outcome{Kind: OutcomeGranted}, nil
}

// rollbackLedger снимает запись журнала и быстрый ключ, чтобы повторная
// доставка события могла быть обработана.
func (r *Reconciler) rollbackLedger(ctx context.Context, eventID string, log *slog.Logger) {
	if err := r.ledger.UnmarkEventProcessed(ctx, eventID); err != nil {
		log.Error("failed to rollback ledger insert", sl.Err(err))
	}
	if err := r.cache.Invalidate(eventCacheKey(eventID)); err != nil {
		log.Warn("failed to drop idempotency cache key", sl.Err(err))
	}
}
