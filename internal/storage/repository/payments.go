package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/stock-signals/internal/models"
)

// Payment — журнальная запись о проведенном платеже.
type Payment struct {
	ID        int
	UserUID   string
	EventID   string
	Gateway   string
	Amount    int64
	Currency  string
	Status    string
	CreatedAt time.Time
}

// SavePayment сохраняет журнальную запись о платеже.
func (s *Storage) SavePayment(ctx context.Context, event *models.PaymentEvent, userUID string) (int, error) {
	const op = "storage.SavePayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payments (user_uid, event_id, gateway, amount, currency, status, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, NOW()) RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		userUID, event.EventID, string(event.Gateway), event.Amount,
		event.Currency, string(event.Status)).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ListPayments возвращает платежи пользователя, новые первыми.
func (s *Storage) ListPayments(ctx context.Context, userUID string) ([]*Payment, error) {
	const op = "storage.ListPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, event_id, gateway, amount, currency, status, created_at
			  FROM payments
			  WHERE user_uid = $1
			  ORDER BY created_at DESC`
	rows, err := s.DB.QueryContext(ctx, query, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.UserUID, &p.EventID, &p.Gateway,
			&p.Amount, &p.Currency, &p.Status, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
