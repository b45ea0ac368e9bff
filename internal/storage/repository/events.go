package repository

import (
	"context"
	"fmt"
)

// MarkEventProcessed атомарно фиксирует event_id в журнале обработанных событий.
// Уникальный индекс по event_id делает вставку линеаризуемой точкой принятия
// решения при конкурентных доставках одного события: победитель получает true,
// все остальные — false без ошибки.
func (s *Storage) MarkEventProcessed(ctx context.Context, eventID, gateway string) (bool, error) {
	const op = "storage.MarkEventProcessed"
	select {
	case <-ctx.Done():
		return false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO processed_events (event_id, gateway)
			  VALUES ($1, $2)
			  ON CONFLICT (event_id) DO NOTHING`
	res, err := s.DB.ExecContext(ctx, query, eventID, gateway)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return affected > 0, nil
}

// UnmarkEventProcessed удаляет event_id из журнала обработанных событий.
// Используется для отката, когда событие принято, но пользователь
// из него неизвестен: повторная доставка с исправленным маппингом
// должна иметь шанс пройти.
func (s *Storage) UnmarkEventProcessed(ctx context.Context, eventID string) error {
	const op = "storage.UnmarkEventProcessed"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM processed_events WHERE event_id = $1`
	if _, err := s.DB.ExecContext(ctx, query, eventID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
