// Package signals реализует выдачу торговых сигналов с учетом статуса
// подписки: бесплатные пользователи видят первые три записи набора,
// оплаченные — весь набор. Чистая функция от is_paid и фикстуры,
// состояние не мутируется.
package signals

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/stock-signals/internal/lib/sl"
	"github.com/magabrotheeeer/stock-signals/internal/models"
)

const (
	// FreeUserSignalLimit — число сигналов, доступных без оплаты.
	FreeUserSignalLimit = 3

	signalsCacheKey = "signals:all"
	signalsCacheTTL = 5 * time.Minute
)

// UserRepository возвращает пользователя по UID.
type UserRepository interface {
	GetUserByUID(ctx context.Context, userUID string) (*models.User, error)
}

// Cache описывает методы для кэширования набора сигналов.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
}

// SignalService отдает сигналы, кешируя фикстурный набор в Redis.
type SignalService struct {
	users UserRepository
	cache Cache
	log   *slog.Logger
}

// NewSignalService создает новый экземпляр SignalService.
func NewSignalService(users UserRepository, cache Cache, log *slog.Logger) *SignalService {
	return &SignalService{
		users: users,
		cache: cache,
		log:   log,
	}
}

// ListForUser возвращает сигналы для пользователя с учетом его подписки.
func (s *SignalService) ListForUser(ctx context.Context, userUID string) (*models.SignalsResponse, error) {
	const op = "signals.ListForUser"
	user, err := s.users.GetUserByUID(ctx, userUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.List(user), nil
}

// List возвращает сигналы с учетом статуса подписки пользователя.
func (s *SignalService) List(user *models.User) *models.SignalsResponse {
	all := s.signalsData()
	totalCount := len(all)

	if user.IsPaid {
		return &models.SignalsResponse{
			Signals:    all,
			IsLimited:  false,
			TotalCount: totalCount,
		}
	}

	limit := FreeUserSignalLimit
	if limit > totalCount {
		limit = totalCount
	}
	return &models.SignalsResponse{
		Signals:    all[:limit],
		IsLimited:  true,
		TotalCount: totalCount,
	}
}

// signalsData возвращает набор сигналов из кеша либо заполняет кеш
// свежей копией фикстуры.
func (s *SignalService) signalsData() []models.Signal {
	var cached []models.Signal
	found, err := s.cache.Get(signalsCacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read signals cache", sl.Err(err))
	}
	if found {
		return cached
	}

	result := freshSignals(time.Now().UTC())
	if err := s.cache.Set(signalsCacheKey, result, signalsCacheTTL); err != nil {
		s.log.Warn("failed to cache signals", slog.String("key", signalsCacheKey), sl.Err(err))
	}
	return result
}
