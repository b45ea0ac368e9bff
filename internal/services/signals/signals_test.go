package signals

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/stock-signals/internal/models"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetUserByUID(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// fakeCache — кеш в памяти, достаточно для проверки заполнения и чтения.
type fakeCache struct {
	data map[string][]models.Signal
	err  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]models.Signal)}
}

func (c *fakeCache) Get(key string, result any) (bool, error) {
	if c.err != nil {
		return false, c.err
	}
	signals, ok := c.data[key]
	if !ok {
		return false, nil
	}
	*result.(*[]models.Signal) = signals
	return true, nil
}

func (c *fakeCache) Set(key string, value any, _ time.Duration) error {
	if c.err != nil {
		return c.err
	}
	c.data[key] = value.([]models.Signal)
	return nil
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestList_FreeUserSeesLimitedSet(t *testing.T) {
	service := NewSignalService(new(MockUserRepository), newFakeCache(), newNoopLogger())

	result := service.List(&models.User{UID: "u1", IsPaid: false})

	assert.Len(t, result.Signals, FreeUserSignalLimit)
	assert.True(t, result.IsLimited)
	assert.Equal(t, len(fixtureSignals), result.TotalCount)
	// Порядок стабилен: урезанный список — префикс полного.
	assert.Equal(t, "NIFTY", result.Signals[0].Symbol)
	assert.Equal(t, "BANKNIFTY", result.Signals[1].Symbol)
	assert.Equal(t, "RELIANCE", result.Signals[2].Symbol)
}

func TestList_PaidUserSeesFullSet(t *testing.T) {
	service := NewSignalService(new(MockUserRepository), newFakeCache(), newNoopLogger())

	result := service.List(&models.User{UID: "u1", IsPaid: true})

	assert.Len(t, result.Signals, len(fixtureSignals))
	assert.False(t, result.IsLimited)
	assert.Equal(t, len(fixtureSignals), result.TotalCount)
}

func TestListForUser_LoadsUserAndGates(t *testing.T) {
	tests := []struct {
		name      string
		isPaid    bool
		wantCount int
		wantLimit bool
	}{
		{name: "free user gets three", isPaid: false, wantCount: FreeUserSignalLimit, wantLimit: true},
		{name: "paid user gets all", isPaid: true, wantCount: len(fixtureSignals), wantLimit: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserRepository)
			users.On("GetUserByUID", mock.Anything, "user-uid-1").
				Return(&models.User{UID: "user-uid-1", IsPaid: tt.isPaid}, nil).Once()

			service := NewSignalService(users, newFakeCache(), newNoopLogger())
			result, err := service.ListForUser(context.Background(), "user-uid-1")

			require.NoError(t, err)
			assert.Len(t, result.Signals, tt.wantCount)
			assert.Equal(t, tt.wantLimit, result.IsLimited)
			users.AssertExpectations(t)
		})
	}
}

func TestListForUser_UserLookupError(t *testing.T) {
	users := new(MockUserRepository)
	users.On("GetUserByUID", mock.Anything, "user-uid-1").
		Return(nil, errors.New("db error")).Once()

	service := NewSignalService(users, newFakeCache(), newNoopLogger())
	result, err := service.ListForUser(context.Background(), "user-uid-1")

	assert.Nil(t, result)
	assert.Error(t, err)
}

func TestList_FillsAndReusesCache(t *testing.T) {
	cache := newFakeCache()
	service := NewSignalService(new(MockUserRepository), cache, newNoopLogger())

	first := service.List(&models.User{IsPaid: true})
	cached, ok := cache.data[signalsCacheKey]
	require.True(t, ok)
	assert.Len(t, cached, len(fixtureSignals))

	second := service.List(&models.User{IsPaid: true})
	assert.Equal(t, first.Signals, second.Signals)
}

func TestList_CacheFailureFallsBackToFixture(t *testing.T) {
	cache := newFakeCache()
	cache.err = errors.New("redis down")
	service := NewSignalService(new(MockUserRepository), cache, newNoopLogger())

	result := service.List(&models.User{IsPaid: false})

	assert.Len(t, result.Signals, FreeUserSignalLimit)
	assert.Equal(t, len(fixtureSignals), result.TotalCount)
}
