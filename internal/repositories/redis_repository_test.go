package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aaravmahajanofficial/itemstore/internal/config"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckCheckoutRateLimit(t *testing.T) {
	ctx := t.Context()
	fixed := time.Unix(1_700_000_100, 0)
	cfg := config.RateConfig{MaxAttempts: 3, WindowSize: time.Minute}
	key := "checkout_attempts:session-1"
	windowStart := fmt.Sprintf("%d", fixed.Unix()-60)

	newRepo := func() (*redisRepository, redismock.ClientMock) {
		client, mock := redismock.NewClientMock()
		return &redisRepository{client: client, cfg: cfg, now: func() time.Time { return fixed }}, mock
	}

	expectPipeline := func(mock redismock.ClientMock, attempts int64) {
		mock.ExpectZRemRangeByScore(key, "0", windowStart).SetVal(0)
		mock.ExpectZAdd(key, redis.Z{Score: float64(fixed.Unix()), Member: fixed.UnixNano()}).SetVal(1)
		mock.ExpectZCard(key).SetVal(attempts)
		mock.ExpectExpire(key, time.Minute).SetVal(true)
	}

	t.Run("Allowed", func(t *testing.T) {
		// Arrange
		repo, mock := newRepo()
		expectPipeline(mock, 2)

		// Act
		allowed, remaining, retryAfter, err := repo.CheckCheckoutRateLimit(ctx, "session-1")

		// Assert
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 1, remaining)
		assert.Zero(t, retryAfter)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Exceeded", func(t *testing.T) {
		// Arrange
		repo, mock := newRepo()
		expectPipeline(mock, 4)
		mock.ExpectZRangeArgsWithScores(redis.ZRangeArgs{Key: key, Start: 0, Stop: 0}).
			SetVal([]redis.Z{{Score: float64(fixed.Unix() - 20), Member: "1700000080"}})

		// Act
		allowed, remaining, retryAfter, err := repo.CheckCheckoutRateLimit(ctx, "session-1")

		// Assert
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Zero(t, remaining)
		assert.Equal(t, 40, retryAfter)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Pipeline error", func(t *testing.T) {
		// Arrange
		repo, mock := newRepo()
		mock.ExpectZRemRangeByScore(key, "0", windowStart).SetErr(errors.New("connection lost"))

		// Act
		allowed, _, _, err := repo.CheckCheckoutRateLimit(ctx, "session-1")

		// Assert
		require.Error(t, err)
		assert.False(t, allowed)
		assert.Contains(t, err.Error(), "redis pipeline error")
	})
}
