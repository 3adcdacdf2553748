package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
)

func TestSummaryCache_GetAndSet(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	cache := NewSummaryCache(rdb)
	ctx := context.Background()

	t.Run("hit under the current generation", func(t *testing.T) {
		cached, _ := json.Marshal(map[string]float64{"income": 250})

		mock.ExpectGet("summary:generation").SetVal("3")
		mock.ExpectGet("summary:v3:period:monthly:1:2").SetVal(string(cached))

		var dst map[string]float64
		assert.True(t, cache.Get(ctx, "period:monthly:1:2", &dst))
		assert.Equal(t, 250.0, dst["income"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("miss", func(t *testing.T) {
		mock.ExpectGet("summary:generation").RedisNil()
		mock.ExpectGet("summary:v0:period:monthly:1:2").RedisNil()

		var dst map[string]float64
		assert.False(t, cache.Get(ctx, "period:monthly:1:2", &dst))
	})

	t.Run("set stores under the current generation with a TTL", func(t *testing.T) {
		payload := map[string]float64{"expense": 40}
		data, _ := json.Marshal(payload)

		mock.ExpectGet("summary:generation").SetVal("3")
		mock.ExpectSet("summary:v3:period:weekly:9:10", data, 5*time.Minute).SetVal("OK")

		cache.Set(ctx, "period:weekly:9:10", payload)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("bump advances the generation", func(t *testing.T) {
		mock.ExpectIncr("summary:generation").SetVal(4)

		cache.Bump(ctx)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSummaryCache_Disabled(t *testing.T) {
	// A nil client means Redis was unreachable at startup; every method is
	// a no-op and reads always miss.
	cache := NewSummaryCache(nil)
	ctx := context.Background()

	var dst map[string]float64
	assert.False(t, cache.Get(ctx, "period:monthly:1:2", &dst))
	cache.Set(ctx, "period:monthly:1:2", map[string]float64{"income": 1})
	cache.Bump(ctx)
}
