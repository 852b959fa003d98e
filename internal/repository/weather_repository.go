package repository

import (
	"context"
	"encoding/json"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"github.com/NazeerGreene/WeatherApp/internal/client"
	"github.com/NazeerGreene/WeatherApp/internal/config"
	"github.com/NazeerGreene/WeatherApp/internal/model"
	"github.com/NazeerGreene/WeatherApp/internal/observability"
	"github.com/NazeerGreene/WeatherApp/internal/redis"
)

// redisCmdable is the slice of the Redis client the repository needs. Narrowed
// so unit tests can substitute a mock.
type redisCmdable interface {
	Get(ctx context.Context, key string) *redisv9.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redisv9.StatusCmd
}

// WeatherRepository defines the interface for weather data access
type WeatherRepository interface {
	GetWeather(ctx context.Context, query model.WeatherQuery) (*model.WeatherResponse, error)
}

// weatherRepository implements WeatherRepository as a read-through cache:
// Redis first, upstream on miss, best-effort write-back with TTL.
type weatherRepository struct {
	redisClient   redisCmdable
	weatherClient client.WeatherClient
	ttl           time.Duration
}

// NewWeatherRepository creates a new weather repository instance backed by the
// shared Redis client and the given upstream client.
func NewWeatherRepository(weatherClient client.WeatherClient) WeatherRepository {
	return &weatherRepository{
		redisClient:   redis.GetClient(),
		weatherClient: weatherClient,
		ttl:           config.GetCacheExpiration(),
	}
}

// GetWeather retrieves weather data, checking cache first, then the upstream
// provider. Within the TTL window the upstream is invoked at most once per
// cache key. Cache failures degrade to a miss and never fail the request.
func (r *weatherRepository) GetWeather(ctx context.Context, query model.WeatherQuery) (*model.WeatherResponse, error) {
	cacheKey := query.CacheKey()

	if cached, err := r.getFromCache(ctx, cacheKey); err == nil {
		observability.CacheHitsTotal.Inc()
		return cached, nil
	} else if err != redisv9.Nil {
		observability.CacheErrorsTotal.Inc()
		config.GetLogger().Debugw("cache read failed, falling through to upstream", "key", cacheKey, "error", err)
	}
	observability.CacheMissesTotal.Inc()

	weather, err := r.weatherClient.Fetch(ctx, query)
	if err != nil {
		return nil, err
	}

	r.cacheWeather(ctx, cacheKey, weather)

	return weather, nil
}

// getFromCache retrieves weather data from Redis. A redisv9.Nil error means
// the key is absent or expired.
func (r *weatherRepository) getFromCache(ctx context.Context, cacheKey string) (*model.WeatherResponse, error) {
	val, err := r.redisClient.Get(ctx, cacheKey).Result()
	if err != nil {
		return nil, err
	}

	var weather model.WeatherResponse
	if err := json.Unmarshal([]byte(val), &weather); err != nil {
		return nil, err
	}
	return &weather, nil
}

// cacheWeather stores weather data in Redis. Write failures are logged and
// swallowed; the cache is an optimization, not a correctness dependency.
func (r *weatherRepository) cacheWeather(ctx context.Context, cacheKey string, weather *model.WeatherResponse) {
	b, err := json.Marshal(weather)
	if err != nil {
		return
	}
	if err := r.redisClient.Set(ctx, cacheKey, b, r.ttl).Err(); err != nil {
		observability.CacheErrorsTotal.Inc()
		config.GetLogger().Debugw("cache write failed", "key", cacheKey, "error", err)
	}
}
