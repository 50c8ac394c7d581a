package services

import (
	"context"
	"time"

	"github.com/NomadCrew/nomad-crew-settlement/logger"
	"github.com/NomadCrew/nomad-crew-settlement/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// slowPingThreshold marks a dependency degraded when its ping exceeds it.
const slowPingThreshold = 500 * time.Millisecond

// DatabasePinger is satisfied by *pgxpool.Pool and pgxmock pools.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

type HealthService struct {
	db          DatabasePinger
	redisClient redis.UniversalClient
	version     string
	startTime   time.Time
	log         *zap.SugaredLogger
}

// NewHealthService creates a health checker. A nil db means the in-memory store
// is in use; a nil redis client means no Redis-backed feature is enabled.
func NewHealthService(db DatabasePinger, redisClient redis.UniversalClient, version string) *HealthService {
	return &HealthService{
		db:          db,
		redisClient: redisClient,
		version:     version,
		startTime:   time.Now(),
		log:         logger.GetLogger().Named("health"),
	}
}

func (h *HealthService) CheckHealth(ctx context.Context) types.HealthCheck {
	components := make(map[string]types.HealthComponent)

	components["database"] = h.checkDatabase(ctx)
	if h.redisClient != nil {
		components["redis"] = h.checkRedis(ctx)
	}

	overallStatus := types.HealthStatusUp
	for _, c := range components {
		switch c.Status {
		case types.HealthStatusDown:
			overallStatus = types.HealthStatusDown
		case types.HealthStatusDegraded:
			if overallStatus != types.HealthStatusDown {
				overallStatus = types.HealthStatusDegraded
			}
		}
	}

	return types.HealthCheck{
		Status:     overallStatus,
		Components: components,
		Version:    h.version,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
	}
}

func (h *HealthService) checkDatabase(ctx context.Context) types.HealthComponent {
	if h.db == nil {
		return types.HealthComponent{Status: types.HealthStatusUp, Details: "in-memory store"}
	}

	start := time.Now()
	if err := h.db.Ping(ctx); err != nil {
		h.log.Errorw("Database health check failed", "error", err)
		return types.HealthComponent{
			Status:  types.HealthStatusDown,
			Details: "Database connection failed",
		}
	}
	if time.Since(start) > slowPingThreshold {
		return types.HealthComponent{
			Status:  types.HealthStatusDegraded,
			Details: "Database responding slowly",
		}
	}

	return types.HealthComponent{Status: types.HealthStatusUp}
}

func (h *HealthService) checkRedis(ctx context.Context) types.HealthComponent {
	start := time.Now()
	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		h.log.Errorw("Redis health check failed", "error", err)
		return types.HealthComponent{
			Status:  types.HealthStatusDown,
			Details: "Redis connection failed",
		}
	}
	if time.Since(start) > slowPingThreshold {
		return types.HealthComponent{
			Status:  types.HealthStatusDegraded,
			Details: "Redis responding slowly",
		}
	}

	return types.HealthComponent{Status: types.HealthStatusUp}
}
