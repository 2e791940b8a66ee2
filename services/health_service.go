package services

import (
	"context"
	"time"

	"github.com/joeyportfolio/portfolio/logger"
	"github.com/joeyportfolio/portfolio/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const healthCheckTimeout = 3 * time.Second

// Pinger is anything that can report reachability. store.RecordClient
// satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthService struct {
	store          Pinger
	redisClient    *redis.Client
	version        string
	startTime      time.Time
	activeSessions func() int
	log            *zap.SugaredLogger
}

// NewHealthService creates a health service. redisClient may be nil when
// Redis is not in use.
func NewHealthService(store Pinger, redisClient *redis.Client, version string) *HealthService {
	return &HealthService{
		store:       store,
		redisClient: redisClient,
		version:     version,
		startTime:   time.Now(),
		log:         logger.GetLogger().Named("health"),
	}
}

// SetActiveSessionsGetter reports live feedback sessions in health output.
func (h *HealthService) SetActiveSessionsGetter(getter func() int) {
	h.activeSessions = getter
}

func (h *HealthService) CheckHealth(ctx context.Context) types.HealthCheck {
	components := make(map[string]types.HealthComponent)
	overallStatus := types.HealthStatusUp

	storeStatus := h.checkStore(ctx)
	components["store"] = storeStatus
	if storeStatus.Status == types.HealthStatusDown {
		overallStatus = types.HealthStatusDown
	}

	// Realtime over Redis is optional to serving the page; losing it degrades.
	if h.redisClient != nil {
		redisStatus := h.checkRedis(ctx)
		components["redis"] = redisStatus
		if redisStatus.Status != types.HealthStatusUp && overallStatus == types.HealthStatusUp {
			overallStatus = types.HealthStatusDegraded
		}
	}

	var active int
	if h.activeSessions != nil {
		active = h.activeSessions()
	}

	return types.HealthCheck{
		Status:      overallStatus,
		Components:  components,
		Version:     h.version,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		ActiveViews: active,
	}
}

// CheckReadiness reports whether the store answers.
func (h *HealthService) CheckReadiness(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	return h.store.Ping(ctx)
}

func (h *HealthService) checkStore(ctx context.Context) types.HealthComponent {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Errorw("Record store health check failed", "error", err)
		return types.HealthComponent{
			Status:  types.HealthStatusDown,
			Details: "Record store unreachable",
		}
	}
	return types.HealthComponent{Status: types.HealthStatusUp}
}

func (h *HealthService) checkRedis(ctx context.Context) types.HealthComponent {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := h.redisClient.Ping(ctx).Err(); err != nil {
		h.log.Errorw("Redis health check failed", "error", err)
		return types.HealthComponent{
			Status:  types.HealthStatusDown,
			Details: "Redis connection failed",
		}
	}
	return types.HealthComponent{Status: types.HealthStatusUp}
}
