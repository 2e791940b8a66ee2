package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/joeyportfolio/portfolio/logger"
	"github.com/joeyportfolio/portfolio/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

type mockPinger struct {
	mock.Mock
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestNewHealthService(t *testing.T) {
	service := NewHealthService(&mockPinger{}, nil, "1.0.0")

	assert.Equal(t, "1.0.0", service.version)
	assert.NotNil(t, service.log)
	assert.True(t, time.Since(service.startTime) < time.Second)
	assert.Nil(t, service.activeSessions)
}

func TestHealthService_CheckHealth(t *testing.T) {
	tests := []struct {
		name           string
		storeErr       error
		withRedis      bool
		redisErr       error
		expectedStatus types.HealthStatus
		expectedComps  map[string]types.HealthStatus
	}{
		{
			name:           "store healthy without redis",
			expectedStatus: types.HealthStatusUp,
			expectedComps:  map[string]types.HealthStatus{"store": types.HealthStatusUp},
		},
		{
			name:           "store down",
			storeErr:       errors.New("connection refused"),
			expectedStatus: types.HealthStatusDown,
			expectedComps:  map[string]types.HealthStatus{"store": types.HealthStatusDown},
		},
		{
			name:           "all healthy with redis",
			withRedis:      true,
			expectedStatus: types.HealthStatusUp,
			expectedComps: map[string]types.HealthStatus{
				"store": types.HealthStatusUp,
				"redis": types.HealthStatusUp,
			},
		},
		{
			name:           "redis down degrades",
			withRedis:      true,
			redisErr:       errors.New("redis unavailable"),
			expectedStatus: types.HealthStatusDegraded,
			expectedComps: map[string]types.HealthStatus{
				"store": types.HealthStatusUp,
				"redis": types.HealthStatusDown,
			},
		},
		{
			name:           "store down wins over redis",
			storeErr:       errors.New("connection refused"),
			withRedis:      true,
			redisErr:       errors.New("redis unavailable"),
			expectedStatus: types.HealthStatusDown,
			expectedComps: map[string]types.HealthStatus{
				"store": types.HealthStatusDown,
				"redis": types.HealthStatusDown,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pinger := &mockPinger{}
			pinger.On("Ping", mock.Anything).Return(tt.storeErr)

			service := NewHealthService(pinger, nil, "1.0.0")
			var redisMock redismock.ClientMock
			if tt.withRedis {
				client, m := redismock.NewClientMock()
				redisMock = m
				if tt.redisErr != nil {
					redisMock.ExpectPing().SetErr(tt.redisErr)
				} else {
					redisMock.ExpectPing().SetVal("PONG")
				}
				service = NewHealthService(pinger, client, "1.0.0")
			}
			service.SetActiveSessionsGetter(func() int { return 2 })

			health := service.CheckHealth(context.Background())

			assert.Equal(t, tt.expectedStatus, health.Status)
			assert.Equal(t, "1.0.0", health.Version)
			assert.Equal(t, 2, health.ActiveViews)
			assert.NotEmpty(t, health.Timestamp)
			require.Len(t, health.Components, len(tt.expectedComps))
			for name, status := range tt.expectedComps {
				assert.Equal(t, status, health.Components[name].Status, name)
			}
			pinger.AssertExpectations(t)
			if redisMock != nil {
				assert.NoError(t, redisMock.ExpectationsWereMet())
			}
		})
	}
}

func TestHealthService_CheckReadiness(t *testing.T) {
	pinger := &mockPinger{}
	pinger.On("Ping", mock.Anything).Return(nil).Once()
	pinger.On("Ping", mock.Anything).Return(errors.New("down")).Once()

	service := NewHealthService(pinger, nil, "dev")
	assert.NoError(t, service.CheckReadiness(context.Background()))
	assert.Error(t, service.CheckReadiness(context.Background()))
	pinger.AssertExpectations(t)
}
