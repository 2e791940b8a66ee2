package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joeyportfolio/portfolio/logger"
	"github.com/joeyportfolio/portfolio/middleware"
	"github.com/joeyportfolio/portfolio/types"
	"github.com/stretchr/testify/mock"
)

func init() {
	logger.IsTest = true
	gin.SetMode(gin.TestMode)
}

type MockFeedbackService struct {
	mock.Mock
}

func (m *MockFeedbackService) List(ctx context.Context) ([]types.Feedback, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Feedback), args.Error(1)
}

func (m *MockFeedbackService) Submit(ctx context.Context, fb types.FeedbackCreate) (types.Feedback, error) {
	args := m.Called(ctx, fb)
	return args.Get(0).(types.Feedback), args.Error(1)
}

type MockContactService struct {
	mock.Mock
}

func (m *MockContactService) Submit(ctx context.Context, msg types.ContactMessage) types.ContactReceipt {
	args := m.Called(ctx, msg)
	return args.Get(0).(types.ContactReceipt)
}

type MockHealthService struct {
	mock.Mock
}

func (m *MockHealthService) CheckHealth(ctx context.Context) types.HealthCheck {
	args := m.Called(ctx)
	return args.Get(0).(types.HealthCheck)
}

func (m *MockHealthService) CheckReadiness(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// compile-time checks
var (
	_ FeedbackServiceInterface = (*MockFeedbackService)(nil)
	_ ContactServiceInterface  = (*MockContactService)(nil)
	_ HealthServiceInterface   = (*MockHealthService)(nil)
)

func buildRouter(method, path string, handler gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Handle(method, path, handler)
	return r
}

func postJSON(path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	switch v := body.(type) {
	case string:
		buf.WriteString(v)
	default:
		_ = json.NewEncoder(&buf).Encode(v)
	}
	req, _ := http.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}
