package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/joeyportfolio/portfolio/internal/feedback"
	"github.com/joeyportfolio/portfolio/internal/store"
	"github.com/joeyportfolio/portfolio/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFeedbackHandler_ListFeedback(t *testing.T) {
	now := time.Now().UTC()
	rows := []types.Feedback{
		{ID: "2", Name: "Bo", Message: "Second", Rating: 3, CreatedAt: now},
		{ID: "1", Name: "Ada", Message: "First", Rating: 5, CreatedAt: now.Add(-time.Minute)},
	}

	tests := []struct {
		name       string
		rows       []types.Feedback
		err        error
		wantStatus int
		wantCount  int
		wantType   string
	}{
		{name: "returns rows in store order", rows: rows, wantStatus: http.StatusOK, wantCount: 2},
		{name: "empty list is not null", rows: nil, wantStatus: http.StatusOK, wantCount: 0},
		{
			name:       "network failure is unavailable",
			err:        store.NewError(store.KindNetwork, "fetch", errors.New("dial tcp: refused")),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   "SERVICE_UNAVAILABLE",
		},
		{
			name:       "unknown failure is a store error",
			err:        store.NewError(store.KindUnknown, "fetch", errors.New("boom")),
			wantStatus: http.StatusInternalServerError,
			wantType:   "STORE_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockFeedbackService)
			if tt.err != nil {
				svc.On("List", mock.Anything).Return(nil, tt.err)
			} else {
				svc.On("List", mock.Anything).Return(tt.rows, nil)
			}
			r := buildRouter(http.MethodGet, "/v1/feedback", NewFeedbackHandler(svc).ListFeedback)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/v1/feedback", nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantType != "" {
				var resp types.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.wantType, resp.Type)
				assert.NotContains(t, w.Body.String(), "refused")
				return
			}

			assert.Contains(t, w.Body.String(), `"data":[`)
			var resp types.FeedbackListResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCount, resp.Count)
			if tt.wantCount > 0 {
				assert.Equal(t, "2", resp.Data[0].ID)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestFeedbackHandler_SubmitFeedback(t *testing.T) {
	created := types.Feedback{ID: "abc", Name: "Ada", Message: "Nice", Rating: 4, CreatedAt: time.Now().UTC()}

	t.Run("stores trimmed feedback", func(t *testing.T) {
		svc := new(MockFeedbackService)
		svc.On("Submit", mock.Anything, types.FeedbackCreate{Name: "Ada", Message: "Nice", Rating: 4}).Return(created, nil)
		r := buildRouter(http.MethodPost, "/v1/feedback", NewFeedbackHandler(svc).SubmitFeedback)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, postJSON("/v1/feedback", map[string]interface{}{"name": "  Ada ", "message": "Nice\n", "rating": 4}))

		assert.Equal(t, http.StatusCreated, w.Code)
		var got types.Feedback
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "abc", got.ID)
		svc.AssertExpectations(t)
	})

	t.Run("blank fields are rejected before the store", func(t *testing.T) {
		svc := new(MockFeedbackService)
		r := buildRouter(http.MethodPost, "/v1/feedback", NewFeedbackHandler(svc).SubmitFeedback)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, postJSON("/v1/feedback", map[string]interface{}{"name": "   ", "message": "hi", "rating": 4}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), feedback.MsgRequiredFields)
		svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})

	t.Run("malformed body", func(t *testing.T) {
		svc := new(MockFeedbackService)
		r := buildRouter(http.MethodPost, "/v1/feedback", NewFeedbackHandler(svc).SubmitFeedback)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, postJSON("/v1/feedback", "{nope"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
	})

	t.Run("rating out of range is a constraint violation", func(t *testing.T) {
		svc := new(MockFeedbackService)
		svc.On("Submit", mock.Anything, mock.Anything).
			Return(types.Feedback{}, store.NewError(store.KindConstraintViolation, "insert", errors.New("check constraint")))
		r := buildRouter(http.MethodPost, "/v1/feedback", NewFeedbackHandler(svc).SubmitFeedback)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, postJSON("/v1/feedback", map[string]interface{}{"name": "Ada", "message": "Hi", "rating": 9}))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		var resp types.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "VALIDATION_ERROR", resp.Type)
	})
}
