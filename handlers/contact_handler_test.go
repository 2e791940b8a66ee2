package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/joeyportfolio/portfolio/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestContactHandler_SubmitContact(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		wantStatus int
		wantCall   bool
	}{
		{
			name:       "accepted",
			body:       map[string]string{"name": "Ada", "email": "ada@example.com", "message": "Hello"},
			wantStatus: http.StatusAccepted,
			wantCall:   true,
		},
		{
			name:       "invalid email",
			body:       map[string]string{"name": "Ada", "email": "not-an-email", "message": "Hello"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing message",
			body:       map[string]string{"name": "Ada", "email": "ada@example.com"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "blank name",
			body:       map[string]string{"name": "  ", "email": "ada@example.com", "message": "Hello"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockContactService)
			svc.On("Submit", mock.Anything, mock.Anything).
				Return(types.ContactReceipt{Status: "received"})
			r := buildRouter(http.MethodPost, "/v1/contact", NewContactHandler(svc).SubmitContact)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, postJSON("/v1/contact", tt.body))

			assert.Equal(t, tt.wantStatus, w.Code)
			if !tt.wantCall {
				svc.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
				return
			}
			var receipt types.ContactReceipt
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &receipt))
			assert.Equal(t, "received", receipt.Status)
			assert.Empty(t, receipt.Form.Name)
			svc.AssertExpectations(t)
		})
	}
}
