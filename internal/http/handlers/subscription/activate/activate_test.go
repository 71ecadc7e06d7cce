package activate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tresoflow/entitlement-service/internal/http/middlewarectx"
	"github.com/tresoflow/entitlement-service/internal/models"
	"github.com/tresoflow/entitlement-service/internal/services/trial"
)

// MockTrialService реализует интерфейс activate.TrialService
type MockTrialService struct {
	mock.Mock
}

func (m *MockTrialService) ConvertTrialToSubscription(ctx context.Context, userUID string, subscriptionID int, endDate time.Time) (*models.Subscription, error) {
	args := m.Called(ctx, userUID, subscriptionID, endDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

// MockAccountService реализует интерфейс activate.AccountService
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) ActivateForUser(ctx context.Context, userUID string, validUntil time.Time) error {
	args := m.Called(ctx, userUID, validUntil)
	return args.Error(0)
}

func TestActivateHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	endDate := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		requestBody    interface{}
		userUID        string
		setupMocks     func(*MockTrialService, *MockAccountService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "успешная активация собственной подписки",
			requestBody: models.DummyActivate{SubscriptionID: 42, EndDate: "01-06-2026"},
			userUID:     "user123",
			setupMocks: func(trials *MockTrialService, accounts *MockAccountService) {
				trials.On("ConvertTrialToSubscription", mock.Anything, "user123", 42, endDate).
					Return(&models.Subscription{
						ID:      42,
						Status:  models.SubscriptionActive,
						EndDate: &endDate,
					}, nil)
				accounts.On("ActivateForUser", mock.Anything, "user123", endDate).Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"subscription_id":42,"status":"active","end_date":"2026-06-01T00:00:00Z"}}`,
		},
		{
			name:        "чужая подписка не активируется по угаданному ID",
			requestBody: models.DummyActivate{SubscriptionID: 42, EndDate: "01-06-2026"},
			userUID:     "attacker-uid",
			setupMocks: func(trials *MockTrialService, accounts *MockAccountService) {
				trials.On("ConvertTrialToSubscription", mock.Anything, "attacker-uid", 42, endDate).
					Return(nil, trial.ErrTrialNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"status":"Error","error":"trial subscription not found"}`,
		},
		{
			name:           "отсутствует авторизация",
			requestBody:    models.DummyActivate{SubscriptionID: 42, EndDate: "01-06-2026"},
			userUID:        "",
			setupMocks:     func(_ *MockTrialService, _ *MockAccountService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"missing user uid"}`,
		},
		{
			name:           "некорректный JSON",
			requestBody:    "not a json",
			userUID:        "user123",
			setupMocks:     func(_ *MockTrialService, _ *MockAccountService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name:           "некорректный формат даты",
			requestBody:    models.DummyActivate{SubscriptionID: 42, EndDate: "2026/06/01"},
			userUID:        "user123",
			setupMocks:     func(_ *MockTrialService, _ *MockAccountService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid end date format, expected 02-01-2006"}`,
		},
		{
			name:        "ошибка сервиса",
			requestBody: models.DummyActivate{SubscriptionID: 42, EndDate: "01-06-2026"},
			userUID:     "user123",
			setupMocks: func(trials *MockTrialService, accounts *MockAccountService) {
				trials.On("ConvertTrialToSubscription", mock.Anything, "user123", 42, endDate).
					Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"failed to activate subscription"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockTrials := new(MockTrialService)
			mockAccounts := new(MockAccountService)
			tt.setupMocks(mockTrials, mockAccounts)

			handler := New(logger, mockTrials, mockAccounts)

			var body []byte
			var err error
			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				body, err = json.Marshal(tt.requestBody)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/activate", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			ctx := context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID)
			ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-id")
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			mockTrials.AssertExpectations(t)
			mockAccounts.AssertExpectations(t)
			if tt.expectedStatus != http.StatusOK {
				mockAccounts.AssertNotCalled(t, "ActivateForUser")
			}
		})
	}
}
