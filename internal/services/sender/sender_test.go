package sender

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/tresoflow/entitlement-service/internal/lib/smtp"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) GetSMTPUser() string {
	args := m.Called()
	return args.String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error {
	args := m.Called(from)
	return args.Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	args := m.Called(to)
	return args.Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSMTPClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSMTPClient) Quit() error {
	args := m.Called()
	return args.Error(0)
}

type MockSMTPWriter struct {
	mock.Mock
}

func (m *MockSMTPWriter) Write(p []byte) (n int, err error) {
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *MockSMTPWriter) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func successfulSend(t *MockTransport, recipient string) {
	mockClient := new(MockSMTPClient)
	mockWriter := new(MockSMTPWriter)

	t.On("GetSMTPUser").Return("notifications@tresoflow.fr")
	t.On("Connect").Return(mockClient, nil).Once()
	mockClient.On("Mail", "notifications@tresoflow.fr").Return(nil).Once()
	mockClient.On("Rcpt", recipient).Return(nil).Once()
	mockClient.On("Data").Return(mockWriter, nil).Once()
	mockWriter.On("Write", mock.AnythingOfType("[]uint8")).Return(100, nil).Once()
	mockWriter.On("Close").Return(nil).Once()
	mockClient.On("Quit").Return(nil).Once()
	mockClient.On("Close").Return(nil).Once()
}

func TestSenderService_SendTrialExpiryNotice(t *testing.T) {
	tests := []struct {
		name          string
		body          []byte
		setupMocks    func(*MockTransport)
		expectedError bool
		errorMessage  string
	}{
		{
			name: "success - отправка уведомления о скором окончании",
			body: []byte(`{"email":"marie@tresoflow.fr","username":"marie","trial_end_date":"2025-03-24T12:00:00Z"}`),
			setupMocks: func(tr *MockTransport) {
				successfulSend(tr, "marie@tresoflow.fr")
			},
			expectedError: false,
		},
		{
			name:          "невалидный JSON в теле сообщения",
			body:          []byte(`{not json`),
			setupMocks:    func(*MockTransport) {},
			expectedError: true,
			errorMessage:  "error unmarshalling notice",
		},
		{
			name: "ошибка подключения к SMTP серверу",
			body: []byte(`{"email":"marie@tresoflow.fr","username":"marie","trial_end_date":"2025-03-24T12:00:00Z"}`),
			setupMocks: func(tr *MockTransport) {
				tr.On("GetSMTPUser").Return("notifications@tresoflow.fr")
				tr.On("Connect").Return(nil, errors.New("connection refused")).Once()
			},
			expectedError: true,
			errorMessage:  "failed to connect to SMTP server",
		},
		{
			name: "ошибка установки получателя",
			body: []byte(`{"email":"marie@tresoflow.fr","username":"marie","trial_end_date":"2025-03-24T12:00:00Z"}`),
			setupMocks: func(tr *MockTransport) {
				mockClient := new(MockSMTPClient)
				tr.On("GetSMTPUser").Return("notifications@tresoflow.fr")
				tr.On("Connect").Return(mockClient, nil).Once()
				mockClient.On("Mail", "notifications@tresoflow.fr").Return(nil).Once()
				mockClient.On("Rcpt", "marie@tresoflow.fr").Return(errors.New("mailbox unavailable")).Once()
				mockClient.On("Close").Return(nil).Once()
			},
			expectedError: true,
			errorMessage:  "failed to set recipient",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockTransport)
			tt.setupMocks(transport)

			service := New(transport, newNoopLogger())
			err := service.SendTrialExpiryNotice(tt.body)

			if tt.expectedError {
				assert.Error(t, err)
				if tt.errorMessage != "" {
					assert.Contains(t, err.Error(), tt.errorMessage)
				}
			} else {
				assert.NoError(t, err)
			}

			transport.AssertExpectations(t)
		})
	}
}

func TestSenderService_SendTrialExpiredNotice(t *testing.T) {
	tests := []struct {
		name          string
		body          []byte
		setupMocks    func(*MockTransport)
		expectedError bool
		errorMessage  string
	}{
		{
			name: "success - отправка уведомления об истёкшем пробном периоде",
			body: []byte(`{"email":"paul@tresoflow.fr","username":"paul","trial_end_date":"2025-03-10T00:00:00Z"}`),
			setupMocks: func(tr *MockTransport) {
				successfulSend(tr, "paul@tresoflow.fr")
			},
			expectedError: false,
		},
		{
			name:          "невалидный JSON в теле сообщения",
			body:          []byte(`broken`),
			setupMocks:    func(*MockTransport) {},
			expectedError: true,
			errorMessage:  "error unmarshalling notice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockTransport)
			tt.setupMocks(transport)

			service := New(transport, newNoopLogger())
			err := service.SendTrialExpiredNotice(tt.body)

			if tt.expectedError {
				assert.Error(t, err)
				if tt.errorMessage != "" {
					assert.Contains(t, err.Error(), tt.errorMessage)
				}
			} else {
				assert.NoError(t, err)
			}

			transport.AssertExpectations(t)
		})
	}
}
