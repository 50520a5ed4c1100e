package sender

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/dynasty-membership/internal/lib/smtp"
	"github.com/magabrotheeeer/dynasty-membership/internal/models"
	"github.com/magabrotheeeer/dynasty-membership/internal/rabbitmq"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

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
	return m.Called(from).Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	return m.Called(to).Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSMTPClient) Close() error {
	return m.Called().Error(0)
}

func (m *MockSMTPClient) Quit() error {
	return m.Called().Error(0)
}

// bufWriter records what was written to the DATA stream.
type bufWriter struct {
	data   []byte
	closed bool
}

func (w *bufWriter) Write(p []byte) (int, error) {
	w.data = append(w.data, p...)
	return len(p), nil
}

func (w *bufWriter) Close() error {
	w.closed = true
	return nil
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func expectDelivery(tr *MockTransport, to string) *bufWriter {
	client := new(MockSMTPClient)
	w := &bufWriter{}
	tr.On("GetSMTPUser").Return("noreply@dynasty.example")
	tr.On("Connect").Return(client, nil).Once()
	client.On("Mail", "noreply@dynasty.example").Return(nil).Once()
	client.On("Rcpt", to).Return(nil).Once()
	client.On("Data").Return(w, nil).Once()
	client.On("Quit").Return(nil).Once()
	client.On("Close").Return(nil).Once()
	return w
}

const userID = "0b7d9a7e-2d0c-4a8e-8d7c-3b0a7b9e2c11"

var customer = &models.User{ID: userID, Name: "Asha", Email: "asha@example.com", Role: models.RoleCustomer, IsEnabled: true}

func TestSenderService_SendMembershipActivated(t *testing.T) {
	repo := new(MockRepository)
	tr := new(MockTransport)
	repo.On("GetUser", mock.Anything, userID).Return(customer, nil).Once()
	w := expectDelivery(tr, customer.Email)

	body := []byte(`{"subscription_id":"s1","user_id":"` + userID + `","status":"Active","payment_method":"Wallet","amount_paid":1180,"end_date":"2025-04-09T00:00:00Z"}`)
	err := NewSenderService(repo, newNoopLogger(), tr).SendMembershipActivated(body)
	require.NoError(t, err)

	assert.True(t, w.closed)
	assert.Contains(t, string(w.data), "To: asha@example.com")
	assert.Contains(t, string(w.data), "₹1180")
	assert.Contains(t, string(w.data), "09 Apr 2025")
	tr.AssertExpectations(t)
}

func TestSenderService_SendWalletCredited(t *testing.T) {
	repo := new(MockRepository)
	tr := new(MockTransport)
	repo.On("GetUser", mock.Anything, userID).Return(customer, nil).Once()
	w := expectDelivery(tr, customer.Email)

	body := []byte(`{"user_id":"` + userID + `","amount":"500.5","balance":"1680.5","payment_id":"pay_1"}`)
	err := NewSenderService(repo, newNoopLogger(), tr).SendWalletCredited(body)
	require.NoError(t, err)
	assert.Contains(t, string(w.data), "₹500.50 has been added")
	assert.Contains(t, string(w.data), "₹1680.50")
}

func TestSenderService_SendMembershipExpiring(t *testing.T) {
	tr := new(MockTransport)
	w := expectDelivery(tr, "asha@example.com")

	body := []byte(`{"subscription_id":"s1","email":"asha@example.com","name":"Asha","plan_name":"90 Days","end_date":"2025-03-11T10:00:00Z"}`)
	err := NewSenderService(new(MockRepository), newNoopLogger(), tr).SendMembershipExpiring(body)
	require.NoError(t, err)
	assert.Contains(t, string(w.data), "Your 90 Days membership ends tomorrow")
}

func TestSenderService_Failures(t *testing.T) {
	disabled := *customer
	disabled.IsEnabled = false

	tests := []struct {
		name     string
		send     func(s *SenderService) error
		setup    func(repo *MockRepository, tr *MockTransport)
		wantDrop bool
	}{
		{
			name:     "invalid json is dropped",
			send:     func(s *SenderService) error { return s.SendMembershipActivated([]byte(`invalid json`)) },
			setup:    func(*MockRepository, *MockTransport) {},
			wantDrop: true,
		},
		{
			name: "unknown user is dropped",
			send: func(s *SenderService) error { return s.SendWalletCredited([]byte(`{"user_id":"missing"}`)) },
			setup: func(repo *MockRepository, _ *MockTransport) {
				repo.On("GetUser", mock.Anything, "missing").Return(nil, models.ErrNotFound).Once()
			},
			wantDrop: true,
		},
		{
			name: "disabled user is dropped",
			send: func(s *SenderService) error { return s.SendWalletCredited([]byte(`{"user_id":"` + userID + `"}`)) },
			setup: func(repo *MockRepository, _ *MockTransport) {
				repo.On("GetUser", mock.Anything, userID).Return(&disabled, nil).Once()
			},
			wantDrop: true,
		},
		{
			name:     "reminder without email is dropped",
			send:     func(s *SenderService) error { return s.SendMembershipExpiring([]byte(`{"subscription_id":"s1"}`)) },
			setup:    func(*MockRepository, *MockTransport) {},
			wantDrop: true,
		},
		{
			name: "database error is retried",
			send: func(s *SenderService) error { return s.SendMembershipActivated([]byte(`{"user_id":"` + userID + `"}`)) },
			setup: func(repo *MockRepository, _ *MockTransport) {
				repo.On("GetUser", mock.Anything, userID).Return(nil, errors.New("db down")).Once()
			},
		},
		{
			name: "smtp connection error is retried",
			send: func(s *SenderService) error { return s.SendMembershipActivated([]byte(`{"user_id":"` + userID + `"}`)) },
			setup: func(repo *MockRepository, tr *MockTransport) {
				repo.On("GetUser", mock.Anything, userID).Return(customer, nil).Once()
				tr.On("GetSMTPUser").Return("noreply@dynasty.example")
				tr.On("Connect").Return(nil, errors.New("connection error")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tr := new(MockTransport)
			tt.setup(repo, tr)

			err := tt.send(NewSenderService(repo, newNoopLogger(), tr))
			require.Error(t, err)
			assert.Equal(t, tt.wantDrop, errors.Is(err, rabbitmq.ErrDrop))
			repo.AssertExpectations(t)
			tr.AssertExpectations(t)
		})
	}
}
