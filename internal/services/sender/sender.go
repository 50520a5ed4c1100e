// Package sender turns membership events into customer e-mails.
package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/dynasty-membership/internal/lib/sl"
	"github.com/magabrotheeeer/dynasty-membership/internal/lib/smtp"
	"github.com/magabrotheeeer/dynasty-membership/internal/models"
	"github.com/magabrotheeeer/dynasty-membership/internal/rabbitmq"
)

const lookupTimeout = 5 * time.Second

// UserRepository resolves the recipient of an event.
type UserRepository interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// SenderService delivers notification e-mails.
type SenderService struct {
	repo      UserRepository
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewSenderService creates a SenderService.
func NewSenderService(repo UserRepository, log *slog.Logger, transport smtp.TransportInterface) *SenderService {
	return &SenderService{
		repo:      repo,
		transport: transport,
		log:       log,
	}
}

// SendMembershipActivated handles a membership.activated message.
func (s *SenderService) SendMembershipActivated(body []byte) error {
	const op = "services.sender.SendMembershipActivated"
	var event models.MembershipEvent
	if err := decode(body, &event); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.recipient(event.UserID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	text := fmt.Sprintf("Hello, %s!\n\nYour Dynasty Premium membership is now active.\n"+
		"Amount paid: ₹%d (%s)\nValid until: %s\n\nEnjoy your member prices on milk, coconut and more.",
		user.Name, event.AmountPaid, event.PaymentMethod, event.EndDate.Format("02 Jan 2006"))
	return s.sendEmail(user.Email, "Your Premium membership is active", text)
}

// SendWalletCredited handles a wallet.credited message.
func (s *SenderService) SendWalletCredited(body []byte) error {
	const op = "services.sender.SendWalletCredited"
	var event models.WalletEvent
	if err := decode(body, &event); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.recipient(event.UserID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	text := fmt.Sprintf("Hello, %s!\n\n₹%s has been added to your Dynasty wallet.\n"+
		"Current balance: ₹%s\nPayment reference: %s",
		user.Name, event.Amount.StringFixed(2), event.Balance.StringFixed(2), event.PaymentID)
	return s.sendEmail(user.Email, "Wallet top-up successful", text)
}

// SendMembershipExpiring handles a membership.expiring message.
func (s *SenderService) SendMembershipExpiring(body []byte) error {
	const op = "services.sender.SendMembershipExpiring"
	var m models.ExpiringMembership
	if err := decode(body, &m); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if m.Email == "" {
		return fmt.Errorf("%s: %w: reminder without recipient", op, rabbitmq.ErrDrop)
	}

	text := fmt.Sprintf("Hello, %s!\n\nYour %s membership ends tomorrow (%s).\n"+
		"Renew now to keep up to 80%% off on your daily essentials.",
		m.Name, m.PlanName, m.EndDate.Format("02 Jan 2006"))
	return s.sendEmail(m.Email, "Your Premium membership ends tomorrow", text)
}

func decode(body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: error unmarshalling message: %w", rabbitmq.ErrDrop, err)
	}
	return nil
}

// recipient loads an enabled user; unknown or disabled users drop the message.
func (s *SenderService) recipient(userID string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s not found", rabbitmq.ErrDrop, userID)
		}
		return nil, err
	}
	if !user.IsEnabled || user.Email == "" {
		return nil, fmt.Errorf("%w: user %s cannot receive mail", rabbitmq.ErrDrop, userID)
	}
	return user, nil
}

func (s *SenderService) sendEmail(to, subject, bodyText string) error {
	from := s.transport.GetSMTPUser()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err = client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}
	if err = client.Rcpt(to); err != nil {
		s.log.Error("failed to set RCPT TO", slog.String("recipient", to), sl.Err(err))
		return err
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get data writer", sl.Err(err))
		return err
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err = wc.Close(); err != nil {
		s.log.Error("failed to close data writer", sl.Err(err))
		return err
	}
	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent", slog.String("to", to), slog.String("subject", subject))
	return nil
}
