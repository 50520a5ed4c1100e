package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/magabrotheeeer/dynasty-membership/internal/models"
)

// GetWallet returns the wallet with its ledger, newest entry first.
func (s *Storage) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	const op = "storage.GetWallet"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	w := &models.Wallet{}
	err := s.DB.QueryRowContext(ctx,
		`SELECT user_id, balance, created_at, updated_at FROM wallets WHERE user_id = $1`,
		userID).Scan(&w.UserID, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT id, type, amount, description, payment_ref, created_at
			  FROM wallet_transactions
			  WHERE user_id = $1
			  ORDER BY created_at DESC, id DESC`
	rows, err := s.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	w.Transactions = []models.WalletTransaction{}
	for rows.Next() {
		var (
			t   models.WalletTransaction
			ref sql.NullString
		)
		if err = rows.Scan(&t.ID, &t.Type, &t.Amount, &t.Description, &ref, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		t.PaymentRef = stringPtr(ref)
		w.Transactions = append(w.Transactions, t)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return w, nil
}

// CreditWallet adds amount to the wallet, creating it on first credit, and returns the new balance.
func (s *Storage) CreditWallet(ctx context.Context, userID string, amount decimal.Decimal,
	description string, paymentRef *string) (decimal.Decimal, error) {
	const op = "storage.CreditWallet"
	if err := checkContext(ctx, op); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		balance, err = credit(ctx, tx, userID, amount, description, paymentRef)
		return err
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}
	return balance, nil
}

// CreditWalletOnce credits a gateway top-up. The payment is recorded in the same
// transaction, so a repeated delivery returns ErrAlreadyProcessed and credits nothing.
func (s *Storage) CreditWalletOnce(ctx context.Context, ev models.ProcessedPayment, userID string,
	amount decimal.Decimal, description string) (decimal.Decimal, error) {
	const op = "storage.CreditWalletOnce"
	if err := checkContext(ctx, op); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := markProcessed(ctx, tx, ev); err != nil {
			return err
		}
		ref := ev.PaymentID
		var err error
		balance, err = credit(ctx, tx, userID, amount, description, &ref)
		return err
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}
	return balance, nil
}

// DebitWallet removes amount from the wallet. A missing wallet or a short balance
// returns ErrInsufficientFunds and changes nothing.
func (s *Storage) DebitWallet(ctx context.Context, userID string, amount decimal.Decimal,
	description string) (decimal.Decimal, error) {
	const op = "storage.DebitWallet"
	if err := checkContext(ctx, op); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		balance, err = debit(ctx, tx, userID, amount, description)
		return err
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}
	return balance, nil
}

// PayWithWallet debits the wallet and activates the Processing subscription in one
// transaction. On any error neither the wallet nor the subscription changes.
func (s *Storage) PayWithWallet(ctx context.Context, subscriptionID, userID string,
	amount decimal.Decimal, description string) (*models.UserSubscription, decimal.Decimal, error) {
	const op = "storage.PayWithWallet"
	if err := checkContext(ctx, op); err != nil {
		return nil, decimal.Zero, err
	}

	var (
		sub     *models.UserSubscription
		balance decimal.Decimal
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		balance, err = debit(ctx, tx, userID, amount, description)
		if err != nil {
			return err
		}
		sub, err = transition(ctx, tx, subscriptionID, models.StatusActive, nil, nil, nil)
		return err
	})
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("%s: %w", op, err)
	}
	return sub, balance, nil
}

func credit(ctx context.Context, q querier, userID string, amount decimal.Decimal,
	description string, paymentRef *string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := q.QueryRowContext(ctx,
		`INSERT INTO wallets (user_id, balance) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE
		 SET balance = wallets.balance + EXCLUDED.balance, updated_at = NOW()
		 RETURNING balance`,
		userID, amount).Scan(&balance)
	if err != nil {
		return decimal.Zero, err
	}
	if err = appendLedger(ctx, q, userID, models.TransactionCredit, amount, description, paymentRef); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func debit(ctx context.Context, q querier, userID string, amount decimal.Decimal,
	description string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := q.QueryRowContext(ctx,
		`UPDATE wallets SET balance = balance - $2, updated_at = NOW()
		 WHERE user_id = $1 AND balance >= $2
		 RETURNING balance`,
		userID, amount).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, models.ErrInsufficientFunds
	}
	if err != nil {
		return decimal.Zero, err
	}
	if err = appendLedger(ctx, q, userID, models.TransactionDebit, amount, description, nil); err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func appendLedger(ctx context.Context, q querier, userID string, typ models.TransactionType,
	amount decimal.Decimal, description string, paymentRef *string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO wallet_transactions (user_id, type, amount, description, payment_ref)
		 VALUES ($1, $2, $3, $4, $5)`,
		userID, string(typ), amount, description, nullString(paymentRef))
	return err
}
