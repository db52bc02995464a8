package ledger

import (
	"context"
	"database/sql"
	"errors"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

// Kind distingue débito e crédito.
type Kind string

const (
	Debit  Kind = "DEBIT"
	Credit Kind = "CREDIT"
)

// Entry é uma mutação de saldo nomeada e auditável. Ref identifica o par
// (aposta, evento): reaplicar a mesma Entry é um no-op.
type Entry struct {
	AccountID string
	Kind      Kind
	Amount    int64
	Ref       string
	Reason    string
}

// Querier cobre *sql.DB e *sql.Tx; as operações do ledger rodam dentro da
// transação da aposta para serem atômicas com a mudança de status.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Ledger aplica débitos e créditos em contas de pontos.
type Ledger struct {
	StartingBalance int64 // saldo de bootstrap de conta nova
}

// EnsureAccount cria a conta com o saldo inicial se ainda não existir.
func (l Ledger) EnsureAccount(ctx context.Context, q Querier, accountID string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO accounts (id, balance) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`,
		accountID, l.StartingBalance)
	return err
}

// Apply registra a Entry e ajusta o saldo. Retorna applied=false quando a
// Entry já existia (replay de uma resolução) — nesse caso o saldo não é
// tocado de novo. Débito abaixo do saldo disponível falha com
// ErrInsufficientFunds; a transação externa desfaz a Entry inserida.
func (l Ledger) Apply(ctx context.Context, q Querier, e Entry) (applied bool, err error) {
	if e.Kind == Debit {
		if err := l.EnsureAccount(ctx, q, e.AccountID); err != nil {
			return false, err
		}
	}

	res, err := q.ExecContext(ctx, `
		INSERT INTO ledger_entries (account_id, kind, amount, ref, reason)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id, ref) DO NOTHING`,
		e.AccountID, string(e.Kind), e.Amount, e.Ref, e.Reason)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return false, nil // replay: evento já contabilizado
	}

	switch e.Kind {
	case Debit:
		res, err = q.ExecContext(ctx, `
			UPDATE accounts SET balance = balance - $1, updated_at = NOW()
			WHERE id = $2 AND balance >= $1`,
			e.Amount, e.AccountID)
		if err != nil {
			return false, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return false, ErrInsufficientFunds
		}
	case Credit:
		_, err = q.ExecContext(ctx, `
			UPDATE accounts SET balance = balance + $1, updated_at = NOW()
			WHERE id = $2`,
			e.Amount, e.AccountID)
		if err != nil {
			return false, err
		}
	}

	return true, nil
}

// GetOrCreateBalance retorna o saldo de uma conta, criando-a com o saldo
// inicial no primeiro toque.
func (l Ledger) GetOrCreateBalance(ctx context.Context, q Querier, accountID string) (int64, error) {
	if err := l.EnsureAccount(ctx, q, accountID); err != nil {
		return 0, err
	}
	var balance int64
	err := q.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	return balance, err
}
