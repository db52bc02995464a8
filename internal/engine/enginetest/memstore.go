// Package enginetest fornece um engine.Store em memória para testes.
package enginetest

import (
	"context"
	"sync"
	"time"

	"github.com/radieske/commitbet-engine/internal/engine"
)

// MemStore implementa engine.Store com um lock único: toda mutação roda
// serializada e o guard de status é re-checado sob o lock, o mesmo contrato
// que o FOR UPDATE do Postgres dá ao motor. Débitos e créditos são aplicados
// em grupo (ou todos, ou nenhum) com a mesma idempotência por (conta, ref).
type MemStore struct {
	mu              sync.Mutex
	StartingBalance int64

	bets     map[string]*engine.Snapshot
	accounts map[string]int64
	applied  map[string]bool // conta|ref já contabilizado
}

func NewMemStore(startingBalance int64) *MemStore {
	return &MemStore{
		StartingBalance: startingBalance,
		bets:            map[string]*engine.Snapshot{},
		accounts:        map[string]int64{},
		applied:         map[string]bool{},
	}
}

// SetBalance fixa o saldo de uma conta (conveniência de setup de teste).
func (m *MemStore) SetBalance(userID string, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[userID] = balance
}

// Balance retorna o saldo atual, criando a conta com o saldo inicial.
func (m *MemStore) Balance(userID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureAccount(userID)
	return m.accounts[userID]
}

func (m *MemStore) CreateBet(ctx context.Context, bet *engine.Bet, debit engine.LedgerOp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.applyOps([]engine.LedgerOp{debit}); err != nil {
		return err
	}
	m.bets[bet.ID] = cloneSnapshot(&engine.Snapshot{Bet: *bet})
	return nil
}

func (m *MemStore) UpdateBet(ctx context.Context, betID string, fn func(*engine.Snapshot) (*engine.Effects, error)) (*engine.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.bets[betID]
	if !ok {
		return nil, engine.ErrBetNotFound
	}

	snap := cloneSnapshot(rec)
	eff, err := fn(snap)
	if err != nil {
		return nil, err
	}
	if err := m.applyOps(eff.Ledger); err != nil {
		return nil, err
	}
	eff.ApplyTo(snap, time.Now())
	m.bets[betID] = cloneSnapshot(snap)
	return snap, nil
}

func (m *MemStore) GetSnapshot(ctx context.Context, betID string) (*engine.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.bets[betID]
	if !ok {
		return nil, engine.ErrBetNotFound
	}
	return cloneSnapshot(rec), nil
}

func (m *MemStore) DueBets(ctx context.Context, now time.Time, limit int) ([]engine.DueBet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []engine.DueBet
	for id, rec := range m.bets {
		if len(due) >= limit {
			break
		}
		switch rec.Bet.Status {
		case engine.BetActive:
			if now.After(rec.Bet.Deadline) {
				due = append(due, engine.DueBet{ID: id, Kind: engine.DueExpire})
			}
		case engine.BetProofUnderReview:
			if rec.Bet.ProofDeadline != nil && !now.Before(*rec.Bet.ProofDeadline) {
				due = append(due, engine.DueBet{ID: id, Kind: engine.DueResolve})
			}
		}
	}
	return due, nil
}

// applyOps valida todos os débitos antes de tocar em qualquer saldo, para que
// o grupo seja atômico como a transação do Postgres.
func (m *MemStore) applyOps(ops []engine.LedgerOp) error {
	scratch := map[string]int64{}
	for _, op := range ops {
		if m.applied[op.UserID+"|"+op.Ref] {
			continue
		}
		m.ensureAccount(op.UserID)
		if op.Kind == engine.OpDebit {
			if m.accounts[op.UserID]+scratch[op.UserID] < op.Amount {
				return engine.ErrInsufficientFunds
			}
			scratch[op.UserID] -= op.Amount
		} else {
			scratch[op.UserID] += op.Amount
		}
	}
	for _, op := range ops {
		key := op.UserID + "|" + op.Ref
		if m.applied[key] {
			continue
		}
		m.applied[key] = true
		if op.Kind == engine.OpDebit {
			m.accounts[op.UserID] -= op.Amount
		} else {
			m.accounts[op.UserID] += op.Amount
		}
	}
	return nil
}

func (m *MemStore) ensureAccount(userID string) {
	if _, ok := m.accounts[userID]; !ok {
		m.accounts[userID] = m.StartingBalance
	}
}

func cloneSnapshot(s *engine.Snapshot) *engine.Snapshot {
	out := &engine.Snapshot{Bet: s.Bet}
	out.Challenges = append([]engine.Challenge(nil), s.Challenges...)
	out.Votes = append([]engine.Vote(nil), s.Votes...)
	return out
}
