package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/radieske/commitbet-engine/internal/engine"
	"github.com/radieske/commitbet-engine/internal/ledger"
)

// Postgres implementa engine.Store. O lock por aposta do modelo de
// concorrência é o FOR UPDATE na linha de bets: toda mutação de status,
// challenges e saldos ligados àquela aposta roda serializada na mesma
// transação.
type Postgres struct {
	db     *sql.DB
	ledger ledger.Ledger
}

func NewPostgres(db *sql.DB, l ledger.Ledger) *Postgres {
	return &Postgres{db: db, ledger: l}
}

// CreateBet insere a aposta e debita o stake do dono na mesma transação:
// ou os pontos saem e a aposta existe, ou nada acontece.
func (p *Postgres) CreateBet(ctx context.Context, bet *engine.Bet, debit engine.LedgerOp) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := p.applyLedger(ctx, tx, []engine.LedgerOp{debit}); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO bets (id, owner_id, title, criteria, stake, deadline, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		bet.ID, bet.OwnerID, bet.Title, bet.Criteria, bet.Stake, bet.Deadline, string(bet.Status)); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateBet carrega o snapshot sob FOR UPDATE, roda a transição e aplica os
// efeitos. Qualquer erro desfaz tudo — status, challenges, votos e ledger.
func (p *Postgres) UpdateBet(ctx context.Context, betID string, fn func(*engine.Snapshot) (*engine.Effects, error)) (*engine.Snapshot, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	snap, err := p.loadSnapshot(ctx, tx, betID, true)
	if err != nil {
		return nil, err
	}

	eff, err := fn(snap)
	if err != nil {
		return nil, err
	}

	if eff.InsertChallenge != nil {
		c := eff.InsertChallenge
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO challenges (id, bet_id, challenger_id, amount, status)
			VALUES ($1,$2,$3,$4,$5)`,
			c.ID, c.BetID, c.ChallengerID, c.Amount, string(c.Status)); err != nil {
			return nil, err
		}
	}
	if eff.InsertVote != nil {
		v := eff.InsertVote
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO votes (id, bet_id, voter_id, approve)
			VALUES ($1,$2,$3,$4)`,
			v.ID, v.BetID, v.VoterID, v.Approve); err != nil {
			return nil, err
		}
	}
	for id, st := range eff.ChallengeStatus {
		if _, err := tx.ExecContext(ctx, `
			UPDATE challenges SET status = $1 WHERE id = $2`,
			string(st), id); err != nil {
			return nil, err
		}
	}
	if err := p.applyLedger(ctx, tx, eff.Ledger); err != nil {
		return nil, err
	}

	eff.ApplyTo(snap, time.Now())

	if _, err := tx.ExecContext(ctx, `
		UPDATE bets SET status = $1, proof_deadline = $2, proof_comment = $3,
			proof_media_url = $4, stars = $5, updated_at = NOW()
		WHERE id = $6`,
		string(snap.Bet.Status), snap.Bet.ProofDeadline, snap.Bet.ProofComment,
		snap.Bet.ProofMediaURL, snap.Bet.Stars, betID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return snap, nil
}

// GetSnapshot lê o estado completo sem lock (caminho de leitura).
func (p *Postgres) GetSnapshot(ctx context.Context, betID string) (*engine.Snapshot, error) {
	return p.loadSnapshot(ctx, p.db, betID, false)
}

// DueBets lista ACTIVE com deadline vencido e PROOF_UNDER_REVIEW com janela
// encerrada, na ordem do vencimento.
func (p *Postgres) DueBets(ctx context.Context, now time.Time, limit int) ([]engine.DueBet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, kind FROM (
			SELECT id, 'EXPIRE' AS kind, deadline AS due FROM bets
			WHERE status = 'ACTIVE' AND deadline <= $1
			UNION ALL
			SELECT id, 'RESOLVE' AS kind, proof_deadline AS due FROM bets
			WHERE status = 'PROOF_UNDER_REVIEW' AND proof_deadline <= $1
		) d ORDER BY due LIMIT $2`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []engine.DueBet
	for rows.Next() {
		var d engine.DueBet
		var kind string
		if err := rows.Scan(&d.ID, &kind); err != nil {
			return nil, err
		}
		d.Kind = engine.DueKind(kind)
		due = append(due, d)
	}
	return due, rows.Err()
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (p *Postgres) loadSnapshot(ctx context.Context, q querier, betID string, forUpdate bool) (*engine.Snapshot, error) {
	betQuery := `
		SELECT id, owner_id, title, criteria, stake, deadline, proof_deadline,
			proof_comment, proof_media_url, status, stars, created_at, updated_at
		FROM bets WHERE id = $1`
	if forUpdate {
		betQuery += " FOR UPDATE"
	}

	snap := &engine.Snapshot{}
	b := &snap.Bet
	var status string
	err := q.QueryRowContext(ctx, betQuery, betID).Scan(
		&b.ID, &b.OwnerID, &b.Title, &b.Criteria, &b.Stake, &b.Deadline,
		&b.ProofDeadline, &b.ProofComment, &b.ProofMediaURL, &status, &b.Stars,
		&b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrBetNotFound
	}
	if err != nil {
		return nil, err
	}
	b.Status = engine.BetStatus(status)

	rows, err := q.QueryContext(ctx, `
		SELECT id, bet_id, challenger_id, amount, status, created_at
		FROM challenges WHERE bet_id = $1 ORDER BY created_at`, betID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c engine.Challenge
		var st string
		if err := rows.Scan(&c.ID, &c.BetID, &c.ChallengerID, &c.Amount, &st, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Status = engine.ChallengeStatus(st)
		snap.Challenges = append(snap.Challenges, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	vrows, err := q.QueryContext(ctx, `
		SELECT id, bet_id, voter_id, approve, created_at
		FROM votes WHERE bet_id = $1 ORDER BY created_at`, betID)
	if err != nil {
		return nil, err
	}
	defer vrows.Close()
	for vrows.Next() {
		var v engine.Vote
		if err := vrows.Scan(&v.ID, &v.BetID, &v.VoterID, &v.Approve, &v.CreatedAt); err != nil {
			return nil, err
		}
		snap.Votes = append(snap.Votes, v)
	}
	return snap, vrows.Err()
}

// applyLedger converte e aplica as operações de saldo, mapeando o erro de
// fundos do ledger para o erro do motor.
func (p *Postgres) applyLedger(ctx context.Context, tx *sql.Tx, ops []engine.LedgerOp) error {
	for _, op := range ops {
		_, err := p.ledger.Apply(ctx, tx, ledger.Entry{
			AccountID: op.UserID,
			Kind:      ledger.Kind(op.Kind),
			Amount:    op.Amount,
			Ref:       op.Ref,
			Reason:    op.Reason,
		})
		if errors.Is(err, ledger.ErrInsufficientFunds) {
			return engine.ErrInsufficientFunds
		}
		if err != nil {
			return err
		}
	}
	return nil
}
