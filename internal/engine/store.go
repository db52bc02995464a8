package engine

import (
	"context"
	"time"
)

// Effects é o resultado de uma transição validada: mudanças de status,
// inserções e operações de ledger que o store aplica atomicamente — ou tudo,
// ou nada, junto com a mudança de status.
type Effects struct {
	BetStatus       *BetStatus
	ProofDeadline   *time.Time
	ProofComment    string
	ProofMediaURL   string
	StarsDelta      int
	ChallengeStatus map[string]ChallengeStatus // por ID de challenge
	InsertChallenge *Challenge
	InsertVote      *Vote
	Ledger          []LedgerOp
}

// ApplyTo reflete os efeitos em um snapshot em memória. Os stores usam isto
// para que o snapshot devolvido e o estado persistido venham da mesma fonte.
func (e *Effects) ApplyTo(s *Snapshot, now time.Time) {
	if e.BetStatus != nil {
		s.Bet.Status = *e.BetStatus
	}
	if e.ProofDeadline != nil {
		s.Bet.ProofDeadline = e.ProofDeadline
		s.Bet.ProofComment = e.ProofComment
		s.Bet.ProofMediaURL = e.ProofMediaURL
	}
	s.Bet.Stars += e.StarsDelta
	for id, st := range e.ChallengeStatus {
		for i := range s.Challenges {
			if s.Challenges[i].ID == id {
				s.Challenges[i].Status = st
			}
		}
	}
	if e.InsertChallenge != nil {
		s.Challenges = append(s.Challenges, *e.InsertChallenge)
	}
	if e.InsertVote != nil {
		s.Votes = append(s.Votes, *e.InsertVote)
	}
	s.Bet.UpdatedAt = now
}

// DueKind indica qual transição a varredura deve disparar.
type DueKind string

const (
	DueExpire  DueKind = "EXPIRE"  // ACTIVE com deadline vencido e sem prova
	DueResolve DueKind = "RESOLVE" // PROOF_UNDER_REVIEW com janela encerrada
)

// DueBet é uma aposta que passou de um limite de tempo.
type DueBet struct {
	ID   string
	Kind DueKind
}

// Store é o contrato de persistência do motor. A implementação Postgres trava
// a linha da aposta (FOR UPDATE) durante UpdateBet; a implementação em memória
// usada em testes serializa com um mutex.
type Store interface {
	// CreateBet insere a aposta e debita o stake do dono na mesma transação.
	CreateBet(ctx context.Context, bet *Bet, debit LedgerOp) error

	// UpdateBet carrega o snapshot da aposta sob lock, executa fn e aplica os
	// efeitos atomicamente. Se fn retorna erro, nada é persistido. O snapshot
	// devolvido já reflete os efeitos aplicados.
	UpdateBet(ctx context.Context, betID string, fn func(*Snapshot) (*Effects, error)) (*Snapshot, error)

	// GetSnapshot lê o estado completo sem lock (caminho de leitura).
	GetSnapshot(ctx context.Context, betID string) (*Snapshot, error)

	// DueBets lista apostas com limite de tempo vencido, para a varredura.
	DueBets(ctx context.Context, now time.Time, limit int) ([]DueBet, error)
}
