package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/commitbet-engine/internal/shared/metrics"
	"github.com/radieske/commitbet-engine/pkg/contracts/events"
)

// Notifier publica notificações fire-and-forget. A implementação nunca deve
// bloquear nem propagar falha: entrega perdida não reverte transição.
type Notifier interface {
	Notify(ctx context.Context, n events.BetNotification)
}

// ViewCache é o read model em cache, invalidado a cada mutação.
type ViewCache interface {
	Get(ctx context.Context, betID string) (*BetView, bool)
	Set(ctx context.Context, view *BetView)
	Invalidate(ctx context.Context, betID string)
}

// Rules são os parâmetros ajustáveis do motor.
type Rules struct {
	ProofWindow time.Duration // janela de votação após envio da prova
	AutoAccept  bool          // challenge entra aceito ao apostar
}

// Service é o único ponto de entrada das transições de estado. Requisições de
// usuário e a varredura de deadlines passam pelos mesmos métodos, então a
// lógica de resolução tem fonte única.
type Service struct {
	store Store
	rules Rules
	cache ViewCache
	notif Notifier
	log   *zap.Logger
	now   func() time.Time
}

// Option configura dependências opcionais do Service.
type Option func(*Service)

func WithCache(c ViewCache) Option       { return func(s *Service) { s.cache = c } }
func WithNotifier(n Notifier) Option     { return func(s *Service) { s.notif = n } }
func WithLogger(l *zap.Logger) Option    { return func(s *Service) { s.log = l } }
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, rules Rules, opts ...Option) *Service {
	s := &Service{
		store: store,
		rules: rules,
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateBet debita o stake do dono e abre a aposta em ACTIVE.
func (s *Service) CreateBet(ctx context.Context, ownerID, title, criteria string, stake int64, deadline time.Time) (*BetView, error) {
	if stake <= 0 {
		return nil, ErrInvalidAmount
	}
	now := s.now()
	if !deadline.After(now) {
		return nil, ErrDeadlinePassed
	}

	bet := &Bet{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		Criteria:  criteria,
		Stake:     stake,
		Deadline:  deadline,
		Status:    BetActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	debit := debitOp(ownerID, stake, fmt.Sprintf("bet:%s:create:%s", bet.ID, ownerID), "create stake")

	if err := s.store.CreateBet(ctx, bet, debit); err != nil {
		metrics.TransitionsTotal.WithLabelValues("create", "rejected").Inc()
		return nil, err
	}

	snap := &Snapshot{Bet: *bet}
	s.finish(ctx, snap, "create", events.KindBetCreated, ownerID)
	return NewBetView(snap), nil
}

// CancelBet desfaz a aposta por ação do dono: só de ACTIVE, só antes do
// deadline, reembolso integral de todos.
func (s *Service) CancelBet(ctx context.Context, callerID, betID string) (*BetView, error) {
	now := s.now()
	snap, err := s.update(ctx, betID, "cancel", func(snap *Snapshot) (*Effects, error) {
		b := &snap.Bet
		if b.Status != BetActive {
			return nil, ErrInvalidStateTransition
		}
		if b.OwnerID != callerID {
			return nil, ErrNotAuthorized
		}
		if now.After(b.Deadline) {
			return nil, ErrDeadlinePassed
		}
		return s.cancelEffects(snap), nil
	})
	if err != nil {
		return nil, err
	}
	s.finish(ctx, snap, "cancel", events.KindBetCancelled, callerID)
	return NewBetView(snap), nil
}

// ExpireBet é o cancel disparado pelo sistema: ACTIVE com deadline vencido e
// sem prova enviada. Mesmos reembolsos do cancel.
func (s *Service) ExpireBet(ctx context.Context, betID string) (*BetView, error) {
	now := s.now()
	snap, err := s.update(ctx, betID, "expire", func(snap *Snapshot) (*Effects, error) {
		b := &snap.Bet
		if b.Status != BetActive || !now.After(b.Deadline) {
			return nil, ErrInvalidStateTransition
		}
		return s.cancelEffects(snap), nil
	})
	if err != nil {
		return nil, err
	}
	s.finish(ctx, snap, "expire", events.KindBetExpired, "")
	return NewBetView(snap), nil
}

// ForceCancelBet aplica o efeito de cancel a partir de qualquer estado vivo.
// É o caminho do veredito "invalid" da moderação de conteúdo, que pode chegar
// depois de challenges apostados ou até com prova em análise.
func (s *Service) ForceCancelBet(ctx context.Context, betID, reason string) (*BetView, error) {
	snap, err := s.update(ctx, betID, "force_cancel", func(snap *Snapshot) (*Effects, error) {
		if snap.Bet.Status.Terminal() {
			return nil, ErrInvalidStateTransition
		}
		return s.cancelEffects(snap), nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("bet force-cancelled", zap.String("betId", betID), zap.String("reason", reason))
	s.finish(ctx, snap, "force_cancel", events.KindBetCancelled, "")
	return NewBetView(snap), nil
}

// cancelEffects monta o reembolso integral: dono e todo challenge vivo.
func (s *Service) cancelEffects(snap *Snapshot) *Effects {
	st := BetCancelled
	eff := &Effects{BetStatus: &st, ChallengeStatus: map[string]ChallengeStatus{}}
	live := snap.LiveChallenges()
	for _, c := range live {
		eff.ChallengeStatus[c.ID] = ChallengeCancelled
	}
	eff.Ledger = CalculatePayout(BetCancelled, &snap.Bet, live)
	return eff
}

// SubmitProof abre a janela de votação. Exige ao menos um challenge vivo:
// aposta sem desafiante não tem o que julgar.
func (s *Service) SubmitProof(ctx context.Context, callerID, betID, comment, mediaURL string) (*BetView, error) {
	now := s.now()
	snap, err := s.update(ctx, betID, "submit_proof", func(snap *Snapshot) (*Effects, error) {
		b := &snap.Bet
		if b.Status != BetActive {
			return nil, ErrInvalidStateTransition
		}
		if b.OwnerID != callerID {
			return nil, ErrNotAuthorized
		}
		if now.After(b.Deadline) {
			return nil, ErrDeadlinePassed
		}
		if len(snap.LiveChallenges()) == 0 {
			return nil, ErrNoChallengers
		}
		st := BetProofUnderReview
		pd := now.Add(s.rules.ProofWindow)
		return &Effects{
			BetStatus:     &st,
			ProofDeadline: &pd,
			ProofComment:  comment,
			ProofMediaURL: mediaURL,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.finish(ctx, snap, "submit_proof", events.KindProofSubmitted, callerID)
	return NewBetView(snap), nil
}

// ChallengeBet registra a contra-aposta de um usuário, debitando na hora.
func (s *Service) ChallengeBet(ctx context.Context, callerID, betID string, amount int64) (*BetView, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	now := s.now()
	snap, err := s.update(ctx, betID, "challenge", func(snap *Snapshot) (*Effects, error) {
		b := &snap.Bet
		if b.Status != BetActive {
			return nil, ErrInvalidStateTransition
		}
		if now.After(b.Deadline) {
			return nil, ErrDeadlinePassed
		}
		if b.OwnerID == callerID {
			return nil, ErrNotAuthorized
		}
		if snap.LiveChallengeBy(callerID) != nil {
			return nil, ErrDuplicateChallenge
		}
		st := ChallengePending
		if s.rules.AutoAccept {
			st = ChallengeAccepted
		}
		ch := &Challenge{
			ID:           uuid.NewString(),
			BetID:        betID,
			ChallengerID: callerID,
			Amount:       amount,
			Status:       st,
			CreatedAt:    now,
		}
		return &Effects{
			InsertChallenge: ch,
			Ledger: []LedgerOp{debitOp(callerID, amount,
				fmt.Sprintf("bet:%s:challenge:%s", betID, ch.ID), "challenge stake")},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.finish(ctx, snap, "challenge", "", callerID)
	return NewBetView(snap), nil
}

// WithdrawChallenge devolve o stake do challenger enquanto a aposta está
// ACTIVE. Depois do congelamento (prova enviada) não há saída.
func (s *Service) WithdrawChallenge(ctx context.Context, callerID, betID string) (*BetView, error) {
	snap, err := s.update(ctx, betID, "withdraw", func(snap *Snapshot) (*Effects, error) {
		if snap.Bet.Status != BetActive {
			return nil, ErrInvalidStateTransition
		}
		ch := snap.LiveChallengeBy(callerID)
		if ch == nil {
			return nil, ErrChallengeNotFound
		}
		return &Effects{
			ChallengeStatus: map[string]ChallengeStatus{ch.ID: ChallengeWithdrawn},
			Ledger: []LedgerOp{creditOp(callerID, ch.Amount,
				fmt.Sprintf("bet:%s:refund:withdraw:%s", betID, ch.ID), "withdraw refund")},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.finish(ctx, snap, "withdraw", "", callerID)
	return NewBetView(snap), nil
}

// AcceptChallenge marca um challenge pendente como aceito (modo sem
// auto-accept, decisão do dono).
func (s *Service) AcceptChallenge(ctx context.Context, callerID, betID, challengeID string) (*BetView, error) {
	return s.decideChallenge(ctx, callerID, betID, challengeID, true)
}

// RejectChallenge recusa um challenge pendente e devolve o stake do
// challenger; o challenge sai do pool e do júri.
func (s *Service) RejectChallenge(ctx context.Context, callerID, betID, challengeID string) (*BetView, error) {
	return s.decideChallenge(ctx, callerID, betID, challengeID, false)
}

func (s *Service) decideChallenge(ctx context.Context, callerID, betID, challengeID string, accept bool) (*BetView, error) {
	name := "reject_challenge"
	if accept {
		name = "accept_challenge"
	}
	snap, err := s.update(ctx, betID, name, func(snap *Snapshot) (*Effects, error) {
		if snap.Bet.Status != BetActive {
			return nil, ErrInvalidStateTransition
		}
		if snap.Bet.OwnerID != callerID {
			return nil, ErrNotAuthorized
		}
		var ch *Challenge
		for i := range snap.Challenges {
			if snap.Challenges[i].ID == challengeID {
				ch = &snap.Challenges[i]
				break
			}
		}
		if ch == nil {
			return nil, ErrChallengeNotFound
		}
		if ch.Status != ChallengePending {
			return nil, ErrInvalidStateTransition
		}
		if accept {
			return &Effects{ChallengeStatus: map[string]ChallengeStatus{ch.ID: ChallengeAccepted}}, nil
		}
		return &Effects{
			ChallengeStatus: map[string]ChallengeStatus{ch.ID: ChallengeRejected},
			Ledger: []LedgerOp{creditOp(ch.ChallengerID, ch.Amount,
				fmt.Sprintf("bet:%s:refund:reject:%s", betID, ch.ID), "reject refund")},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.finish(ctx, snap, name, "", callerID)
	return NewBetView(snap), nil
}

// CastVote registra o veredito de um jurado sobre a prova. Um voto por
// (aposta, votante); só durante a janela; só quem segura challenge vivo.
func (s *Service) CastVote(ctx context.Context, callerID, betID string, approve bool) (*BetView, error) {
	now := s.now()
	snap, err := s.update(ctx, betID, "vote", func(snap *Snapshot) (*Effects, error) {
		b := &snap.Bet
		if b.Status != BetProofUnderReview || b.ProofDeadline == nil {
			return nil, ErrInvalidStateTransition
		}
		if now.After(*b.ProofDeadline) {
			return nil, ErrVotingClosed
		}
		if snap.LiveChallengeBy(callerID) == nil {
			return nil, ErrNotAuthorized
		}
		if snap.VoteBy(callerID) != nil {
			return nil, ErrDuplicateVote
		}
		return &Effects{InsertVote: &Vote{
			ID:        uuid.NewString(),
			BetID:     betID,
			VoterID:   callerID,
			Approve:   approve,
			CreatedAt: now,
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	s.finish(ctx, snap, "vote", events.KindVoteCast, callerID)
	return NewBetView(snap), nil
}

// ResolveBet fecha a aposta depois da janela de votação: computa o veredito
// do júri uma única vez e aplica o payout. Chamadores concorrentes (ação
// explícita e varredura) re-checam o status sob lock; o perdedor da corrida
// recebe ErrInvalidStateTransition sem efeito colateral.
func (s *Service) ResolveBet(ctx context.Context, betID string) (*BetView, error) {
	now := s.now()
	snap, err := s.update(ctx, betID, "resolve", func(snap *Snapshot) (*Effects, error) {
		b := &snap.Bet
		if b.Status != BetProofUnderReview || b.ProofDeadline == nil {
			return nil, ErrInvalidStateTransition
		}
		if now.Before(*b.ProofDeadline) {
			// janela ainda aberta
			return nil, ErrInvalidStateTransition
		}
		terminal := BetLost
		if TallyVotes(snap).OwnerWins() {
			terminal = BetWon
		}
		return &Effects{
			BetStatus: &terminal,
			Ledger:    CalculatePayout(terminal, b, snap.LiveChallenges()),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.finish(ctx, snap, "resolve", events.KindBetResolved, "")
	return NewBetView(snap), nil
}

// StarBet incrementa o contador de estrelas (metadado; nunca participa de
// decisão de ciclo de vida).
func (s *Service) StarBet(ctx context.Context, betID string) (*BetView, error) {
	snap, err := s.update(ctx, betID, "star", func(snap *Snapshot) (*Effects, error) {
		return &Effects{StarsDelta: 1}, nil
	})
	if err != nil {
		return nil, err
	}
	s.finish(ctx, snap, "star", "", "")
	return NewBetView(snap), nil
}

// GetBet lê o read model, com read-through no cache.
func (s *Service) GetBet(ctx context.Context, betID string) (*BetView, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(ctx, betID); ok {
			return v, nil
		}
	}
	snap, err := s.store.GetSnapshot(ctx, betID)
	if err != nil {
		return nil, err
	}
	v := NewBetView(snap)
	if s.cache != nil {
		s.cache.Set(ctx, v)
	}
	return v, nil
}

// Sweep é uma passada da varredura de deadlines: expira ACTIVE vencidas sem
// prova e resolve PROOF_UNDER_REVIEW com janela encerrada. Perder a corrida
// para outro ator é esperado e engolido aqui (logado, nunca propagado).
func (s *Service) Sweep(ctx context.Context, limit int) (int, error) {
	due, err := s.store.DueBets(ctx, s.now(), limit)
	if err != nil {
		return 0, err
	}
	swept := 0
	for _, d := range due {
		var err error
		switch d.Kind {
		case DueExpire:
			_, err = s.ExpireBet(ctx, d.ID)
		case DueResolve:
			_, err = s.ResolveBet(ctx, d.ID)
		}
		switch {
		case err == nil:
			swept++
		case errors.Is(err, ErrInvalidStateTransition), errors.Is(err, ErrBetNotFound):
			metrics.SweepRaceLossesTotal.Inc()
			s.log.Debug("sweep lost the race", zap.String("betId", d.ID), zap.String("kind", string(d.Kind)))
		default:
			s.log.Error("sweep transition failed", zap.String("betId", d.ID), zap.Error(err))
		}
	}
	return swept, nil
}

// update encapsula a transação por aposta, o guard final da tabela de
// transições e a métrica de rejeição.
func (s *Service) update(ctx context.Context, betID, transition string, fn func(*Snapshot) (*Effects, error)) (*Snapshot, error) {
	snap, err := s.store.UpdateBet(ctx, betID, func(snap *Snapshot) (*Effects, error) {
		eff, err := fn(snap)
		if err != nil {
			return nil, err
		}
		if eff.BetStatus != nil && !snap.Bet.Status.CanTransition(*eff.BetStatus) {
			return nil, ErrInvalidStateTransition
		}
		return eff, nil
	})
	if err != nil {
		metrics.TransitionsTotal.WithLabelValues(transition, "rejected").Inc()
		return nil, err
	}
	return snap, nil
}

// finish invalida o cache e publica a notificação após uma mutação aplicada.
// Nada aqui pode desfazer a transição já persistida.
func (s *Service) finish(ctx context.Context, snap *Snapshot, transition, kind, actorID string) {
	metrics.TransitionsTotal.WithLabelValues(transition, "ok").Inc()
	if s.cache != nil {
		s.cache.Invalidate(ctx, snap.Bet.ID)
	}
	if s.notif != nil && kind != "" {
		n := events.BetNotification{
			Kind:      kind,
			BetID:     snap.Bet.ID,
			OwnerID:   snap.Bet.OwnerID,
			ActorID:   actorID,
			BetStatus: string(snap.Bet.Status),
			TsUnixMs:  s.now().UnixMilli(),
		}
		if kind == events.KindBetCreated {
			n.Title = snap.Bet.Title
		}
		s.notif.Notify(ctx, n)
	}
}
