package engine

import "time"

// Bet é um compromisso pessoal com pontos travados do dono.
type Bet struct {
	ID            string
	OwnerID       string
	Title         string
	Criteria      string
	Stake         int64
	Deadline      time.Time
	ProofDeadline *time.Time // fim da janela de votação; nil enquanto ACTIVE
	ProofComment  string
	ProofMediaURL string
	Status        BetStatus
	Stars         int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Challenge é a contra-aposta de um usuário contra uma Bet.
type Challenge struct {
	ID           string
	BetID        string
	ChallengerID string
	Amount       int64
	Status       ChallengeStatus
	CreatedAt    time.Time
}

// Vote é o veredito imutável de um challenger sobre a prova enviada.
type Vote struct {
	ID        string
	BetID     string
	VoterID   string
	Approve   bool
	CreatedAt time.Time
}

// Snapshot é o estado completo de uma aposta carregado sob lock (uma aposta =
// uma unidade de exclusão mútua). Todas as decisões de transição leem daqui.
type Snapshot struct {
	Bet        Bet
	Challenges []Challenge
	Votes      []Vote
}

// LiveChallenges retorna os challenges que contam para o pool e para o júri.
func (s *Snapshot) LiveChallenges() []Challenge {
	var out []Challenge
	for _, c := range s.Challenges {
		if c.Status.Live() {
			out = append(out, c)
		}
	}
	return out
}

// Pool é a soma das contra-apostas vivas.
func (s *Snapshot) Pool() int64 {
	var total int64
	for _, c := range s.LiveChallenges() {
		total += c.Amount
	}
	return total
}

// TotalAtStake é o total de pontos fora de circulação por esta aposta
// (invariante de conservação: stake do dono + pool).
func (s *Snapshot) TotalAtStake() int64 {
	if s.Bet.Status.Terminal() {
		return 0
	}
	return s.Bet.Stake + s.Pool()
}

// LiveChallengeBy retorna o challenge vivo de um usuário, se houver.
func (s *Snapshot) LiveChallengeBy(userID string) *Challenge {
	for i := range s.Challenges {
		if s.Challenges[i].ChallengerID == userID && s.Challenges[i].Status.Live() {
			return &s.Challenges[i]
		}
	}
	return nil
}

// VoteBy retorna o voto de um usuário, se já tiver votado.
func (s *Snapshot) VoteBy(userID string) *Vote {
	for i := range s.Votes {
		if s.Votes[i].VoterID == userID {
			return &s.Votes[i]
		}
	}
	return nil
}
