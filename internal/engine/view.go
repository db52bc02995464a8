package engine

import "time"

// ChallengeView é a projeção de um challenge no read model.
type ChallengeView struct {
	ID           string          `json:"id"`
	ChallengerID string          `json:"challenger_id"`
	Amount       int64           `json:"amount"`
	Status       ChallengeStatus `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
}

// BetView é o read model de uma aposta: status atual, challenges e contagem
// de votos. É o que a API devolve e o que fica no cache — nunca uma segunda
// fonte de verdade para decisões de ciclo de vida.
type BetView struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"owner_id"`
	Title         string          `json:"title"`
	Criteria      string          `json:"criteria"`
	Stake         int64           `json:"stake"`
	Deadline      time.Time       `json:"deadline"`
	ProofDeadline *time.Time      `json:"proof_deadline,omitempty"`
	ProofComment  string          `json:"proof_comment,omitempty"`
	ProofMediaURL string          `json:"proof_media_url,omitempty"`
	Status        BetStatus       `json:"status"`
	Stars         int             `json:"stars"`
	Challenges    []ChallengeView `json:"challenges"`
	Tally         Tally           `json:"tally"`
	TotalAtStake  int64           `json:"total_at_stake"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// NewBetView projeta um snapshot no read model. Challenges rejeitados ficam
// de fora da listagem pública, como no feed original.
func NewBetView(s *Snapshot) *BetView {
	v := &BetView{
		ID:            s.Bet.ID,
		OwnerID:       s.Bet.OwnerID,
		Title:         s.Bet.Title,
		Criteria:      s.Bet.Criteria,
		Stake:         s.Bet.Stake,
		Deadline:      s.Bet.Deadline,
		ProofDeadline: s.Bet.ProofDeadline,
		ProofComment:  s.Bet.ProofComment,
		ProofMediaURL: s.Bet.ProofMediaURL,
		Status:        s.Bet.Status,
		Stars:         s.Bet.Stars,
		Tally:         TallyVotes(s),
		TotalAtStake:  s.TotalAtStake(),
		CreatedAt:     s.Bet.CreatedAt,
		UpdatedAt:     s.Bet.UpdatedAt,
	}
	for _, c := range s.Challenges {
		if c.Status == ChallengeRejected {
			continue
		}
		v.Challenges = append(v.Challenges, ChallengeView{
			ID:           c.ID,
			ChallengerID: c.ChallengerID,
			Amount:       c.Amount,
			Status:       c.Status,
			CreatedAt:    c.CreatedAt,
		})
	}
	return v
}
