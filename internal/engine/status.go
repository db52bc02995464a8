package engine

// BetStatus é o estado do ciclo de vida de uma aposta.
// Transições válidas: ACTIVE → PROOF_UNDER_REVIEW → {WON, LOST} e
// ACTIVE → CANCELLED (cancel, expire e veredito de moderação inválido).
// WON, LOST e CANCELLED são terminais.
type BetStatus string

const (
	BetActive           BetStatus = "ACTIVE"
	BetProofUnderReview BetStatus = "PROOF_UNDER_REVIEW"
	BetWon              BetStatus = "WON"
	BetLost             BetStatus = "LOST"
	BetCancelled        BetStatus = "CANCELLED"
)

var betTransitions = map[BetStatus][]BetStatus{
	BetActive:           {BetProofUnderReview, BetCancelled},
	BetProofUnderReview: {BetWon, BetLost, BetCancelled},
}

// Terminal indica se nenhuma transição pode sair deste estado.
func (s BetStatus) Terminal() bool {
	return s == BetWon || s == BetLost || s == BetCancelled
}

// CanTransition consulta a tabela fechada de transições.
func (s BetStatus) CanTransition(to BetStatus) bool {
	for _, t := range betTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// ChallengeStatus é o estado individual de um challenge.
type ChallengeStatus string

const (
	ChallengePending   ChallengeStatus = "PENDING"
	ChallengeAccepted  ChallengeStatus = "ACCEPTED"
	ChallengeRejected  ChallengeStatus = "REJECTED"
	ChallengeWithdrawn ChallengeStatus = "WITHDRAWN"
	ChallengeCancelled ChallengeStatus = "CANCELLED"
)

// Live indica se o challenge conta para o pool e para o júri.
func (s ChallengeStatus) Live() bool {
	return s == ChallengePending || s == ChallengeAccepted
}
