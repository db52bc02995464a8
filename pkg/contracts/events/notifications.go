package events

// Tipos de notificação publicados no tópico bet_notifications.
const (
	KindBetCreated     = "bet_created"
	KindProofSubmitted = "proof_submitted"
	KindVoteCast       = "vote_cast"
	KindBetResolved    = "bet_resolved"
	KindBetExpired     = "bet_expired"
	KindBetCancelled   = "bet_cancelled"
)

// BetNotification é o payload único do tópico de notificações.
// O consumidor (camada de notificação, fora deste repo) decide quem alertar.
type BetNotification struct {
	Kind      string `json:"kind"`
	BetID     string `json:"bet_id"`
	OwnerID   string `json:"owner_id"`
	ActorID   string `json:"actor_id,omitempty"` // quem disparou (votante, challenger, sweep)
	BetStatus string `json:"bet_status"`
	Title     string `json:"title,omitempty"` // presente em bet_created, insumo da moderação
	TsUnixMs  int64  `json:"ts_unix_ms"`
}
