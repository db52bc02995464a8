package events

// ModerationVerdict é o resultado assíncrono da validação de conteúdo do
// título da aposta. Pode chegar minutos depois da criação, inclusive após
// challenges já terem sido apostados.
type ModerationVerdict struct {
	BetID    string `json:"bet_id"`
	Verdict  string `json:"verdict"` // "valid" | "invalid"
	Reason   string `json:"reason,omitempty"`
	TsUnixMs int64  `json:"ts_unix_ms"`
}

const (
	VerdictValid   = "valid"
	VerdictInvalid = "invalid"
)
