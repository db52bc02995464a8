package engine

// Tally é a contagem de votos do júri congelado.
type Tally struct {
	Eligible int `json:"eligible"`
	Approves int `json:"approves"`
	Rejects  int `json:"rejects"`
}

// TallyVotes conta os votos dos challengers vivos (o conjunto congelado no
// envio da prova). Votos de quem não está mais no júri nunca existem: o cast
// valida elegibilidade e withdraw é proibido após o congelamento.
func TallyVotes(s *Snapshot) Tally {
	t := Tally{Eligible: len(s.LiveChallenges())}
	for _, v := range s.Votes {
		if v.Approve {
			t.Approves++
		} else {
			t.Rejects++
		}
	}
	return t
}

// OwnerWins aplica a regra de veredito: sem júri ou sem votos o dono vence
// ("inocente até prova em contrário" — o sistema nunca prende fundos por
// silêncio); empate também favorece o dono. Só maioria estrita de rejects
// derruba o compromisso.
func (t Tally) OwnerWins() bool {
	if t.Eligible == 0 || t.Approves+t.Rejects == 0 {
		return true
	}
	return t.Approves >= t.Rejects
}
