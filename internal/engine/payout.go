package engine

import "fmt"

// LedgerOpKind distingue débito e crédito no ledger.
type LedgerOpKind string

const (
	OpDebit  LedgerOpKind = "DEBIT"
	OpCredit LedgerOpKind = "CREDIT"
)

// LedgerOp é uma mutação de saldo a aplicar junto com a transição de estado.
// Ref identifica o par (aposta, evento) e garante idempotência: reaplicar a
// mesma resolução nunca paga duas vezes.
type LedgerOp struct {
	UserID string
	Kind   LedgerOpKind
	Amount int64
	Ref    string
	Reason string
}

func debitOp(userID string, amount int64, ref, reason string) LedgerOp {
	return LedgerOp{UserID: userID, Kind: OpDebit, Amount: amount, Ref: ref, Reason: reason}
}

func creditOp(userID string, amount int64, ref, reason string) LedgerOp {
	return LedgerOp{UserID: userID, Kind: OpCredit, Amount: amount, Ref: ref, Reason: reason}
}

// CalculatePayout é a função pura que converte um estado terminal nos deltas
// finais de saldo. É o único lugar onde pontos saem do pool.
//
//	CANCELLED: devolve o stake do dono e cada challenge vivo integralmente.
//	WON:       credita ao dono stake + pool; challengers não recebem nada.
//	LOST:      cada challenger vivo recebe a + floor(a*stake/pool); o resto
//	           da divisão não é redistribuído (perda de arredondamento aceita,
//	           limitada: o total pago nunca excede stake + pool).
func CalculatePayout(terminal BetStatus, bet *Bet, live []Challenge) []LedgerOp {
	var ops []LedgerOp

	switch terminal {
	case BetCancelled:
		ops = append(ops, creditOp(bet.OwnerID, bet.Stake,
			fmt.Sprintf("bet:%s:refund:%s", bet.ID, bet.OwnerID), "cancel refund"))
		for _, c := range live {
			ops = append(ops, creditOp(c.ChallengerID, c.Amount,
				fmt.Sprintf("bet:%s:refund:challenge:%s", bet.ID, c.ID), "cancel refund"))
		}

	case BetWon:
		var pool int64
		for _, c := range live {
			pool += c.Amount
		}
		ops = append(ops, creditOp(bet.OwnerID, bet.Stake+pool,
			fmt.Sprintf("bet:%s:payout:%s", bet.ID, bet.OwnerID), "won"))

	case BetLost:
		var pool int64
		for _, c := range live {
			pool += c.Amount
		}
		for _, c := range live {
			payout := c.Amount
			if pool > 0 {
				payout += c.Amount * bet.Stake / pool
			}
			ops = append(ops, creditOp(c.ChallengerID, payout,
				fmt.Sprintf("bet:%s:payout:challenge:%s", bet.ID, c.ID), "lost"))
		}
	}

	return ops
}
