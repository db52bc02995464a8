package engine

import "errors"

// Erros de rejeição visíveis ao chamador. Nenhum deles deixa estado parcial;
// a camada HTTP converte cada um em um reason code.
var (
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrNotAuthorized          = errors.New("not authorized")
	ErrDeadlinePassed         = errors.New("deadline passed")
	ErrVotingClosed           = errors.New("voting closed")
	ErrDuplicateChallenge     = errors.New("duplicate challenge")
	ErrDuplicateVote          = errors.New("duplicate vote")
	ErrBetNotFound            = errors.New("bet not found")
	ErrChallengeNotFound      = errors.New("challenge not found")
	ErrNoChallengers          = errors.New("no challengers to adjudicate")
	ErrInvalidAmount          = errors.New("amount must be positive")
)
