package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/commitbet-engine/internal/api/dto"
	"github.com/radieske/commitbet-engine/internal/engine"
	"github.com/radieske/commitbet-engine/internal/ledger"
)

// Server é a casca HTTP sobre o motor. Autenticação é externa: a identidade
// do chamador chega no header X-User-ID (colocado pelo gateway).
type Server struct {
	log    *zap.Logger
	svc    *engine.Service
	ledger ledger.Ledger
	db     *sql.DB
}

func NewServer(log *zap.Logger, svc *engine.Service, l ledger.Ledger, db *sql.DB) *Server {
	return &Server{log: log, svc: svc, ledger: l, db: db}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /bets", s.createBet)
	mux.HandleFunc("GET /bets/{id}", s.getBet)
	mux.HandleFunc("POST /bets/{id}/cancel", s.cancelBet)
	mux.HandleFunc("POST /bets/{id}/proof", s.submitProof)
	mux.HandleFunc("POST /bets/{id}/resolve", s.resolveBet)
	mux.HandleFunc("POST /bets/{id}/challenges", s.challengeBet)
	mux.HandleFunc("POST /bets/{id}/challenges/withdraw", s.withdrawChallenge)
	mux.HandleFunc("POST /bets/{id}/challenges/{cid}/accept", s.acceptChallenge)
	mux.HandleFunc("POST /bets/{id}/challenges/{cid}/reject", s.rejectChallenge)
	mux.HandleFunc("POST /bets/{id}/votes", s.castVote)
	mux.HandleFunc("POST /bets/{id}/star", s.starBet)
	mux.HandleFunc("GET /accounts/{id}/balance", s.balance)
	return mux
}

func (s *Server) createBet(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	var req dto.CreateBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if req.Title == "" || req.Criteria == "" {
		writeError(w, http.StatusBadRequest, "title and criteria required")
		return
	}
	view, err := s.svc.CreateBet(r.Context(), caller, req.Title, req.Criteria, req.Stake, req.Deadline)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.GetBet(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) cancelBet(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	view, err := s.svc.CancelBet(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) submitProof(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	var req dto.ProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	view, err := s.svc.SubmitProof(r.Context(), caller, r.PathValue("id"), req.Comment, req.MediaURL)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// resolveBet é a ação explícita de resolução pós-janela; a varredura chama o
// mesmo método do motor.
func (s *Server) resolveBet(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	view, err := s.svc.ResolveBet(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) challengeBet(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	var req dto.ChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	view, err := s.svc.ChallengeBet(r.Context(), caller, r.PathValue("id"), req.Amount)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) withdrawChallenge(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	view, err := s.svc.WithdrawChallenge(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) acceptChallenge(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	view, err := s.svc.AcceptChallenge(r.Context(), caller, r.PathValue("id"), r.PathValue("cid"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) rejectChallenge(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	view, err := s.svc.RejectChallenge(r.Context(), caller, r.PathValue("id"), r.PathValue("cid"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) castVote(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	var req dto.VoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	view, err := s.svc.CastVote(r.Context(), caller, r.PathValue("id"), req.Approve)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) starBet(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}
	view, err := s.svc.StarBet(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) balance(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	bal, err := s.ledger.GetOrCreateBalance(r.Context(), s.db, userID)
	if err != nil {
		s.log.Error("balance read", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, dto.BalanceResponse{UserID: userID, Balance: bal})
}

func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get("X-User-ID")
	if id == "" {
		writeError(w, http.StatusUnauthorized, "missing caller identity")
		return "", false
	}
	return id, true
}

// writeEngineError converte os erros tipados do motor em reason codes HTTP,
// sem vazar detalhe interno.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrBetNotFound), errors.Is(err, engine.ErrChallengeNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, engine.ErrInsufficientFunds), errors.Is(err, engine.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, engine.ErrInvalidStateTransition),
		errors.Is(err, engine.ErrDeadlinePassed),
		errors.Is(err, engine.ErrVotingClosed),
		errors.Is(err, engine.ErrDuplicateChallenge),
		errors.Is(err, engine.ErrDuplicateVote),
		errors.Is(err, engine.ErrNoChallengers):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error("engine call failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, dto.ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
