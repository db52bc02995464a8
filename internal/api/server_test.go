package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"

	"github.com/radieske/commitbet-engine/internal/api"
	"github.com/radieske/commitbet-engine/internal/api/dto"
	"github.com/radieske/commitbet-engine/internal/engine"
	"github.com/radieske/commitbet-engine/internal/engine/enginetest"
	"github.com/radieske/commitbet-engine/internal/ledger"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	store := enginetest.NewMemStore(100)
	svc := engine.NewService(store, engine.Rules{ProofWindow: 24 * time.Hour, AutoAccept: true})
	srv := api.NewServer(zap.NewNop(), svc, ledger.Ledger{StartingBalance: 100}, nil)
	return srv.Router()
}

func doJSON(t *testing.T, h http.Handler, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createBet(t *testing.T, h http.Handler, owner string) engine.BetView {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/bets", owner, dto.CreateBetRequest{
		Title:    "run 5k",
		Criteria: "strava screenshot",
		Stake:    7,
		Deadline: time.Now().Add(48 * time.Hour),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var view engine.BetView
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	return view
}

func TestCreateBetEndpoint(t *testing.T) {
	h := newTestServer(t)

	view := createBet(t, h, "owner")
	if view.Status != engine.BetActive {
		t.Errorf("status = %s, want ACTIVE", view.Status)
	}
	if view.ID == "" {
		t.Error("view has no id")
	}
}

func TestMissingCallerIdentity(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/bets", "", dto.CreateBetRequest{})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without X-User-ID", rec.Code)
	}
}

func TestBadJSONBody(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/bets", bytes.NewBufferString("{nope"))
	req.Header.Set("X-User-ID", "owner")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 on malformed body", rec.Code)
	}
}

func TestGetUnknownBet(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/bets/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestEngineErrorMapping(t *testing.T) {
	h := newTestServer(t)
	view := createBet(t, h, "owner")

	cases := []struct {
		name   string
		method string
		path   string
		user   string
		body   any
		want   int
	}{
		{"self-challenge is forbidden", http.MethodPost,
			"/bets/" + view.ID + "/challenges", "owner", dto.ChallengeRequest{Amount: 3}, http.StatusForbidden},
		{"non-positive amount", http.MethodPost,
			"/bets/" + view.ID + "/challenges", "B", dto.ChallengeRequest{Amount: 0}, http.StatusBadRequest},
		{"stake beyond balance", http.MethodPost,
			"/bets/" + view.ID + "/challenges", "B", dto.ChallengeRequest{Amount: 9999}, http.StatusBadRequest},
		{"proof without challengers", http.MethodPost,
			"/bets/" + view.ID + "/proof", "owner", dto.ProofRequest{Comment: "done"}, http.StatusConflict},
		{"cancel by stranger", http.MethodPost,
			"/bets/" + view.ID + "/cancel", "B", nil, http.StatusForbidden},
		{"vote before proof", http.MethodPost,
			"/bets/" + view.ID + "/votes", "B", dto.VoteRequest{Approve: true}, http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, h, tc.method, tc.path, tc.user, tc.body)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestChallengeAndCancelFlow(t *testing.T) {
	h := newTestServer(t)
	view := createBet(t, h, "owner")

	rec := doJSON(t, h, http.MethodPost, "/bets/"+view.ID+"/challenges", "B", dto.ChallengeRequest{Amount: 4})
	if rec.Code != http.StatusCreated {
		t.Fatalf("challenge status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/bets/"+view.ID+"/cancel", "owner", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d, body %s", rec.Code, rec.Body.String())
	}
	var cancelled engine.BetView
	if err := json.NewDecoder(rec.Body).Decode(&cancelled); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cancelled.Status != engine.BetCancelled {
		t.Errorf("status = %s, want CANCELLED", cancelled.Status)
	}

	// repetição da ação terminal vira conflito
	rec = doJSON(t, h, http.MethodPost, "/bets/"+view.ID+"/cancel", "owner", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("second cancel status = %d, want 409", rec.Code)
	}
}

func TestProofAndVoteFlow(t *testing.T) {
	h := newTestServer(t)
	view := createBet(t, h, "owner")

	if rec := doJSON(t, h, http.MethodPost, "/bets/"+view.ID+"/challenges", "B", dto.ChallengeRequest{Amount: 4}); rec.Code != http.StatusCreated {
		t.Fatalf("challenge status = %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/bets/"+view.ID+"/proof", "owner", dto.ProofRequest{Comment: "done", MediaURL: "https://img/p.png"}); rec.Code != http.StatusOK {
		t.Fatalf("proof status = %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodPost, "/bets/"+view.ID+"/votes", "B", dto.VoteRequest{Approve: true}); rec.Code != http.StatusCreated {
		t.Fatalf("vote status = %d", rec.Code)
	}
	// resolver com a janela ainda aberta é conflito
	if rec := doJSON(t, h, http.MethodPost, "/bets/"+view.ID+"/resolve", "owner", nil); rec.Code != http.StatusConflict {
		t.Errorf("early resolve status = %d, want 409", rec.Code)
	}

	rec := doJSON(t, h, http.MethodGet, "/bets/"+view.ID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var got engine.BetView
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != engine.BetProofUnderReview {
		t.Errorf("status = %s, want PROOF_UNDER_REVIEW", got.Status)
	}
	if got.Tally.Approves != 1 {
		t.Errorf("tally approves = %d, want 1", got.Tally.Approves)
	}
}

func TestBalanceEndpoint(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	mock.ExpectExec(`INSERT INTO accounts`).
		WithArgs("u1", int64(100)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(`SELECT balance FROM accounts`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(int64(100)))

	store := enginetest.NewMemStore(100)
	svc := engine.NewService(store, engine.Rules{ProofWindow: 24 * time.Hour, AutoAccept: true})
	srv := api.NewServer(zap.NewNop(), svc, ledger.Ledger{StartingBalance: 100}, db)

	rec := doJSON(t, srv.Router(), http.MethodGet, "/accounts/u1/balance", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp dto.BalanceResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Balance != 100 {
		t.Errorf("balance = %d, want starting balance 100", resp.Balance)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
