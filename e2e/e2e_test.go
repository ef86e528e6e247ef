//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"splitledger/internal/auth"
	"splitledger/internal/config"
	"splitledger/internal/db"
	"splitledger/internal/domain/balances"
	"splitledger/internal/domain/group"
	"splitledger/internal/domain/ledger"
	"splitledger/internal/domain/user"
	"splitledger/internal/metrics"
	"splitledger/internal/repository/inmemory"
	grouprepo "splitledger/internal/repository/postgres/group"
	ledgerrepo "splitledger/internal/repository/postgres/ledger"
	userrepo "splitledger/internal/repository/postgres/user"
	"splitledger/internal/transport/httpserver"
	"splitledger/internal/transport/httpserver/handler"
	"splitledger/pkg/logger"
)

type testEnv struct {
	server *httptest.Server
	db     *gorm.DB
}

func setupE2E(t *testing.T) *testEnv {
	t.Helper()

	dsn := os.Getenv("E2E_DB_DSN")
	if dsn == "" {
		t.Skip("E2E_DB_DSN not set; skipping e2e tests")
	}

	log := logger.Discard()
	cfg := config.Config{
		HTTP: config.HTTPConfig{RequestTimeout: 10 * time.Second},
		DB:   config.DBConfig{Driver: config.DriverPostgres, DSN: dsn},
		Auth: config.AuthConfig{JWTSecret: "e2e-secret", TokenTTL: time.Hour},
	}

	dbConn, err := db.NewPostgres(cfg.DB, log)
	if err != nil {
		t.Fatalf("db connect: %v", err)
	}
	if err := db.Migrate(dbConn, log); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := cleanDB(dbConn); err != nil {
		t.Fatalf("clean db: %v", err)
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	m := metrics.New()
	users := user.NewService(userrepo.NewPostgres(dbConn), bcrypt.MinCost)
	groups := group.NewService(grouprepo.NewPostgres(dbConn), users, group.WithCache(inmemory.NewMemberCache(), time.Minute))
	ledgers := ledger.NewService(ledgerrepo.NewPostgres(dbConn), groups, users, m)
	balanceSvc := balances.NewService(groups, ledgers, m)

	handlers := handler.New(users, groups, ledgers, balanceSvc, tokens, nil, log)
	router := httpserver.NewRouter(cfg, handlers, tokens, m, log)

	return &testEnv{server: httptest.NewServer(router), db: dbConn}
}

func (e *testEnv) Close() {
	e.server.Close()
	sqlDB, err := e.db.DB()
	if err == nil {
		_ = sqlDB.Close()
	}
}

func cleanDB(dbConn *gorm.DB) error {
	return dbConn.WithContext(context.Background()).Exec(
		"TRUNCATE TABLE approval_receivers, approval_requests, expense_settlements, expense_participants, expenses, group_members, groups, users CASCADE",
	).Error
}

func requestJSON(t *testing.T, client *http.Client, method, url, token string, payload any) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}

	return resp, respBody
}

func expectStatus(t *testing.T, resp *http.Response, body []byte, status int, dst any) {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("expected %d, got %d: %s", status, resp.StatusCode, string(body))
	}
	if dst != nil {
		if err := json.Unmarshal(body, dst); err != nil {
			t.Fatalf("decode response: %v (%s)", err, string(body))
		}
	}
}

type sessionResponse struct {
	Token string `json:"token"`
	User  struct {
		ID string `json:"id"`
	} `json:"user"`
}

type approvalResponse struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	Receivers []string `json:"receivers"`
}

type createExpenseResponse struct {
	Expense struct {
		ID string `json:"id"`
	} `json:"expense"`
	Request *approvalResponse `json:"request"`
}

type outcomeResponse struct {
	Outcome string `json:"outcome"`
}

type aggregationResponse struct {
	Debts []struct {
		From   string          `json:"from"`
		To     string          `json:"to"`
		Amount decimal.Decimal `json:"amount"`
	} `json:"debts"`
	CurrentUserSummary struct {
		TotalOwe  decimal.Decimal `json:"totalOwe"`
		TotalOwed decimal.Decimal `json:"totalOwed"`
	} `json:"currentUserSummary"`
}

func register(t *testing.T, client *http.Client, baseURL, name string) sessionResponse {
	t.Helper()
	resp, body := requestJSON(t, client, http.MethodPost, baseURL+"/api/auth/register", "", map[string]string{
		"name":     name,
		"email":    name + "@example.com",
		"password": "password123",
	})
	var session sessionResponse
	expectStatus(t, resp, body, http.StatusCreated, &session)
	return session
}

func TestE2EGroupDebtsSimplify(t *testing.T) {
	env := setupE2E(t)
	defer env.Close()

	client := &http.Client{Timeout: 10 * time.Second}
	base := env.server.URL
	a := register(t, client, base, "ann")
	b := register(t, client, base, "ben")
	c := register(t, client, base, "cat")

	resp, body := requestJSON(t, client, http.MethodPost, base+"/api/groups", a.Token, map[string]any{
		"name":      "Holiday",
		"memberIds": []string{b.User.ID, c.User.ID},
	})
	var created struct {
		ID string `json:"id"`
	}
	expectStatus(t, resp, body, http.StatusCreated, &created)

	approve := func(request *approvalResponse, tokens map[string]string) {
		t.Helper()
		for _, receiver := range request.Receivers {
			resp, body := requestJSON(t, client, http.MethodPost, base+"/api/approvals/expense/"+request.ID, tokens[receiver], map[string]bool{"accept": true})
			expectStatus(t, resp, body, http.StatusOK, nil)
		}
	}
	tokens := map[string]string{a.User.ID: a.Token, b.User.ID: b.Token, c.User.ID: c.Token}
	everyone := []string{a.User.ID, b.User.ID, c.User.ID}

	expenses := []struct {
		creator sessionResponse
		payer   string
		amount  string
	}{
		{creator: a, payer: a.User.ID, amount: "135"},
		{creator: b, payer: b.User.ID, amount: "90"},
	}
	for _, e := range expenses {
		resp, body := requestJSON(t, client, http.MethodPost, base+"/api/expenses", e.creator.Token, map[string]any{
			"groupId":     created.ID,
			"description": "Shared " + e.amount,
			"amount":      e.amount,
			"payerId":     e.payer,
			"involved":    everyone,
			"splitType":   "equal",
		})
		var out createExpenseResponse
		expectStatus(t, resp, body, http.StatusCreated, &out)
		approve(out.Request, tokens)
	}

	resp, body = requestJSON(t, client, http.MethodGet, base+"/api/groups/"+created.ID+"/aggregation", c.Token, nil)
	var aggregation aggregationResponse
	expectStatus(t, resp, body, http.StatusOK, &aggregation)

	// nets: ann +60, ben +15, cat -75. cat pays both creditors directly.
	if len(aggregation.Debts) != 2 {
		t.Fatalf("expected 2 simplified debts, got %+v", aggregation.Debts)
	}
	if !aggregation.CurrentUserSummary.TotalOwe.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("expected cat to owe 75 in total, got %s", aggregation.CurrentUserSummary.TotalOwe)
	}
}

func TestE2EConcurrentApprovals(t *testing.T) {
	env := setupE2E(t)
	defer env.Close()

	client := &http.Client{Timeout: 10 * time.Second}
	base := env.server.URL

	sessions := make([]sessionResponse, 0, 6)
	ids := make([]string, 0, 6)
	for i := 0; i < 6; i++ {
		session := register(t, client, base, fmt.Sprintf("member%d", i))
		sessions = append(sessions, session)
		ids = append(ids, session.User.ID)
	}

	resp, body := requestJSON(t, client, http.MethodPost, base+"/api/groups", sessions[0].Token, map[string]any{
		"name":      "Race",
		"memberIds": ids[1:],
	})
	var created struct {
		ID string `json:"id"`
	}
	expectStatus(t, resp, body, http.StatusCreated, &created)

	resp, body = requestJSON(t, client, http.MethodPost, base+"/api/expenses", sessions[0].Token, map[string]any{
		"groupId":     created.ID,
		"description": "Cabin",
		"amount":      "600",
		"payerId":     ids[0],
		"involved":    ids,
		"splitType":   "equal",
	})
	var out createExpenseResponse
	expectStatus(t, resp, body, http.StatusCreated, &out)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		approved int
	)
	for _, session := range sessions[1:] {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			resp, body := requestJSON(t, client, http.MethodPost, base+"/api/approvals/expense/"+out.Request.ID, token, map[string]bool{"accept": true})
			if resp.StatusCode != http.StatusOK {
				t.Errorf("expected 200, got %d: %s", resp.StatusCode, string(body))
				return
			}
			var outcome outcomeResponse
			if err := json.Unmarshal(body, &outcome); err != nil {
				t.Errorf("decode outcome: %v", err)
				return
			}
			if outcome.Outcome == "approved" {
				mu.Lock()
				approved++
				mu.Unlock()
			}
		}(session.Token)
	}
	wg.Wait()

	if approved != 1 {
		t.Fatalf("expected exactly one approving vote, got %d", approved)
	}

	resp, body = requestJSON(t, client, http.MethodGet, base+"/api/expenses/"+out.Expense.ID, sessions[0].Token, nil)
	var expense struct {
		Status string `json:"status"`
	}
	expectStatus(t, resp, body, http.StatusOK, &expense)
	if expense.Status != "approved" {
		t.Fatalf("expected approved expense, got %s", expense.Status)
	}
}
