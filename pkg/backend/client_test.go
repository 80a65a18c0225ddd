package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRecentTransactions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/store/transactions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "20" {
			t.Errorf("limit = %s, want 20", got)
		}
		if got := r.URL.Query().Get("order"); got != "created_at.desc" {
			t.Errorf("order = %s, want created_at.desc", got)
		}

		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write([]byte(`{"transactions":[
			{"hash":"0xaaa","created_at":"2026-08-30T12:00:05Z"},
			{"hash":"0xbbb","created_at":"2026-08-30T12:00:00Z"}
		]}`)); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	txs, err := client.RecentTransactions(context.Background(), 20)
	if err != nil {
		t.Fatalf("RecentTransactions failed: %v", err)
	}

	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}
	if txs[0].Hash != "0xaaa" {
		t.Errorf("first hash = %s, want 0xaaa (newest first)", txs[0].Hash)
	}
}

func TestRecentTransactionsErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		if err := json.NewEncoder(w).Encode(ErrorResponse{Error: "feed unavailable"}); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.RecentTransactions(context.Background(), 20)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "feed unavailable") {
		t.Errorf("error = %v, want backend message surfaced", err)
	}
}

func TestRequestChallenge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/store/auth/challenge" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req ChallengeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.WalletAddress != "0xf39F" {
			t.Errorf("wallet = %s, want 0xf39F", req.WalletAddress)
		}

		if err := json.NewEncoder(w).Encode(ChallengeResponse{Challenge: "nonce-1", ExpiresAt: 1234}); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	resp, err := client.RequestChallenge("0xf39F")
	if err != nil {
		t.Fatalf("RequestChallenge failed: %v", err)
	}
	if resp.Challenge != "nonce-1" {
		t.Errorf("challenge = %s, want nonce-1", resp.Challenge)
	}
}

func TestVerifySignatureUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		if err := json.NewEncoder(w).Encode(ErrorResponse{Error: "bad signature"}); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.VerifySignature("0xf39F", "nonce-1", "0xdead")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "authentication failed") {
		t.Errorf("error = %v, want authentication failure", err)
	}
}

func TestAssets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/store/assets" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if _, err := w.Write([]byte(`{"assets":[{"id":"asset-1","name":"Echo Dot","price_wei":"100000000000000"}]}`)); err != nil {
			t.Errorf("write response: %v", err)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	assets, err := client.Assets(context.Background())
	if err != nil {
		t.Fatalf("Assets failed: %v", err)
	}
	if len(assets) != 1 || assets[0].ID != "asset-1" {
		t.Errorf("assets = %+v, want one asset with ID asset-1", assets)
	}
}
