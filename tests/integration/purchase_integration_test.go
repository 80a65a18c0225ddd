package integration

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/tokenmart/storefront-sdk/pkg/backend"
	"github.com/tokenmart/storefront-sdk/pkg/balance"
	"github.com/tokenmart/storefront-sdk/pkg/chain"
	"github.com/tokenmart/storefront-sdk/pkg/feed"
	"github.com/tokenmart/storefront-sdk/pkg/ledger"
	"github.com/tokenmart/storefront-sdk/pkg/purchase"
	"github.com/tokenmart/storefront-sdk/pkg/session"
)

// Test configuration - set via environment variables for security:
//
//	TEST_BACKEND_URL    - Backend API URL
//	TEST_PRIVATE_KEY    - Wallet private key (hex)
//	TEST_RPC_ENDPOINT   - Blockchain RPC endpoint
//	TEST_TOKEN_CONTRACT - Token contract address
//	TEST_TREASURY       - Treasury wallet address
//	TEST_REDIS_ADDR     - Redis address for the ownership ledger
var (
	testBackendURL    = envOrDefault("TEST_BACKEND_URL", "http://localhost:8080")
	testPrivateKey    = os.Getenv("TEST_PRIVATE_KEY")
	testRPCEndpoint   = envOrDefault("TEST_RPC_ENDPOINT", "http://localhost:8545")
	testTokenContract = os.Getenv("TEST_TOKEN_CONTRACT")
	testTreasury      = os.Getenv("TEST_TREASURY")
	testChainID       = envOrDefault("TEST_CHAIN_ID", "11155111")
	testRedisAddr     = envOrDefault("TEST_REDIS_ADDR", "localhost:6379")
)

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func requireTestEnv(t *testing.T) {
	t.Helper()
	if testPrivateKey == "" {
		t.Skip("TEST_PRIVATE_KEY not set; skipping integration test")
	}
	if testTokenContract == "" || testTreasury == "" {
		t.Skip("TEST_TOKEN_CONTRACT and TEST_TREASURY not set; skipping integration test")
	}
}

// Helper to wire a full orchestrator against live services
func createTestOrchestrator(t *testing.T) (*purchase.Orchestrator, *session.Session) {
	t.Helper()

	backendClient := backend.NewClient(testBackendURL)

	chainClient, err := chain.NewClient(&chain.Config{
		RPCEndpoint:   testRPCEndpoint,
		TokenContract: testTokenContract,
		Treasury:      testTreasury,
		ChainID:       testChainID,
		PrivateKey:    testPrivateKey,
	})
	if err != nil {
		t.Fatalf("Failed to create chain client: %v", err)
	}
	t.Cleanup(chainClient.Close)

	auth, err := session.NewAuthenticator(testPrivateKey, backendClient)
	if err != nil {
		t.Fatalf("Failed to create authenticator: %v", err)
	}

	store, err := ledger.NewRedisStore(&ledger.RedisConfig{Addr: testRedisAddr})
	if err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}
	t.Cleanup(func() { store.Close() })

	sess := session.New(session.Callbacks{})

	orch, err := purchase.New(&purchase.Config{
		Session: sess,
		Auth:    auth,
		Chain:   chainClient,
		Balance: balance.NewSyncer(chainClient, sess),
		Ledger:  ledger.New(store),
		Journal: purchase.NewJournalWithDir(t.TempDir()),
	})
	if err != nil {
		t.Fatalf("Failed to create orchestrator: %v", err)
	}

	return orch, sess
}

func TestBuyTokensEndToEnd(t *testing.T) {
	requireTestEnv(t)

	orch, sess := createTestOrchestrator(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	sess.SetQuantity("1")

	receipt, err := orch.BuyTokens(ctx)
	if err != nil {
		t.Fatalf("BuyTokens failed: %v", err)
	}

	if receipt.TransactionHash == "" {
		t.Error("receipt has no transaction hash")
	}
	if !strings.Contains(receipt.ExplorerLink, receipt.TransactionHash) {
		t.Errorf("explorer link %s does not reference tx %s", receipt.ExplorerLink, receipt.TransactionHash)
	}
	if sess.Account().Balance == "" {
		t.Error("balance not synced after confirmed purchase")
	}
}

func TestTransactionFeedSeedsFromBackend(t *testing.T) {
	if os.Getenv("TEST_BACKEND_URL") == "" {
		t.Skip("TEST_BACKEND_URL not set; skipping integration test")
	}

	backendClient := backend.NewClient(testBackendURL)
	txFeed := feed.New(backendClient, nil, func(err error) {
		t.Logf("feed error: %v", err)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := txFeed.Start(ctx); err != nil {
		t.Fatalf("feed start failed: %v", err)
	}
	defer txFeed.Close()

	snap := txFeed.Snapshot()
	if len(snap) > feed.WindowSize {
		t.Errorf("window holds %d transactions, want at most %d", len(snap), feed.WindowSize)
	}
	t.Logf("seeded feed with %d transactions", len(snap))
}
