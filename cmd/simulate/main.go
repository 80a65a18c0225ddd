// Command simulate runs a full token purchase against live services:
// authenticate, price, buy, confirm, and re-sync, printing each step.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/tokenmart/storefront-sdk/pkg/backend"
	"github.com/tokenmart/storefront-sdk/pkg/balance"
	"github.com/tokenmart/storefront-sdk/pkg/chain"
	"github.com/tokenmart/storefront-sdk/pkg/feed"
	"github.com/tokenmart/storefront-sdk/pkg/ledger"
	"github.com/tokenmart/storefront-sdk/pkg/purchase"
	"github.com/tokenmart/storefront-sdk/pkg/session"
	"github.com/tokenmart/storefront-sdk/pkg/types"
	"github.com/tokenmart/storefront-sdk/pkg/version"
)

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func requiredEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("%s is required", key)
	}
	return v
}

func main() {
	// Load .env if present
	_ = godotenv.Load()

	log.Printf("%s", version.GetFullVersionString())

	backendURL := envOrDefault("STOREFRONT_BACKEND_URL", "http://localhost:8080")
	streamURL := envOrDefault("STOREFRONT_STREAM_URL", "ws://localhost:8080/api/store/stream")
	privateKey := requiredEnv("STOREFRONT_PRIVATE_KEY")

	backendClient := backend.NewClient(backendURL)

	chainClient, err := chain.NewClient(&chain.Config{
		RPCEndpoint:   envOrDefault("STOREFRONT_RPC_ENDPOINT", "http://localhost:8545"),
		TokenContract: requiredEnv("STOREFRONT_TOKEN_CONTRACT"),
		Treasury:      requiredEnv("STOREFRONT_TREASURY"),
		ChainID:       envOrDefault("STOREFRONT_CHAIN_ID", "11155111"),
		PrivateKey:    privateKey,
		ExplorerHost:  envOrDefault("STOREFRONT_EXPLORER_HOST", chain.DefaultExplorerHost),
	})
	if err != nil {
		log.Fatalf("Failed to create chain client: %v", err)
	}
	defer chainClient.Close()

	auth, err := session.NewAuthenticator(privateKey, backendClient)
	if err != nil {
		log.Fatalf("Failed to create authenticator: %v", err)
	}

	// Assigned below; the callbacks only fire once purchases run.
	var syncer *balance.Syncer

	sess := session.New(session.Callbacks{
		OnAuthChanged: func(account types.Account) {
			log.Printf("Auth changed: address=%s authenticated=%v", account.Address, account.Authenticated)
			if account.Authenticated && syncer != nil {
				if _, err := syncer.Refresh(context.Background()); err != nil {
					log.Printf("Warning: balance refresh on auth failed: %v", err)
				}
			}
		},
		OnQuantityChanged: func(quantity string, amountDue decimal.Decimal) {
			log.Printf("Quantity changed: %s (amount due %s ETH)", quantity, amountDue.String())
		},
	})

	store, err := ledger.NewRedisStore(&ledger.RedisConfig{
		Addr:     envOrDefault("STOREFRONT_REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("STOREFRONT_REDIS_PASSWORD"),
	})
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer store.Close()

	syncer = balance.NewSyncer(chainClient, sess)

	orch, err := purchase.New(&purchase.Config{
		Session: sess,
		Auth:    auth,
		Chain:   chainClient,
		Balance: syncer,
		Ledger:  ledger.New(store),
		OnStateChanged: func(attemptID string, state purchase.State) {
			log.Printf("Purchase %s: %s", attemptID, state)
		},
	})
	if err != nil {
		log.Fatalf("Failed to create orchestrator: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Finish any grant left behind by an earlier crash before buying again.
	pendingGrants, err := orch.PendingGrants()
	if err != nil {
		log.Printf("Warning: failed to list pending grants: %v", err)
	}
	for _, entry := range pendingGrants {
		if entry.State != purchase.JournalStateGranting {
			continue
		}
		log.Printf("Recovering pending grant for tx %s", entry.TxHash)
		if _, err := orch.RetryGrant(ctx, entry.TxHash); err != nil {
			log.Printf("Warning: grant recovery for %s failed: %v", entry.TxHash, err)
		}
	}

	// Live transaction feed
	stream := feed.NewWebsocketStream(streamURL, func(err error) {
		log.Printf("Feed: %v", &purchase.Failure{Kind: purchase.FailSubscription, Err: err})
	})
	txFeed := feed.New(backendClient, stream, func(err error) {
		log.Printf("Feed: %v", err)
	})
	if err := txFeed.Start(ctx); err != nil {
		log.Printf("Warning: transaction feed unavailable: %v", err)
	}
	defer txFeed.Close()

	// Catalog
	assets, err := backendClient.Assets(ctx)
	if err != nil {
		log.Printf("Warning: failed to load catalog: %v", err)
	} else {
		log.Printf("Catalog has %d assets", len(assets))
	}

	// Buy tokens
	sess.SetQuantity(envOrDefault("STOREFRONT_QUANTITY", "10"))

	receipt, err := orch.BuyTokens(ctx)
	if err != nil {
		if f, ok := purchase.AsFailure(err); ok {
			log.Fatalf("Purchase failed (%s): %v", f.Kind, f.Err)
		}
		log.Fatalf("Purchase failed: %v", err)
	}

	log.Printf("Purchase confirmed: %s", receipt.ExplorerLink)
	log.Printf("Token balance: %s", sess.Account().Balance)

	for i, tx := range txFeed.Snapshot() {
		log.Printf("Feed[%d]: %s at %s", i, tx.Hash, tx.CreatedAt.Format(time.RFC3339))
	}
}
