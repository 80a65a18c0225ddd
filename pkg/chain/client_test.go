package chain

import (
	"strings"
	"testing"
)

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "invalid private key",
			cfg: Config{
				RPCEndpoint: "http://localhost:8545",
				ChainID:     "11155111",
				PrivateKey:  "not-a-key",
			},
			wantErr: "invalid private key",
		},
		{
			name: "invalid chain ID",
			cfg: Config{
				RPCEndpoint: "http://localhost:8545",
				ChainID:     "mainnet",
				PrivateKey:  "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
			},
			wantErr: "invalid chain ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(&tt.cfg)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestNewClientDerivesAddress(t *testing.T) {
	c, err := NewClient(&Config{
		RPCEndpoint: "http://localhost:8545",
		ChainID:     "11155111",
		// Well-known test vector key
		PrivateKey: "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
	})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	defer c.Close()

	want := "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	if c.GetAddress() != want {
		t.Errorf("GetAddress() = %s, want %s", c.GetAddress(), want)
	}
}

func TestExplorerTxURL(t *testing.T) {
	c := &Client{explorerHost: "sepolia.etherscan.io"}
	hash := "0xabc123"

	got := c.ExplorerTxURL(hash)
	want := "https://sepolia.etherscan.io/tx/0xabc123"
	if got != want {
		t.Errorf("ExplorerTxURL(%q) = %s, want %s", hash, got, want)
	}
}
