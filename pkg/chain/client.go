// Package chain implements the on-chain capability: token balance reads,
// mint purchases with attached value, treasury transfers, and confirmation
// waits against an EVM RPC endpoint.
package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/tokenmart/storefront-sdk/pkg/types"
)

// Confirmations is how many blocks must build on a purchase transaction
// before it is treated as final.
const Confirmations = 3

// DefaultExplorerHost is used for receipt links when no explorer host is
// configured.
const DefaultExplorerHost = "sepolia.etherscan.io"

const receiptPollInterval = 2 * time.Second

// Config holds the connection and signing parameters for the chain client.
type Config struct {
	RPCEndpoint   string
	TokenContract string // token contract address (mint target)
	Treasury      string // treasury wallet receiving asset payments
	ChainID       string
	PrivateKey    string // hex, with or without 0x prefix
	ExplorerHost  string // host for receipt links, e.g. "sepolia.etherscan.io"
}

// Client talks to the chain on behalf of a single wallet.
type Client struct {
	client       *ethclient.Client
	tokenAddress common.Address
	treasury     common.Address
	chainID      *big.Int
	privateKey   *ecdsa.PrivateKey
	address      common.Address
	explorerHost string
}

// Pending is a submitted transaction that has not yet reached finality.
type Pending interface {
	// Hash returns the transaction hash.
	Hash() string
	// Wait blocks until the transaction has the given number of
	// confirmations, the transaction reverts, or ctx expires.
	Wait(ctx context.Context, confirmations uint64) (*types.Receipt, error)
}

// NewClient creates a chain client for the configured wallet.
func NewClient(cfg *Config) (*Client, error) {
	// Parse private key
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	// Derive address
	publicKey := privateKey.Public()
	publicKeyECDSA, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to derive public key")
	}
	address := crypto.PubkeyToAddress(*publicKeyECDSA)

	// Parse chain ID
	chainID, ok := new(big.Int).SetString(cfg.ChainID, 10)
	if !ok {
		return nil, fmt.Errorf("invalid chain ID: %s", cfg.ChainID)
	}

	explorerHost := cfg.ExplorerHost
	if explorerHost == "" {
		explorerHost = DefaultExplorerHost
	}

	// Connect to RPC
	client, err := ethclient.Dial(cfg.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	return &Client{
		client:       client,
		tokenAddress: common.HexToAddress(cfg.TokenContract),
		treasury:     common.HexToAddress(cfg.Treasury),
		chainID:      chainID,
		privateKey:   privateKey,
		address:      address,
		explorerHost: explorerHost,
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// GetAddress returns the wallet address.
func (c *Client) GetAddress() string {
	return c.address.Hex()
}

// ExplorerTxURL returns the block-explorer link for a transaction hash.
func (c *Client) ExplorerTxURL(txHash string) string {
	return fmt.Sprintf("https://%s/tx/%s", c.explorerHost, txHash)
}

// BalanceOf reads the token balance of an account from the token contract.
func (c *Client) BalanceOf(ctx context.Context, account string) (*big.Int, error) {
	// ABI for balanceOf(address) -> uint256
	balanceABI, err := abi.JSON(strings.NewReader(`[{"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`))
	if err != nil {
		return nil, fmt.Errorf("failed to parse balanceOf ABI: %w", err)
	}

	data, err := balanceABI.Pack("balanceOf", common.HexToAddress(account))
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf call: %w", err)
	}

	result, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.tokenAddress,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call balanceOf: %w", err)
	}

	var balance *big.Int
	if err := balanceABI.UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf result: %w", err)
	}

	return balance, nil
}

// Mint submits a token mint of the given quantity with the payment attached
// as transaction value. It returns once the transaction is accepted by the
// node; confirmation is the caller's job via Pending.Wait.
func (c *Client) Mint(ctx context.Context, quantity uint64, payment *big.Int) (Pending, error) {
	// ABI for mint(uint256 amount), payable
	mintABI, err := abi.JSON(strings.NewReader(`[{"inputs":[{"name":"amount","type":"uint256"}],"name":"mint","outputs":[],"stateMutability":"payable","type":"function"}]`))
	if err != nil {
		return nil, fmt.Errorf("failed to parse mint ABI: %w", err)
	}

	data, err := mintABI.Pack("mint", new(big.Int).SetUint64(quantity))
	if err != nil {
		return nil, fmt.Errorf("failed to pack mint call: %w", err)
	}

	signedTx, err := c.sendSigned(ctx, c.tokenAddress, payment, data)
	if err != nil {
		return nil, err
	}

	return &pendingTx{client: c, hash: signedTx.Hash()}, nil
}

// Transfer submits a plain value transfer of the payment to the treasury
// wallet. Used for catalog asset purchases.
func (c *Client) Transfer(ctx context.Context, payment *big.Int) (Pending, error) {
	signedTx, err := c.sendSigned(ctx, c.treasury, payment, nil)
	if err != nil {
		return nil, err
	}

	return &pendingTx{client: c, hash: signedTx.Hash()}, nil
}

// sendSigned builds, signs and submits a transaction from the client wallet.
func (c *Client) sendSigned(ctx context.Context, to common.Address, value *big.Int, data []byte) (*ethtypes.Transaction, error) {
	// Check wallet balance before submitting
	balance, err := c.client.BalanceAt(ctx, c.address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check balance: %w", err)
	}
	if balance.Cmp(value) < 0 {
		return nil, fmt.Errorf("insufficient balance: have %s wei, need %s wei", balance.String(), value.String())
	}

	// Get nonce
	nonce, err := c.client.PendingNonceAt(ctx, c.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	// Get gas price
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	// Estimate gas (also validates the tx won't revert)
	estimatedGas, err := c.client.EstimateGas(ctx, ethereum.CallMsg{
		From:  c.address,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return nil, fmt.Errorf("transaction would revert: %w", err)
	}
	gasLimit := estimatedGas * 120 / 100 // 20% safety margin

	// Create transaction
	tx := ethtypes.NewTransaction(
		nonce,
		to,
		value,
		gasLimit,
		gasPrice,
		data,
	)

	// Sign transaction
	signer := ethtypes.NewEIP155Signer(c.chainID)
	signedTx, err := ethtypes.SignTx(tx, signer, c.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	// Send transaction
	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx, nil
}

// pendingTx implements Pending against the live client.
type pendingTx struct {
	client *Client
	hash   common.Hash
}

// Hash returns the transaction hash.
func (p *pendingTx) Hash() string {
	return p.hash.Hex()
}

// Wait polls for the transaction receipt, then waits until the required
// number of blocks has built on top of the inclusion block. The inclusion
// block itself counts as the first confirmation.
func (p *pendingTx) Wait(ctx context.Context, confirmations uint64) (*types.Receipt, error) {
	receipt, err := p.waitForReceipt(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
	}

	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("transaction reverted")
	}

	included := receipt.BlockNumber.Uint64()

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		head, err := p.client.client.BlockNumber(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get block number: %w", err)
		}
		if head >= included && head-included+1 >= confirmations {
			return &types.Receipt{
				TransactionHash: p.hash.Hex(),
				BlockNumber:     included,
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// waitForReceipt polls for the transaction receipt.
func (p *pendingTx) waitForReceipt(ctx context.Context) (*ethtypes.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			receipt, err := p.client.client.TransactionReceipt(ctx, p.hash)
			if err == nil {
				return receipt, nil
			}
			// Continue polling if receipt not found yet
		}
	}
}
