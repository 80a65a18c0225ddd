// Package backend wraps HTTP operations against the storefront backend:
// wallet authentication, the transaction feed query, and the asset catalog.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tokenmart/storefront-sdk/pkg/types"
	"github.com/tokenmart/storefront-sdk/pkg/version"
)

// ErrSessionExpired indicates the session token has expired
var ErrSessionExpired = fmt.Errorf("session expired")

// Client wraps HTTP operations for storefront endpoints
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ChallengeRequest is the request body for /api/store/auth/challenge
type ChallengeRequest struct {
	WalletAddress string `json:"wallet_address"`
}

// ChallengeResponse is the response from /api/store/auth/challenge
type ChallengeResponse struct {
	Challenge string `json:"challenge"`
	ExpiresAt int64  `json:"expires_at"`
}

// VerifyRequest is the request body for /api/store/auth/verify
type VerifyRequest struct {
	WalletAddress string `json:"wallet_address"`
	Challenge     string `json:"challenge"`
	Signature     string `json:"signature"`
}

// VerifyResponse is the response from /api/store/auth/verify
type VerifyResponse struct {
	SessionToken string `json:"session_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// TransactionsResponse is the response from GET /api/store/transactions
type TransactionsResponse struct {
	Transactions []types.Transaction `json:"transactions"`
}

// AssetsResponse is the response from GET /api/store/assets
type AssetsResponse struct {
	Assets []types.Asset `json:"assets"`
}

// ErrorResponse represents an error response from the API
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewClient creates a new HTTP client for storefront endpoints
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// RequestChallenge requests an authentication challenge from the backend
func (c *Client) RequestChallenge(walletAddress string) (*ChallengeResponse, error) {
	reqBody := ChallengeRequest{WalletAddress: walletAddress}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal challenge request: %w", err)
	}

	resp, err := c.httpClient.Post(
		c.baseURL+"/api/store/auth/challenge",
		"application/json",
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to request challenge: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read challenge response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("challenge request failed: %s", errResp.Error)
		}
		return nil, fmt.Errorf("challenge request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result ChallengeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse challenge response: %w", err)
	}

	return &result, nil
}

// VerifySignature verifies the signed challenge and returns a session token
func (c *Client) VerifySignature(walletAddress, challenge, signature string) (*VerifyResponse, error) {
	reqBody := VerifyRequest{
		WalletAddress: walletAddress,
		Challenge:     challenge,
		Signature:     signature,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal verify request: %w", err)
	}

	resp, err := c.httpClient.Post(
		c.baseURL+"/api/store/auth/verify",
		"application/json",
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to verify signature: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read verify response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("authentication failed: %s", errResp.Error)
		}
		return nil, fmt.Errorf("authentication failed")
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("verify request failed: %s", errResp.Error)
		}
		return nil, fmt.Errorf("verify request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result VerifyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse verify response: %w", err)
	}

	return &result, nil
}

// RecentTransactions fetches the most recent transactions, newest first.
func (c *Client) RecentTransactions(ctx context.Context, limit int) ([]types.Transaction, error) {
	endpoint := c.baseURL + "/api/store/transactions?" + url.Values{
		"limit": []string{strconv.Itoa(limit)},
		"order": []string{"created_at.desc"},
	}.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactions request: %w", err)
	}
	httpReq.Header.Set("X-Storefront-Version", version.Version())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read transactions response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("transactions query failed: %s", errResp.Error)
		}
		return nil, fmt.Errorf("transactions query failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result TransactionsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse transactions response: %w", err)
	}

	return result.Transactions, nil
}

// Assets fetches the purchasable asset catalog.
func (c *Client) Assets(ctx context.Context) ([]types.Asset, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/store/assets", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create assets request: %w", err)
	}
	httpReq.Header.Set("X-Storefront-Version", version.Version())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read assets response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrSessionExpired
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("assets query failed: %s", errResp.Error)
		}
		return nil, fmt.Errorf("assets query failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result AssetsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse assets response: %w", err)
	}

	return result.Assets, nil
}
