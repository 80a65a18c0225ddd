package session

import (
	"crypto/ecdsa"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tokenmart/storefront-sdk/pkg/backend"
)

const (
	// AuthMessagePrefix is the prefix used for signing auth challenges
	AuthMessagePrefix = "Storefront auth: "

	// expiryLeeway re-authenticates slightly before the token actually
	// expires so in-flight requests don't race the deadline.
	expiryLeeway = 30 * time.Second
)

// AuthBackend is the subset of the backend client the authenticator needs.
type AuthBackend interface {
	RequestChallenge(walletAddress string) (*backend.ChallengeResponse, error)
	VerifySignature(walletAddress, challenge, signature string) (*backend.VerifyResponse, error)
}

// Authenticator performs wallet-signature authentication with the backend
// and tracks the resulting session token.
type Authenticator struct {
	privateKey   *ecdsa.PrivateKey
	address      string
	client       AuthBackend
	sessionToken string
	expiresAt    int64
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(privateKeyHex string, client AuthBackend) (*Authenticator, error) {
	// Parse private key
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	// Derive address
	publicKey := privateKey.Public()
	publicKeyECDSA, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to derive public key")
	}
	address := crypto.PubkeyToAddress(*publicKeyECDSA).Hex()

	return &Authenticator{
		privateKey: privateKey,
		address:    address,
		client:     client,
	}, nil
}

// Authenticate performs the full challenge-response authentication flow
func (a *Authenticator) Authenticate() (sessionToken string, expiresAt int64, err error) {
	// Step 1: Request challenge
	challengeResp, err := a.client.RequestChallenge(a.address)
	if err != nil {
		return "", 0, fmt.Errorf("failed to request challenge: %w", err)
	}

	// Step 2: Sign challenge
	signature, err := a.SignChallenge(challengeResp.Challenge)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign challenge: %w", err)
	}

	// Step 3: Verify signature
	verifyResp, err := a.client.VerifySignature(a.address, challengeResp.Challenge, signature)
	if err != nil {
		return "", 0, fmt.Errorf("failed to verify signature: %w", err)
	}

	a.sessionToken = verifyResp.SessionToken
	a.expiresAt = verifyResp.ExpiresAt

	return verifyResp.SessionToken, verifyResp.ExpiresAt, nil
}

// SignChallenge signs a challenge with the private key
func (a *Authenticator) SignChallenge(challenge string) (string, error) {
	// Construct message with prefix
	message := AuthMessagePrefix + challenge

	// Hash with Ethereum prefix
	hash := hashMessage([]byte(message))

	// Sign
	signature, err := crypto.Sign(hash, a.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign: %w", err)
	}

	// Adjust v value for Ethereum (27/28 instead of 0/1)
	signature[64] += 27

	return hexutil.Encode(signature), nil
}

// GetAddress returns the wallet address
func (a *Authenticator) GetAddress() string {
	return a.address
}

// SessionToken returns the current session token, which may be empty or
// expired. Use SessionValid before reusing it.
func (a *Authenticator) SessionToken() string {
	return a.sessionToken
}

// SessionValid reports whether the held session token can still be used.
// The token's exp claim is read without verifying the server signature;
// the backend remains the authority, this only avoids sending requests
// that are guaranteed to bounce.
func (a *Authenticator) SessionValid() bool {
	if a.sessionToken == "" {
		return false
	}

	deadline := a.expiresAt

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(a.sessionToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			deadline = exp.Unix()
		}
	}

	if deadline == 0 {
		return false
	}

	return time.Now().Add(expiryLeeway).Unix() < deadline
}

// hashMessage hashes a message with the Ethereum signed message prefix
func hashMessage(data []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(data))
	return crypto.Keccak256([]byte(prefix), data)
}
