package types

import "time"

// Transaction status constants
const (
	TxStatusPending   = "PENDING"
	TxStatusConfirmed = "CONFIRMED"
	TxStatusFailed    = "FAILED"
)

// Transaction is a single purchase transaction as reported by the backend
// feed. Transactions are ordered by CreatedAt descending in query results.
type Transaction struct {
	Hash      string    `json:"hash"`
	From      string    `json:"from,omitempty"`
	Value     string    `json:"value,omitempty"` // wei, decimal string
	Status    string    `json:"status,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Receipt is the confirmed result of an on-chain purchase.
type Receipt struct {
	TransactionHash string `json:"transaction_hash"`
	BlockNumber     uint64 `json:"block_number,omitempty"`
	ExplorerLink    string `json:"explorer_link,omitempty"`
}

// Asset is a purchasable catalog item.
type Asset struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	PriceWei    string `json:"price_wei"` // decimal string
}

// OwnedAsset is a catalog asset plus the purchase metadata recorded when
// ownership was granted.
type OwnedAsset struct {
	Asset        Asset     `json:"asset"`
	TxHash       string    `json:"tx_hash"`
	PurchaseDate time.Time `json:"purchase_date"`
	ReceiptLink  string    `json:"receipt_link,omitempty"`
}

// UserRecord is the persisted per-wallet record holding profile data and
// the owned-asset list.
type UserRecord struct {
	Wallet      string       `json:"wallet"`
	Nickname    string       `json:"nickname,omitempty"`
	OwnedAssets []OwnedAsset `json:"owned_assets,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at,omitempty"`
}

// Account is the wallet identity the SDK operates as.
type Account struct {
	Address       string `json:"address"`
	Authenticated bool   `json:"authenticated"`
	Balance       string `json:"balance,omitempty"` // token units, decimal string
}
