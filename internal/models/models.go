package models

import "time"

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Product rows are read-only inputs from the catalog; this service never
// writes them.
type Product struct {
	ID               string    `json:"id"`
	Slug             string    `json:"slug"`
	Name             string    `json:"name"`
	ShortDescription string    `json:"short_description"`
	Price            int64     `json:"price"` // minor units
	Type             string    `json:"type"`
	Category         string    `json:"category"`
	IsActive         bool      `json:"is_active"`
	AccessDuration   int       `json:"access_duration"` // days; 0 means default
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Order struct {
	ID                      string     `json:"id"`
	UserID                  string     `json:"user_id"`
	ProductID               string     `json:"product_id"`
	Amount                  int64      `json:"amount"` // minor units, post-discount
	Status                  string     `json:"status"`
	StripePaymentIntentID   string     `json:"stripe_payment_intent_id,omitempty"`
	StripeCheckoutSessionID string     `json:"stripe_checkout_session_id,omitempty"`
	PurchaseDate            *time.Time `json:"purchase_date,omitempty"`
	ExpiryDate              *time.Time `json:"expiry_date,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// UserAsset is the entitlement record: at most one active row per
// (user, product), enforced by a partial unique index.
type UserAsset struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	ProductID    string    `json:"product_id"`
	OrderID      string    `json:"order_id"`
	PurchaseDate time.Time `json:"purchase_date"`
	ExpiryDate   time.Time `json:"expiry_date"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProcessedWebhook is the idempotency ledger, keyed by the provider's
// checkout session id.
type ProcessedWebhook struct {
	ID          string    `json:"id"`
	EventType   string    `json:"event_type"`
	ProcessedAt time.Time `json:"processed_at"`
}

type Discount struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"` // general | category
	Percentage int       `json:"percentage"`
	Category   string    `json:"category,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type ProductModule struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"product_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ProductMaterial struct {
	ID          string    `json:"id"`
	ModuleID    string    `json:"module_id"`
	Type        string    `json:"type"` // video | file
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	VideoURL    string    `json:"video_url,omitempty"`
	FileURL     string    `json:"file_url,omitempty"`
	FileName    string    `json:"file_name,omitempty"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AccessResult is computed fresh on every check and never persisted.
type AccessResult struct {
	HasAccess   bool       `json:"has_access"`
	Reason      string     `json:"reason"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	IsActive    *bool      `json:"is_active,omitempty"`
	UserAssetID string     `json:"user_asset_id,omitempty"`
}

const (
	RoleFree     = "FREE"
	RoleCustomer = "CUSTOMER"
	RoleAdmin    = "ADMIN"
)

const (
	OrderStatusPending   = "PENDING"
	OrderStatusPaid      = "PAID"
	OrderStatusCancelled = "CANCELLED"
)

const (
	AccessReasonValid        = "valid"
	AccessReasonNotPurchased = "not_purchased"
	AccessReasonExpired      = "expired"
	AccessReasonInactive     = "inactive"
)

const (
	DiscountTypeGeneral  = "general"
	DiscountTypeCategory = "category"
)

const (
	MaterialTypeVideo = "video"
	MaterialTypeFile  = "file"
)
