package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"digitalstore/internal/config"
	"digitalstore/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrNoValidProducts     = errors.New("no valid products found")
	ErrDuplicateRequest    = errors.New("duplicate request")
	ErrInvalidMetadata     = errors.New("invalid session metadata")
	ErrOrdersNotFound      = errors.New("no orders found for session")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrEmailAlreadyExists  = errors.New("email already registered")
	ErrStripeNotConfigured = errors.New("stripe not configured")
)

// AlreadyOwnedError names the products the user already holds valid access
// to, so the storefront can tell them exactly what not to re-buy.
type AlreadyOwnedError struct {
	ProductNames []string
}

func (e *AlreadyOwnedError) Error() string {
	return "products already owned: " + strings.Join(e.ProductNames, ", ")
}

type UserStore interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUserByID(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	UpdateUserRole(ctx context.Context, id, role string) error
}

// Catalog is the read-only view of the product catalog. Writes belong to an
// external collaborator.
type Catalog interface {
	ListActiveProducts(ctx context.Context) ([]models.Product, error)
	FindActiveProducts(ctx context.Context, ids []string) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (models.Product, error)
	GetModule(ctx context.Context, id string) (models.ProductModule, error)
	GetMaterial(ctx context.Context, id string) (models.ProductMaterial, error)
	ListModules(ctx context.Context, productID string) ([]models.ProductModule, error)
	ListMaterials(ctx context.Context, moduleID string) ([]models.ProductMaterial, error)
}

type OrderStore interface {
	CreateOrder(ctx context.Context, order models.Order) error
	GetOrder(ctx context.Context, id string) (models.Order, error)
	ListUserOrders(ctx context.Context, userID string) ([]models.Order, error)
	ListRecentOrders(ctx context.Context, limit int) ([]models.Order, error)
	DeletePendingOrders(ctx context.Context, userID string, productIDs []string) (int64, error)
	SetOrdersCheckoutSession(ctx context.Context, orderIDs []string, sessionID string) error
	ListOrdersByCheckoutSession(ctx context.Context, sessionID string) ([]models.Order, error)
	// MarkOrderPaid transitions PENDING -> PAID and reports whether this call
	// performed the transition. A false return means the order was already
	// settled (or cancelled) and must not grant entitlement again.
	MarkOrderPaid(ctx context.Context, orderID, paymentIntentID string, purchaseDate, expiryDate time.Time) (bool, error)
}

type EntitlementStore interface {
	GetUserAsset(ctx context.Context, userID, productID string) (models.UserAsset, error)
	GetActiveUserAsset(ctx context.Context, userID, productID string) (models.UserAsset, error)
	ListActiveUserAssets(ctx context.Context, userID string, productIDs []string) ([]models.UserAsset, error)
	ListUserAssets(ctx context.Context, userID string) ([]models.UserAsset, error)
	// CreateUserAsset returns ErrDuplicateRequest when an active asset for the
	// same (user, product) already exists; the unique index is the guarantee.
	CreateUserAsset(ctx context.Context, asset models.UserAsset) error
	ExtendUserAsset(ctx context.Context, id string, newExpiry time.Time) error
}

type DiscountStore interface {
	GetActiveDiscount(ctx context.Context) (models.Discount, error)
	SetDiscount(ctx context.Context, discount models.Discount) error
	RemoveActiveDiscount(ctx context.Context) error
}

type WebhookStore interface {
	GetProcessedWebhook(ctx context.Context, id string) (models.ProcessedWebhook, error)
	// MarkWebhookProcessed returns ErrDuplicateRequest when the marker row
	// already exists.
	MarkWebhookProcessed(ctx context.Context, id, eventType string) error
}

type StatsStore interface {
	GetStats(ctx context.Context) (Stats, error)
}

type Stats struct {
	TotalUsers        int64 `json:"total_users"`
	PaidOrders        int64 `json:"paid_orders"`
	TotalRevenue      int64 `json:"total_revenue"`
	ActiveEntitlements int64 `json:"active_entitlements"`
}

// CheckoutClient creates hosted payment sessions. The Stripe implementation
// lives in internal/payments; tests substitute fakes.
type CheckoutClient interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (CheckoutSession, error)
}

type CheckoutLineItem struct {
	ProductID   string
	Name        string
	Description string
	UnitAmount  int64
}

type CheckoutSessionParams struct {
	LineItems  []CheckoutLineItem
	Metadata   map[string]string
	SuccessURL string
	CancelURL  string
}

type CheckoutSession struct {
	ID  string
	URL string
}

type Stores struct {
	Users     UserStore
	Catalog   Catalog
	Orders    OrderStore
	Assets    EntitlementStore
	Discounts DiscountStore
	Webhooks  WebhookStore
	Stats     StatsStore
}

type Service struct {
	cfg      config.Config
	log      zerolog.Logger
	users    UserStore
	catalog  Catalog
	orders   OrderStore
	assets   EntitlementStore
	discounts DiscountStore
	webhooks WebhookStore
	stats    StatsStore
	checkout CheckoutClient
	now      func() time.Time
}

func New(cfg config.Config, logger zerolog.Logger, st Stores, checkout CheckoutClient) *Service {
	return &Service{
		cfg:       cfg,
		log:       logger,
		users:     st.Users,
		catalog:   st.Catalog,
		orders:    st.Orders,
		assets:    st.Assets,
		discounts: st.Discounts,
		webhooks:  st.Webhooks,
		stats:     st.Stats,
		checkout:  checkout,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	return s.stats.GetStats(ctx)
}

func (s *Service) ListRecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.orders.ListRecentOrders(ctx, limit)
}

func (s *Service) ListUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return s.orders.ListUserOrders(ctx, userID)
}

func (s *Service) GetOrder(ctx context.Context, id string) (models.Order, error) {
	return s.orders.GetOrder(ctx, id)
}

func (s *Service) ListUserAssets(ctx context.Context, userID string) ([]models.UserAsset, error) {
	return s.assets.ListUserAssets(ctx, userID)
}
