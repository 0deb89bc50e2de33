package services

import (
	"context"
	"sync"
	"time"

	"digitalstore/internal/config"
	"digitalstore/internal/models"

	"github.com/rs/zerolog"
)

// memStore is an in-memory implementation of every store interface, shared by
// the service tests. Error fields inject failures per concern.
type memStore struct {
	mu sync.Mutex

	users     map[string]models.User
	products  map[string]models.Product
	modules   map[string]models.ProductModule
	materials map[string]models.ProductMaterial
	orders    map[string]models.Order
	assets    map[string]models.UserAsset
	discount  *models.Discount
	webhooks  map[string]models.ProcessedWebhook

	now func() time.Time

	assetErr   error
	orderErr   error
	webhookErr error
}

func newMemStore(now func() time.Time) *memStore {
	return &memStore{
		users:     make(map[string]models.User),
		products:  make(map[string]models.Product),
		modules:   make(map[string]models.ProductModule),
		materials: make(map[string]models.ProductMaterial),
		orders:    make(map[string]models.Order),
		assets:    make(map[string]models.UserAsset),
		webhooks:  make(map[string]models.ProcessedWebhook),
		now:       now,
	}
}

// ---- UserStore ----

func (m *memStore) CreateUser(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrDuplicateRequest
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memStore) GetUserByID(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return models.User{}, ErrNotFound
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (m *memStore) UpdateUserRole(_ context.Context, id, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Role = role
	m.users[id] = u
	return nil
}

// ---- Catalog ----

func (m *memStore) ListActiveProducts(_ context.Context) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Product
	for _, p := range m.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) FindActiveProducts(_ context.Context, ids []string) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok && p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) GetProduct(_ context.Context, id string) (models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		return p, nil
	}
	return models.Product{}, ErrNotFound
}

func (m *memStore) GetModule(_ context.Context, id string) (models.ProductModule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mod, ok := m.modules[id]; ok {
		return mod, nil
	}
	return models.ProductModule{}, ErrNotFound
}

func (m *memStore) GetMaterial(_ context.Context, id string) (models.ProductMaterial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mat, ok := m.materials[id]; ok {
		return mat, nil
	}
	return models.ProductMaterial{}, ErrNotFound
}

func (m *memStore) ListModules(_ context.Context, productID string) ([]models.ProductModule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ProductModule
	for _, mod := range m.modules {
		if mod.ProductID == productID {
			out = append(out, mod)
		}
	}
	return out, nil
}

func (m *memStore) ListMaterials(_ context.Context, moduleID string) ([]models.ProductMaterial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ProductMaterial
	for _, mat := range m.materials {
		if mat.ModuleID == moduleID {
			out = append(out, mat)
		}
	}
	return out, nil
}

// ---- OrderStore ----

func (m *memStore) CreateOrder(_ context.Context, order models.Order) error {
	if m.orderErr != nil {
		return m.orderErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
	return nil
}

func (m *memStore) GetOrder(_ context.Context, id string) (models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		return o, nil
	}
	return models.Order{}, ErrNotFound
}

func (m *memStore) ListUserOrders(_ context.Context, userID string) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) ListRecentOrders(_ context.Context, limit int) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if len(out) >= limit {
			break
		}
		out = append(out, o)
	}
	return out, nil
}

func (m *memStore) DeletePendingOrders(_ context.Context, userID string, productIDs []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	for id, o := range m.orders {
		if o.UserID != userID || o.Status != models.OrderStatusPending {
			continue
		}
		for _, pid := range productIDs {
			if o.ProductID == pid {
				delete(m.orders, id)
				deleted++
				break
			}
		}
	}
	return deleted, nil
}

func (m *memStore) SetOrdersCheckoutSession(_ context.Context, orderIDs []string, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range orderIDs {
		o, ok := m.orders[id]
		if !ok {
			return ErrNotFound
		}
		o.StripeCheckoutSessionID = sessionID
		m.orders[id] = o
	}
	return nil
}

func (m *memStore) ListOrdersByCheckoutSession(_ context.Context, sessionID string) ([]models.Order, error) {
	if m.orderErr != nil {
		return nil, m.orderErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.StripeCheckoutSessionID == sessionID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) MarkOrderPaid(_ context.Context, orderID, paymentIntentID string, purchaseDate, expiryDate time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.Status != models.OrderStatusPending {
		return false, nil
	}
	o.Status = models.OrderStatusPaid
	o.StripePaymentIntentID = paymentIntentID
	o.PurchaseDate = &purchaseDate
	o.ExpiryDate = &expiryDate
	m.orders[orderID] = o
	return true, nil
}

// ---- EntitlementStore ----

func (m *memStore) GetUserAsset(_ context.Context, userID, productID string) (models.UserAsset, error) {
	if m.assetErr != nil {
		return models.UserAsset{}, m.assetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *models.UserAsset
	for _, a := range m.assets {
		a := a
		if a.UserID == userID && a.ProductID == productID {
			if found == nil || a.CreatedAt.After(found.CreatedAt) {
				found = &a
			}
		}
	}
	if found == nil {
		return models.UserAsset{}, ErrNotFound
	}
	return *found, nil
}

func (m *memStore) GetActiveUserAsset(_ context.Context, userID, productID string) (models.UserAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.assets {
		if a.UserID == userID && a.ProductID == productID && a.IsActive {
			return a, nil
		}
	}
	return models.UserAsset{}, ErrNotFound
}

func (m *memStore) ListActiveUserAssets(_ context.Context, userID string, productIDs []string) ([]models.UserAsset, error) {
	if m.assetErr != nil {
		return nil, m.assetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserAsset
	for _, a := range m.assets {
		if a.UserID != userID || !a.IsActive {
			continue
		}
		for _, pid := range productIDs {
			if a.ProductID == pid {
				out = append(out, a)
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) ListUserAssets(_ context.Context, userID string) ([]models.UserAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserAsset
	for _, a := range m.assets {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) CreateUserAsset(_ context.Context, asset models.UserAsset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if asset.IsActive {
		for _, a := range m.assets {
			if a.UserID == asset.UserID && a.ProductID == asset.ProductID && a.IsActive {
				return ErrDuplicateRequest
			}
		}
	}
	m.assets[asset.ID] = asset
	return nil
}

func (m *memStore) ExtendUserAsset(_ context.Context, id string, newExpiry time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[id]
	if !ok {
		return ErrNotFound
	}
	a.ExpiryDate = newExpiry
	m.assets[id] = a
	return nil
}

// ---- DiscountStore ----

func (m *memStore) GetActiveDiscount(_ context.Context) (models.Discount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.discount == nil || !m.discount.IsActive {
		return models.Discount{}, ErrNotFound
	}
	return *m.discount, nil
}

func (m *memStore) SetDiscount(_ context.Context, discount models.Discount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discount = &discount
	return nil
}

func (m *memStore) RemoveActiveDiscount(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discount = nil
	return nil
}

// ---- WebhookStore ----

func (m *memStore) GetProcessedWebhook(_ context.Context, id string) (models.ProcessedWebhook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.webhooks[id]; ok {
		return w, nil
	}
	return models.ProcessedWebhook{}, ErrNotFound
}

func (m *memStore) MarkWebhookProcessed(_ context.Context, id, eventType string) error {
	if m.webhookErr != nil {
		return m.webhookErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.webhooks[id]; ok {
		return ErrDuplicateRequest
	}
	m.webhooks[id] = models.ProcessedWebhook{ID: id, EventType: eventType, ProcessedAt: m.now()}
	return nil
}

// ---- StatsStore ----

func (m *memStore) GetStats(_ context.Context) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := Stats{TotalUsers: int64(len(m.users))}
	for _, o := range m.orders {
		if o.Status == models.OrderStatusPaid {
			stats.PaidOrders++
			stats.TotalRevenue += o.Amount
		}
	}
	for _, a := range m.assets {
		if a.IsActive {
			stats.ActiveEntitlements++
		}
	}
	return stats, nil
}

// ---- CheckoutClient ----

type fakeCheckout struct {
	lastParams CheckoutSessionParams
	err        error
	calls      int
}

func (f *fakeCheckout) CreateCheckoutSession(_ context.Context, params CheckoutSessionParams) (CheckoutSession, error) {
	f.calls++
	f.lastParams = params
	if f.err != nil {
		return CheckoutSession{}, f.err
	}
	return CheckoutSession{ID: "cs_test_123", URL: "https://checkout.example/cs_test_123"}, nil
}

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestService(store *memStore, checkout CheckoutClient) *Service {
	cfg := config.Config{
		AppURL:                    "https://store.example",
		DefaultAccessDurationDays: 365,
	}
	svc := New(cfg, zerolog.Nop(), Stores{
		Users:     store,
		Catalog:   store,
		Orders:    store,
		Assets:    store,
		Discounts: store,
		Webhooks:  store,
		Stats:     store,
	}, checkout)
	svc.now = func() time.Time { return testNow }
	return svc
}

func fixedNow() time.Time { return testNow }
