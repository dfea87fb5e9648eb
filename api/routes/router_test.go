package routes

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	authsvc "github.com/martincervantes/procurehub-backend/internal/auth"
	"github.com/martincervantes/procurehub-backend/internal/downloads"
	products "github.com/martincervantes/procurehub-backend/internal/products"
	"github.com/martincervantes/procurehub-backend/internal/purchaseorders"
	"github.com/martincervantes/procurehub-backend/internal/queue"
	"github.com/martincervantes/procurehub-backend/internal/users"
	"github.com/martincervantes/procurehub-backend/internal/vendors"
	pkgauth "github.com/martincervantes/procurehub-backend/pkg/auth"
	"github.com/martincervantes/procurehub-backend/pkg/auth/session"
	"github.com/martincervantes/procurehub-backend/pkg/config"
	"github.com/martincervantes/procurehub-backend/pkg/enums"
	"github.com/martincervantes/procurehub-backend/pkg/logger"
	"github.com/martincervantes/procurehub-backend/pkg/pagination"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "procurehub-test", ExpirationMinutes: 60}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := &config.Config{JWT: testJWTConfig()}
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})

	return NewRouter(Deps{
		Config:         cfg,
		Logger:         logg,
		DBPing:         stubPinger{},
		Sessions:       stubSessions{},
		Auth:           stubAuthService{},
		Products:       stubProductService{},
		Vendors:        stubVendorService{},
		Queue:          stubQueueService{},
		PurchaseOrders: stubOrderService{},
		Downloads:      stubDownloadService{},
		Users:          stubUserService{},
	})
}

func buildToken(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(testJWTConfig(), time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Name:   "Route Tester",
		Role:   role,
		JTI:    session.NewTokenID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestRouterRejectsAnonymousAccess(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRouterRoleGates(t *testing.T) {
	router := newTestRouter(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		role   enums.UserRole
		want   int
	}{
		{"viewer reads products", http.MethodGet, "/api/v1/products", "", enums.UserRoleViewer, http.StatusOK},
		{"viewer reads queue", http.MethodGet, "/api/v1/queue", "", enums.UserRoleViewer, http.StatusOK},
		{"viewer reads orders", http.MethodGet, "/api/v1/purchase-orders", "", enums.UserRoleViewer, http.StatusOK},
		{"viewer reads downloads", http.MethodGet, "/api/v1/downloads", "", enums.UserRoleViewer, http.StatusOK},
		{"viewer cannot create product", http.MethodPost, "/api/v1/products", `{"name":"Widget"}`, enums.UserRoleViewer, http.StatusForbidden},
		{"viewer cannot clear queue", http.MethodDelete, "/api/v1/queue", "", enums.UserRoleViewer, http.StatusForbidden},
		{"manager creates product", http.MethodPost, "/api/v1/products", `{"name":"Widget"}`, enums.UserRoleManager, http.StatusCreated},
		{"manager stages queue item", http.MethodPost, "/api/v1/queue/items", `{"product_ref":"PRD-1","quantity":2}`, enums.UserRoleManager, http.StatusOK},
		{"manager generates orders", http.MethodPost, "/api/v1/purchase-orders/generate", "", enums.UserRoleManager, http.StatusCreated},
		{"manager cannot delete order", http.MethodDelete, "/api/v1/purchase-orders/PO-2024-0001", "", enums.UserRoleManager, http.StatusForbidden},
		{"manager cannot list users", http.MethodGet, "/api/v1/users", "", enums.UserRoleManager, http.StatusForbidden},
		{"admin deletes order", http.MethodDelete, "/api/v1/purchase-orders/PO-2024-0001", "", enums.UserRoleAdmin, http.StatusOK},
		{"admin lists users", http.MethodGet, "/api/v1/users", "", enums.UserRoleAdmin, http.StatusOK},
		{"admin passes manager gate", http.MethodPost, "/api/v1/products", `{"name":"Widget"}`, enums.UserRoleAdmin, http.StatusCreated},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body io.Reader
			if tc.body != "" {
				body = bytes.NewBufferString(tc.body)
			}
			req := httptest.NewRequest(tc.method, tc.path, body)
			req.Header.Set("Authorization", "Bearer "+buildToken(t, tc.role))
			if tc.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tc.want {
				t.Fatalf("%s %s as %s: expected %d got %d (%s)", tc.method, tc.path, tc.role, tc.want, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestRouterLogin(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewBufferString(`{"email":"ops@example.com","password":"hunter22"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", resp.Code, resp.Body.String())
	}
}

func TestRouterHealthzReportsMissingRedis(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/healthz", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when redis is absent got %d", resp.Code)
	}
}

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubSessions struct{}

func (stubSessions) HasSession(context.Context, string) (bool, error) { return true, nil }

type stubAuthService struct{}

func (stubAuthService) Login(context.Context, authsvc.LoginRequest) (*authsvc.LoginResponse, error) {
	return &authsvc.LoginResponse{AccessToken: "token"}, nil
}
func (stubAuthService) Logout(context.Context, string) error { return nil }

type stubProductService struct{}

func (stubProductService) Create(context.Context, products.CreateProductInput) (*products.ProductDTO, error) {
	return &products.ProductDTO{}, nil
}
func (stubProductService) Update(context.Context, string, products.UpdateProductInput) (*products.ProductDTO, error) {
	return &products.ProductDTO{}, nil
}
func (stubProductService) Delete(context.Context, string) error { return nil }
func (stubProductService) DeleteBulk(context.Context, []string) (*products.BulkDeleteReport, error) {
	return &products.BulkDeleteReport{}, nil
}
func (stubProductService) Get(context.Context, string) (*products.ProductDTO, error) {
	return &products.ProductDTO{}, nil
}
func (stubProductService) List(context.Context, products.ListProductsInput) (*products.ProductListResult, error) {
	return &products.ProductListResult{}, nil
}
func (stubProductService) Enqueue(context.Context, uuid.UUID, int) (bool, error) { return true, nil }
func (stubProductService) Dequeue(context.Context, uuid.UUID) (bool, error)      { return true, nil }
func (stubProductService) MarkOrdered(context.Context, *gorm.DB, []uuid.UUID) error {
	return nil
}

type stubVendorService struct{}

func (stubVendorService) Create(context.Context, vendors.CreateVendorInput) (*vendors.VendorDTO, error) {
	return &vendors.VendorDTO{}, nil
}
func (stubVendorService) CreateBatch(context.Context, []vendors.CreateVendorInput) (*vendors.ImportReport, error) {
	return &vendors.ImportReport{}, nil
}
func (stubVendorService) Update(context.Context, string, vendors.UpdateVendorInput) (*vendors.VendorDTO, error) {
	return &vendors.VendorDTO{}, nil
}
func (stubVendorService) Delete(context.Context, string) error { return nil }
func (stubVendorService) DeleteBulk(context.Context, []string) (*vendors.BulkDeleteReport, error) {
	return &vendors.BulkDeleteReport{}, nil
}
func (stubVendorService) Get(context.Context, string) (*vendors.VendorDTO, error) {
	return &vendors.VendorDTO{}, nil
}
func (stubVendorService) List(context.Context, vendors.ListVendorsInput) (*vendors.VendorListResult, error) {
	return &vendors.VendorListResult{}, nil
}

type stubQueueService struct{}

func (stubQueueService) Add(context.Context, string, int) (bool, error) { return true, nil }
func (stubQueueService) AddBatch(context.Context, []queue.BatchItem) (*queue.BatchReport, error) {
	return &queue.BatchReport{}, nil
}
func (stubQueueService) Remove(context.Context, string) error               { return nil }
func (stubQueueService) RemoveStaged(context.Context, uuid.UUID) error      { return nil }
func (stubQueueService) RemoveProcessed(context.Context, []uuid.UUID) error { return nil }
func (stubQueueService) Clear(context.Context) error                        { return nil }
func (stubQueueService) Entries(context.Context) ([]queue.Entry, error)     { return nil, nil }
func (stubQueueService) List(context.Context) (*queue.View, error)          { return &queue.View{}, nil }
func (stubQueueService) Reconcile(context.Context) (*queue.ReconcileReport, error) {
	return &queue.ReconcileReport{}, nil
}

type stubOrderService struct{}

func (stubOrderService) Generate(context.Context, purchaseorders.Actor, []string) ([]purchaseorders.PurchaseOrderDTO, error) {
	return []purchaseorders.PurchaseOrderDTO{}, nil
}
func (stubOrderService) Approve(context.Context, purchaseorders.Actor, string) (*purchaseorders.PurchaseOrderDTO, error) {
	return &purchaseorders.PurchaseOrderDTO{}, nil
}
func (stubOrderService) Reject(context.Context, purchaseorders.Actor, string, string) (*purchaseorders.PurchaseOrderDTO, error) {
	return &purchaseorders.PurchaseOrderDTO{}, nil
}
func (stubOrderService) ApproveBulk(context.Context, purchaseorders.Actor, []string) (*purchaseorders.DecisionReport, error) {
	return &purchaseorders.DecisionReport{}, nil
}
func (stubOrderService) RejectBulk(context.Context, purchaseorders.Actor, []string, string) (*purchaseorders.DecisionReport, error) {
	return &purchaseorders.DecisionReport{}, nil
}
func (stubOrderService) Delete(context.Context, purchaseorders.Actor, string) error { return nil }
func (stubOrderService) Get(context.Context, string) (*purchaseorders.PurchaseOrderDTO, error) {
	return &purchaseorders.PurchaseOrderDTO{}, nil
}
func (stubOrderService) List(context.Context, purchaseorders.ListInput) (*purchaseorders.ListResult, error) {
	return &purchaseorders.ListResult{}, nil
}
func (stubOrderService) Download(context.Context, purchaseorders.Actor, string, string) (*purchaseorders.Document, error) {
	return &purchaseorders.Document{}, nil
}
func (stubOrderService) Send(context.Context, purchaseorders.Actor, string, string) (*purchaseorders.Document, error) {
	return &purchaseorders.Document{}, nil
}

type stubDownloadService struct{}

func (stubDownloadService) Record(context.Context, downloads.RecordInput) (*downloads.EntryDTO, error) {
	return &downloads.EntryDTO{}, nil
}
func (stubDownloadService) List(context.Context, pagination.Params) (*downloads.ListResult, error) {
	return &downloads.ListResult{}, nil
}

type stubUserService struct{}

func (stubUserService) Create(context.Context, users.CreateUserInput) (*users.UserDTO, error) {
	return &users.UserDTO{}, nil
}
func (stubUserService) Get(context.Context, string) (*users.UserDTO, error) {
	return &users.UserDTO{}, nil
}
func (stubUserService) List(context.Context, users.ListUsersInput) (*users.UserListResult, error) {
	return &users.UserListResult{}, nil
}
func (stubUserService) SeedAdmin(context.Context, config.SeedConfig) error { return nil }
