package routes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tiffinbox/tiffinbox-backend/internal/notifier"
	"github.com/tiffinbox/tiffinbox-backend/internal/orders"
	"github.com/tiffinbox/tiffinbox-backend/internal/settlement"
	"github.com/tiffinbox/tiffinbox-backend/internal/wallet"
	pkgAuth "github.com/tiffinbox/tiffinbox-backend/pkg/auth"
	"github.com/tiffinbox/tiffinbox-backend/pkg/config"
	"github.com/tiffinbox/tiffinbox-backend/pkg/enums"
	"github.com/tiffinbox/tiffinbox-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubOrdersService struct{}

func (stubOrdersService) VerifyDeliveryOTP(ctx context.Context, code string) (*orders.OrderPayload, error) {
	return &orders.OrderPayload{ID: uuid.New(), Status: enums.OrderStatusReceived}, nil
}

func (stubOrdersService) ConfirmDelivery(ctx context.Context, input orders.ConfirmDeliveryInput) (*orders.ConfirmDeliveryResult, error) {
	return &orders.ConfirmDeliveryResult{}, nil
}

func (stubOrdersService) ResendDeliveryOTP(ctx context.Context, input orders.ResendOTPInput) error {
	return nil
}

func (stubOrdersService) CancelOrder(ctx context.Context, input orders.CancelOrderInput) error {
	return nil
}

type stubSettlementService struct{}

func (stubSettlementService) CashInHand(ctx context.Context, partnerID uuid.UUID) (*settlement.CashInHandPayload, error) {
	return &settlement.CashInHandPayload{}, nil
}

func (stubSettlementService) CreateDepositRequest(ctx context.Context, partnerID uuid.UUID) (*settlement.DepositRequestPayload, error) {
	return &settlement.DepositRequestPayload{Status: enums.DepositStatusPending}, nil
}

func (stubSettlementService) ResolveDepositRequest(ctx context.Context, input settlement.ResolveDepositInput) (*settlement.DepositRequestPayload, error) {
	return &settlement.DepositRequestPayload{}, nil
}

func (stubSettlementService) ListDepositRequests(ctx context.Context, partnerID uuid.UUID, params pagination.Params) (*settlement.DepositRequestListResult, error) {
	return &settlement.DepositRequestListResult{}, nil
}

func (stubSettlementService) ListPendingDepositRequests(ctx context.Context, params pagination.Params) (*settlement.DepositRequestListResult, error) {
	return &settlement.DepositRequestListResult{}, nil
}

type stubWalletService struct{}

func (stubWalletService) Balance(ctx context.Context, userID uuid.UUID) (*wallet.BalancePayload, error) {
	return &wallet.BalancePayload{Tier: enums.WalletTierBronze}, nil
}

func (stubWalletService) Transactions(ctx context.Context, userID uuid.UUID, params pagination.Params) (*wallet.TransactionListResult, error) {
	return &wallet.TransactionListResult{}, nil
}

type stubNotifierService struct{}

func (stubNotifierService) NotifyUser(ctx context.Context, input notifier.NotifyInput) error {
	return nil
}

func (stubNotifierService) NotifyUserTx(ctx context.Context, tx *gorm.DB, input notifier.NotifyInput) error {
	return nil
}

func (stubNotifierService) NotifyAdmins(ctx context.Context, input notifier.BroadcastInput) error {
	return nil
}

func (stubNotifierService) NotifyAllUsers(ctx context.Context, input notifier.BroadcastInput) error {
	return nil
}

func (stubNotifierService) List(ctx context.Context, params notifier.ListParams) (*notifier.ListResult, error) {
	return &notifier.ListResult{}, nil
}

func (stubNotifierService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotifierService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (stubNotifierService) MarkPushSent(ctx context.Context, notificationID uuid.UUID) (bool, error) {
	return true, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev", Port: "8080"},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "tiffinbox-test",
			ExpirationMinutes: 15,
		},
	}
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(Deps{
		Config:        testConfig(),
		DBPinger:      stubPinger{},
		RedisPinger:   stubPinger{},
		Orders:        stubOrdersService{},
		Settlement:    stubSettlementService{},
		Wallet:        stubWalletService{},
		Notifications: stubNotifierService{},
	})
}

func mintToken(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testConfig().JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   role,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func doRequest(t *testing.T, router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpointsArePublic(t *testing.T) {
	router := testRouter(t)

	if w := doRequest(t, router, http.MethodGet, "/health/live", "", ""); w.Code != http.StatusOK {
		t.Fatalf("live probe: expected 200, got %d", w.Code)
	}
	if w := doRequest(t, router, http.MethodGet, "/health/ready", "", ""); w.Code != http.StatusOK {
		t.Fatalf("ready probe: expected 200, got %d", w.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := testRouter(t)

	paths := []string{
		"/api/v1/wallet",
		"/api/v1/notifications",
		"/api/v1/delivery/cash-in-hand",
		"/api/admin/v1/deposits",
	}
	for _, path := range paths {
		if w := doRequest(t, router, http.MethodGet, path, "", ""); w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 without token, got %d", path, w.Code)
		}
	}
}

func TestDeliveryRoutesRejectCustomers(t *testing.T) {
	router := testRouter(t)
	token := mintToken(t, enums.UserRoleCustomer)

	if w := doRequest(t, router, http.MethodGet, "/api/v1/delivery/cash-in-hand", token, ""); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer on delivery surface, got %d", w.Code)
	}
	if w := doRequest(t, router, http.MethodPost, "/api/v1/delivery/otp/verify", token, `{"code":"482913"}`); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer on otp verify, got %d", w.Code)
	}
}

func TestAdminRoutesRejectDeliveryPartners(t *testing.T) {
	router := testRouter(t)
	token := mintToken(t, enums.UserRoleDelivery)

	if w := doRequest(t, router, http.MethodGet, "/api/admin/v1/deposits", token, ""); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for delivery partner on admin surface, got %d", w.Code)
	}
}

func TestDeliveryPartnerCanVerifyOTP(t *testing.T) {
	router := testRouter(t)
	token := mintToken(t, enums.UserRoleDelivery)

	w := doRequest(t, router, http.MethodPost, "/api/v1/delivery/otp/verify", token, `{"code":"482913"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for delivery partner, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCustomerCanReadWallet(t *testing.T) {
	router := testRouter(t)
	token := mintToken(t, enums.UserRoleCustomer)

	w := doRequest(t, router, http.MethodGet, "/api/v1/wallet", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAdminCanListPendingDeposits(t *testing.T) {
	router := testRouter(t)
	token := mintToken(t, enums.UserRoleAdmin)

	w := doRequest(t, router, http.MethodGet, "/api/admin/v1/deposits", token, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
}
