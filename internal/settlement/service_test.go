package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tiffinbox/tiffinbox-backend/pkg/db/models"
	"github.com/tiffinbox/tiffinbox-backend/pkg/enums"
	pkgerrors "github.com/tiffinbox/tiffinbox-backend/pkg/errors"
	"github.com/tiffinbox/tiffinbox-backend/pkg/pagination"
)

type stubSettlementRepo struct {
	partner     *models.User
	undeposited []models.Order
	request     *models.DepositRequest

	insertErr        error
	inserted         *models.DepositRequest
	resolveRows      int64
	resolvedDecision enums.DepositStatus
	depositedOrders  []uuid.UUID
	listed           []models.DepositRequest
}

func (s *stubSettlementRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubSettlementRepo) FindPartner(ctx context.Context, partnerID uuid.UUID) (*models.User, error) {
	if s.partner == nil || s.partner.ID != partnerID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.partner, nil
}

func (s *stubSettlementRepo) ListUndepositedOrders(ctx context.Context, partnerID uuid.UUID) ([]models.Order, error) {
	return s.undeposited, nil
}

func (s *stubSettlementRepo) ListUndepositedOrdersForUpdate(ctx context.Context, partnerID uuid.UUID) ([]models.Order, error) {
	return s.undeposited, nil
}

func (s *stubSettlementRepo) InsertDepositRequest(ctx context.Context, row *models.DepositRequest) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	row.ID = uuid.New()
	row.CreatedAt = time.Now().UTC()
	s.inserted = row
	return nil
}

func (s *stubSettlementRepo) FindDepositRequestForUpdate(ctx context.Context, requestID uuid.UUID) (*models.DepositRequest, error) {
	if s.request == nil || s.request.ID != requestID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.request, nil
}

func (s *stubSettlementRepo) ResolveDepositRequest(ctx context.Context, requestID uuid.UUID, decision enums.DepositStatus, now time.Time) (int64, error) {
	s.resolvedDecision = decision
	return s.resolveRows, nil
}

func (s *stubSettlementRepo) MarkOrdersDeposited(ctx context.Context, orderIDs []uuid.UUID, requestID uuid.UUID) (int64, error) {
	s.depositedOrders = orderIDs
	return int64(len(orderIDs)), nil
}

func (s *stubSettlementRepo) ListByPartner(ctx context.Context, partnerID uuid.UUID, limit int, cursor *pagination.Cursor) ([]models.DepositRequest, error) {
	return s.listed, nil
}

func (s *stubSettlementRepo) ListByStatus(ctx context.Context, status enums.DepositStatus, limit int, cursor *pagination.Cursor) ([]models.DepositRequest, error) {
	return s.listed, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

func codOrder(partnerID uuid.UUID, pricePaise int) models.Order {
	deliveredAt := time.Now().UTC()
	return models.Order{
		ID:              uuid.New(),
		OrderNumber:     2001,
		FinalPricePaise: pricePaise,
		PaymentMethod:   enums.PaymentMethodCOD,
		Status:          enums.OrderStatusDelivered,
		DeliveredBy:     &partnerID,
		DeliveredAt:     &deliveredAt,
	}
}

func buildService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo, stubTxRunner{}, nil, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCashInHandSumsUndepositedOrders(t *testing.T) {
	partnerID := uuid.New()
	repo := &stubSettlementRepo{
		undeposited: []models.Order{
			codOrder(partnerID, 25_000),
			codOrder(partnerID, 40_000),
		},
	}
	svc := buildService(t, repo)

	payload, err := svc.CashInHand(context.Background(), partnerID)
	if err != nil {
		t.Fatalf("CashInHand: %v", err)
	}
	if payload.AmountPaise != 65_000 {
		t.Fatalf("expected 65000 paise, got %d", payload.AmountPaise)
	}
	if payload.AmountRupees.String() != "650" {
		t.Fatalf("expected ₹650, got %s", payload.AmountRupees)
	}
	if payload.OrderCount != 2 || len(payload.Orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", payload.OrderCount)
	}
}

func TestCashInHandEmptyForSettledPartner(t *testing.T) {
	svc := buildService(t, &stubSettlementRepo{})

	payload, err := svc.CashInHand(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("CashInHand: %v", err)
	}
	if payload.AmountPaise != 0 || payload.OrderCount != 0 {
		t.Fatalf("expected empty summary, got %+v", payload)
	}
}

func TestCreateDepositRequestSnapshotsOrders(t *testing.T) {
	partnerID := uuid.New()
	repo := &stubSettlementRepo{
		partner: &models.User{ID: partnerID, Name: "Ravi Kumar", Role: enums.UserRoleDelivery},
		undeposited: []models.Order{
			codOrder(partnerID, 25_000),
			codOrder(partnerID, 40_000),
		},
	}
	svc := buildService(t, repo)

	payload, err := svc.CreateDepositRequest(context.Background(), partnerID)
	if err != nil {
		t.Fatalf("CreateDepositRequest: %v", err)
	}
	if payload.AmountPaise != 65_000 {
		t.Fatalf("expected 65000 paise snapshot, got %d", payload.AmountPaise)
	}
	if payload.OrderCount != 2 {
		t.Fatalf("expected 2 orders in snapshot, got %d", payload.OrderCount)
	}
	if payload.PartnerName != "Ravi Kumar" {
		t.Fatalf("expected partner name snapshot, got %q", payload.PartnerName)
	}
	if payload.Status != enums.DepositStatusPending {
		t.Fatalf("expected pending request, got %s", payload.Status)
	}
}

func TestCreateDepositRequestRejectsEmptyCash(t *testing.T) {
	partnerID := uuid.New()
	repo := &stubSettlementRepo{
		partner: &models.User{ID: partnerID, Name: "Ravi Kumar", Role: enums.UserRoleDelivery},
	}
	svc := buildService(t, repo)

	_, err := svc.CreateDepositRequest(context.Background(), partnerID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCreateDepositRequestConflictsOnPendingDuplicate(t *testing.T) {
	partnerID := uuid.New()
	repo := &stubSettlementRepo{
		partner:     &models.User{ID: partnerID, Name: "Ravi Kumar", Role: enums.UserRoleDelivery},
		undeposited: []models.Order{codOrder(partnerID, 25_000)},
		insertErr:   errors.New(`duplicate key value violates unique constraint "ux_deposit_requests_pending"`),
	}
	svc := buildService(t, repo)

	_, err := svc.CreateDepositRequest(context.Background(), partnerID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestResolveDepositRequestApprovalSettlesOrders(t *testing.T) {
	partnerID := uuid.New()
	orderIDs := []uuid.UUID{uuid.New(), uuid.New()}
	repo := &stubSettlementRepo{
		request: &models.DepositRequest{
			ID:                uuid.New(),
			DeliveryPartnerID: partnerID,
			PartnerName:       "Ravi Kumar",
			AmountPaise:       65_000,
			OrderIDs:          orderIDs,
			Status:            enums.DepositStatusPending,
		},
		resolveRows: 1,
	}
	svc := buildService(t, repo)

	payload, err := svc.ResolveDepositRequest(context.Background(), ResolveDepositInput{
		RequestID: repo.request.ID,
		AdminID:   uuid.New(),
		Approve:   true,
	})
	if err != nil {
		t.Fatalf("ResolveDepositRequest: %v", err)
	}
	if payload.Status != enums.DepositStatusApproved {
		t.Fatalf("expected approved, got %s", payload.Status)
	}
	if payload.ResolvedAt == nil {
		t.Fatal("expected resolved timestamp")
	}
	if len(repo.depositedOrders) != 2 {
		t.Fatalf("approval must settle the snapshot orders, settled %d", len(repo.depositedOrders))
	}
}

func TestResolveDepositRequestRejectionKeepsCashOutstanding(t *testing.T) {
	repo := &stubSettlementRepo{
		request: &models.DepositRequest{
			ID:                uuid.New(),
			DeliveryPartnerID: uuid.New(),
			PartnerName:       "Ravi Kumar",
			AmountPaise:       65_000,
			OrderIDs:          []uuid.UUID{uuid.New()},
			Status:            enums.DepositStatusPending,
		},
		resolveRows: 1,
	}
	svc := buildService(t, repo)

	payload, err := svc.ResolveDepositRequest(context.Background(), ResolveDepositInput{
		RequestID: repo.request.ID,
		AdminID:   uuid.New(),
		Approve:   false,
	})
	if err != nil {
		t.Fatalf("ResolveDepositRequest: %v", err)
	}
	if payload.Status != enums.DepositStatusRejected {
		t.Fatalf("expected rejected, got %s", payload.Status)
	}
	if repo.depositedOrders != nil {
		t.Fatal("rejection must not settle any orders")
	}
}

func TestResolveDepositRequestAlreadyResolvedConflicts(t *testing.T) {
	resolvedAt := time.Now().UTC()
	repo := &stubSettlementRepo{
		request: &models.DepositRequest{
			ID:                uuid.New(),
			DeliveryPartnerID: uuid.New(),
			Status:            enums.DepositStatusApproved,
			ResolvedAt:        &resolvedAt,
		},
	}
	svc := buildService(t, repo)

	_, err := svc.ResolveDepositRequest(context.Background(), ResolveDepositInput{
		RequestID: repo.request.ID,
		AdminID:   uuid.New(),
		Approve:   true,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestResolveDepositRequestUnknownIDNotFound(t *testing.T) {
	svc := buildService(t, &stubSettlementRepo{})

	_, err := svc.ResolveDepositRequest(context.Background(), ResolveDepositInput{
		RequestID: uuid.New(),
		AdminID:   uuid.New(),
		Approve:   true,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestListDepositRequestsPaginates(t *testing.T) {
	partnerID := uuid.New()
	rows := make([]models.DepositRequest, 0, 3)
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		rows = append(rows, models.DepositRequest{
			ID:                uuid.New(),
			DeliveryPartnerID: partnerID,
			Status:            enums.DepositStatusApproved,
			CreatedAt:         base.Add(-time.Duration(i) * time.Hour),
		})
	}
	repo := &stubSettlementRepo{listed: rows}
	svc := buildService(t, repo)

	result, err := svc.ListDepositRequests(context.Background(), partnerID, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("ListDepositRequests: %v", err)
	}
	if len(result.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(result.Items))
	}
	if result.Cursor == "" {
		t.Fatal("expected next-page cursor when buffer row present")
	}
	cursor, err := pagination.ParseCursor(result.Cursor)
	if err != nil {
		t.Fatalf("returned cursor must round-trip: %v", err)
	}
	if cursor.ID != rows[1].ID {
		t.Fatal("cursor must point at the last returned row")
	}
}
