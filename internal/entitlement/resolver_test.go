package entitlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/stylisthq/stylist-server/internal/history"
	"github.com/stylisthq/stylist-server/internal/models"
	"github.com/stylisthq/stylist-server/internal/payment"
)

type fakeGateway struct {
	paid  bool
	err   error
	calls int
}

func (g *fakeGateway) Create(context.Context, int64, string, string) (payment.Created, error) {
	return payment.Created{}, errors.New("not implemented")
}

func (g *fakeGateway) Status(_ context.Context, id string) (payment.StatusResult, error) {
	g.calls++
	if g.err != nil {
		return payment.StatusResult{}, g.err
	}
	return payment.StatusResult{ID: id, Paid: g.paid}, nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, errOpen := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.User{}, &models.HistoryItem{}, &models.Payment{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func seedUserWithPending(t *testing.T, conn *gorm.DB) models.User {
	t.Helper()
	user := models.User{Name: "Ann"}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	pending := models.Payment{
		ID:          "pay-1",
		UserID:      user.ID,
		AmountCents: 49900,
		Currency:    "RUB",
		Status:      models.PaymentStatusPending,
	}
	if errCreate := conn.Create(&pending).Error; errCreate != nil {
		t.Fatalf("create payment: %v", errCreate)
	}
	return user
}

func TestResolver_PaidPaymentFlipsPremiumOnce(t *testing.T) {
	conn := openTestDB(t)
	user := seedUserWithPending(t, conn)
	gateway := &fakeGateway{paid: true}
	resolver := NewResolver(conn, gateway, nil, nil)
	ctx := context.Background()

	resolution, err := resolver.Resolve(ctx, user.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !resolution.Premium {
		t.Fatal("expected premium after paid settlement")
	}

	var settled models.Payment
	if errFind := conn.First(&settled, "id = ?", "pay-1").Error; errFind != nil {
		t.Fatalf("load payment: %v", errFind)
	}
	if settled.Status != models.PaymentStatusPaid {
		t.Fatalf("expected paid status, got %d", settled.Status)
	}
	if settled.CheckedAt == nil {
		t.Fatal("expected checked_at to be recorded")
	}

	// A second pass must not hit the gateway again.
	if _, err := resolver.Resolve(ctx, user.ID); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if gateway.calls != 1 {
		t.Fatalf("expected exactly 1 gateway check, got %d", gateway.calls)
	}
}

func TestResolver_UnpaidPaymentResolvesWithoutPremium(t *testing.T) {
	conn := openTestDB(t)
	user := seedUserWithPending(t, conn)
	gateway := &fakeGateway{paid: false}
	resolver := NewResolver(conn, gateway, nil, nil)
	ctx := context.Background()

	resolution, err := resolver.Resolve(ctx, user.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolution.Premium {
		t.Fatal("expected no premium for unpaid payment")
	}

	var settled models.Payment
	if errFind := conn.First(&settled, "id = ?", "pay-1").Error; errFind != nil {
		t.Fatalf("load payment: %v", errFind)
	}
	if settled.Status != models.PaymentStatusUnpaid {
		t.Fatalf("expected unpaid status, got %d", settled.Status)
	}

	if _, err := resolver.Resolve(ctx, user.ID); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if gateway.calls != 1 {
		t.Fatalf("expected exactly 1 gateway check, got %d", gateway.calls)
	}
}

func TestResolver_GatewayErrorStillLeavesPending(t *testing.T) {
	conn := openTestDB(t)
	user := seedUserWithPending(t, conn)
	gateway := &fakeGateway{err: errors.New("gateway down")}
	resolver := NewResolver(conn, gateway, nil, nil)

	resolution, err := resolver.Resolve(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolution.Premium {
		t.Fatal("expected no premium when gateway errors")
	}

	var settled models.Payment
	if errFind := conn.First(&settled, "id = ?", "pay-1").Error; errFind != nil {
		t.Fatalf("load payment: %v", errFind)
	}
	if settled.Status != models.PaymentStatusUnpaid {
		t.Fatalf("expected unpaid status after gateway error, got %d", settled.Status)
	}
}

func TestResolver_PremiumUserSkipsGateway(t *testing.T) {
	conn := openTestDB(t)
	user := models.User{Name: "Eve", Premium: true}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	gateway := &fakeGateway{paid: true}
	resolver := NewResolver(conn, gateway, nil, nil)

	resolution, err := resolver.Resolve(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !resolution.Premium {
		t.Fatal("expected premium to stay set")
	}
	if gateway.calls != 0 {
		t.Fatalf("expected no gateway calls for premium user, got %d", gateway.calls)
	}
}

func TestResolver_IncludesRecentHistory(t *testing.T) {
	conn := openTestDB(t)
	user := models.User{Name: "Kim"}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	chain := history.NewChain(history.NewGormStore(conn), history.NewMemoryStore())
	item := models.HistoryItem{
		ID:            "item-1",
		UserID:        user.ID,
		StyleTitle:    "Casual",
		OriginalImage: "orig",
		CreatedAt:     time.Now().UTC(),
	}
	if _, errSave := chain.Save(context.Background(), item); errSave != nil {
		t.Fatalf("save history: %v", errSave)
	}

	resolver := NewResolver(conn, &fakeGateway{}, chain, nil)
	resolution, err := resolver.Resolve(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(resolution.History) != 1 || resolution.History[0].ID != "item-1" {
		t.Fatalf("unexpected history %+v", resolution.History)
	}
	if resolution.HistoryBackend != history.BackendDatabase {
		t.Fatalf("unexpected backend %q", resolution.HistoryBackend)
	}
}

func TestResolver_HasPending(t *testing.T) {
	conn := openTestDB(t)
	user := seedUserWithPending(t, conn)
	resolver := NewResolver(conn, &fakeGateway{}, nil, nil)
	ctx := context.Background()

	has, err := resolver.HasPending(ctx, user.ID)
	if err != nil {
		t.Fatalf("has pending: %v", err)
	}
	if !has {
		t.Fatal("expected a pending payment")
	}

	has, err = resolver.HasPending(ctx, user.ID+100)
	if err != nil {
		t.Fatalf("has pending: %v", err)
	}
	if has {
		t.Fatal("expected no pending payment for other user")
	}
}
