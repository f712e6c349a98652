package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/aquaflow-backend/internal/testutil"
	pkgAuth "github.com/angelmondragon/aquaflow-backend/pkg/auth"
	"github.com/angelmondragon/aquaflow-backend/pkg/config"
	"github.com/angelmondragon/aquaflow-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/aquaflow-backend/pkg/errors"
	"github.com/angelmondragon/aquaflow-backend/pkg/security"
)

func float(v float64) *float64 { return &v }

func sampleRegisterRequest(email, phone, gst string) RegisterShopkeeperRequest {
	return RegisterShopkeeperRequest{
		OwnerName:   "Ravi Kumar",
		Email:       email,
		Password:    "jars4all",
		PhoneNumber: phone,
		ShopName:    "Ravi's Pure Water",
		Address:     "12 MG Road",
		City:        "Bengaluru",
		State:       "Karnataka",
		Pincode:     "560001",
		GSTNumber:   gst,
		PricePerJar: decimal.NewFromInt(35),
		Latitude:    float(12.9716),
		Longitude:   float(77.5946),
	}
}

func newRegisterTestService(t *testing.T) (RegisterService, *stubSessions, *gorm.DB) {
	t.Helper()
	conn := testutil.NewDB(t)
	sessions := newStubSessions()
	svc, err := NewRegisterService(RegisterServiceParams{
		TxRunner:       testutil.TxRunner(conn),
		SessionManager: sessions,
		JWTConfig:      testJWT,
		PasswordConfig: config.PasswordConfig{},
		Logger:         testutil.Logger(),
		Clock:          func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}
	return svc, sessions, conn
}

func TestRegisterCreatesShopkeeperAndShop(t *testing.T) {
	svc, sessions, conn := newRegisterTestService(t)

	resp, err := svc.Register(context.Background(), sampleRegisterRequest("Ravi@Example.com ", "9876500001", "29abcde1234f1z5"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	var keeper models.Shopkeeper
	if err := conn.First(&keeper, "id = ?", resp.Shopkeeper.ID).Error; err != nil {
		t.Fatalf("load shopkeeper: %v", err)
	}
	if keeper.Email != "ravi@example.com" || !keeper.IsVerified || !keeper.IsActive {
		t.Fatalf("unexpected shopkeeper: %+v", keeper)
	}
	ok, err := security.VerifyPassword("jars4all", keeper.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("password not hashed with argon2: ok=%v err=%v", ok, err)
	}

	var shop models.Shop
	if err := conn.First(&shop, "shopkeeper_id = ?", keeper.ID).Error; err != nil {
		t.Fatalf("load shop: %v", err)
	}
	if !shop.Available() {
		t.Fatal("expected registered shop to be active and verified")
	}
	if shop.GSTNumber != "29ABCDE1234F1Z5" {
		t.Fatalf("expected upper-cased gst number, got %q", shop.GSTNumber)
	}
	if !strings.HasPrefix(shop.Slug, "ravi") {
		t.Fatalf("unexpected slug %q", shop.Slug)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if !claims.IsShopkeeper() || *claims.ShopID != shop.ID {
		t.Fatalf("token not bound to the new shop: %+v", claims)
	}
	if sessions.count() != 1 {
		t.Fatalf("expected one refresh session, got %d", sessions.count())
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc, _, conn := newRegisterTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, sampleRegisterRequest("a@example.com", "9876500001", "29ABCDE1234F1Z5")); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := svc.Register(ctx, sampleRegisterRequest("a@example.com", "9876500002", "29ABCDE1234F2Z5"))
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict on email, got %v", err)
	}
	_, err = svc.Register(ctx, sampleRegisterRequest("b@example.com", "9876500003", "29ABCDE1234F1Z5"))
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict on gst number, got %v", err)
	}

	var count int64
	if err := conn.Model(&models.Shopkeeper{}).Count(&count).Error; err != nil {
		t.Fatalf("count shopkeepers: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected failed registrations to roll back, got %d shopkeepers", count)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newRegisterTestService(t)

	req := sampleRegisterRequest("c@example.com", "0123", "BAD")
	req.Password = "short"
	req.PricePerJar = decimal.Zero
	req.Latitude = nil

	_, err := svc.Register(context.Background(), req)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := pkgerrors.As(err).Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", pkgerrors.As(err).Details())
	}
	for _, field := range []string{"password", "phone_number", "gst_number", "price_per_jar", "latitude"} {
		if _, present := details[field]; !present {
			t.Fatalf("expected %s in details: %v", field, details)
		}
	}
}
