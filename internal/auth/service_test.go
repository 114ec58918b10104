package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	pkgauth "github.com/pfstore/storefront-backend/pkg/auth"
	"github.com/pfstore/storefront-backend/pkg/config"
	"github.com/pfstore/storefront-backend/pkg/db/models"
	"github.com/pfstore/storefront-backend/pkg/enums"
	pkgerrors "github.com/pfstore/storefront-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	jwtCfg := config.JWTConfig{
		Secret:            "member-secret",
		AdminSecret:       "admin-secret",
		Issuer:            "storefront-test",
		ExpirationMinutes: 15,
	}
	svc, err := NewService(NewRepository(db), jwtCfg, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterInput{
		Email:    "  Member@Example.COM ",
		Password: "hunter2hunter2",
		Name:     "Mei Lin",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if registered.User.Email != "member@example.com" {
		t.Fatalf("expected normalized email, got %q", registered.User.Email)
	}
	if registered.User.Role != enums.UserRoleMember {
		t.Fatalf("expected member role, got %s", registered.User.Role)
	}

	jwtCfg := config.JWTConfig{
		Secret:            "member-secret",
		AdminSecret:       "admin-secret",
		Issuer:            "storefront-test",
		ExpirationMinutes: 15,
	}
	claims, err := pkgauth.ParseAccessToken(jwtCfg, enums.UserRoleMember, registered.Token)
	if err != nil {
		t.Fatalf("parse minted token: %v", err)
	}
	if claims.UserID != registered.User.ID {
		t.Fatalf("token subject mismatch")
	}

	logged, err := svc.Login(ctx, LoginInput{Email: "member@example.com", Password: "hunter2hunter2"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.User.ID != registered.User.ID {
		t.Fatalf("login returned a different account")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()

	input := RegisterInput{Email: "dup@example.com", Password: "hunter2hunter2", Name: "First"}
	if _, err := svc.Register(ctx, input); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(ctx, input)
	if !pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestLoginRejectsBadCredentialsAndDisabledAccounts(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "whatever"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}

	registered, err := svc.Register(ctx, RegisterInput{Email: "user@example.com", Password: "hunter2hunter2", Name: "User"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err = svc.Login(ctx, LoginInput{Email: "user@example.com", Password: "wrong"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for wrong password, got %v", err)
	}

	if err := db.Model(&models.User{}).Where("id = ?", registered.User.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("disable account: %v", err)
	}
	_, err = svc.Login(ctx, LoginInput{Email: "user@example.com", Password: "hunter2hunter2"})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for disabled account, got %v", err)
	}
}
