package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pfstore/storefront-backend/pkg/config"
	"github.com/pfstore/storefront-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "member-secret",
		AdminSecret:       "admin-secret",
		Issuer:            "storefront-test",
		ExpirationMinutes: 15,
	}
}

func TestMintAndParseMemberToken(t *testing.T) {
	t.Parallel()

	cfg := testJWTConfig()
	userID := uuid.New()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: userID,
		Email:  "member@example.com",
		Role:   enums.UserRoleMember,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	claims, err := ParseAccessToken(cfg, enums.UserRoleMember, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != userID || claims.Email != "member@example.com" || claims.Role != enums.UserRoleMember {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti to be filled")
	}
}

func TestMemberTokenRejectedOnAdminSurface(t *testing.T) {
	t.Parallel()

	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "member@example.com",
		Role:   enums.UserRoleMember,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	// Different secret per surface, so the signature check fails outright.
	if _, err := ParseAccessToken(cfg, enums.UserRoleAdmin, token); err == nil {
		t.Fatalf("member token must not validate on the admin surface")
	}
}

func TestAdminTokenRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "admin@example.com",
		Role:   enums.UserRoleAdmin,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	claims, err := ParseAccessToken(cfg, enums.UserRoleAdmin, token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Role != enums.UserRoleAdmin {
		t.Fatalf("unexpected role %s", claims.Role)
	}

	if _, err := ParseAccessToken(cfg, enums.UserRoleMember, token); err == nil {
		t.Fatalf("admin token must not validate on the member surface")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	t.Parallel()

	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "member@example.com",
		Role:   enums.UserRoleMember,
	})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if _, err := ParseAccessToken(cfg, enums.UserRoleMember, token); err == nil {
		t.Fatalf("expired token must be rejected")
	}
}

func TestMintRequiresSecrets(t *testing.T) {
	t.Parallel()

	cfg := testJWTConfig()
	cfg.AdminSecret = ""
	_, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleAdmin,
	})
	if err == nil {
		t.Fatalf("minting without an admin secret must fail")
	}
}
