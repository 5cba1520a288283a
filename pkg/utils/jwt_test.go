package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	appErrors "emi-device-manager/pkg/errors"
)

func TestGenerateAndValidateTokenPair(t *testing.T) {
	userID := uuid.New()
	shopID := uuid.New()

	pair, err := GenerateTokenPair(userID, "shopowner", &shopID, "test-secret", 1, 24)
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("GenerateTokenPair() returned empty tokens")
	}
	if !pair.ExpiresAt.After(time.Now()) {
		t.Error("ExpiresAt is not in the future")
	}

	claims, err := ValidateToken(pair.AccessToken, "test-secret")
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("UserID = %s, want %s", claims.UserID, userID)
	}
	if claims.Role != "shopowner" {
		t.Errorf("Role = %s, want shopowner", claims.Role)
	}
	if claims.ShopID == nil || *claims.ShopID != shopID {
		t.Errorf("ShopID = %v, want %s", claims.ShopID, shopID)
	}
}

func TestGenerateTokenPair_NilShopID(t *testing.T) {
	pair, err := GenerateTokenPair(uuid.New(), "superadmin", nil, "test-secret", 1, 24)
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}

	claims, err := ValidateToken(pair.AccessToken, "test-secret")
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.ShopID != nil {
		t.Errorf("ShopID = %v, want nil", claims.ShopID)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	pair, err := GenerateTokenPair(uuid.New(), "user", nil, "right-secret", 1, 24)
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}

	_, err = ValidateToken(pair.AccessToken, "wrong-secret")
	if err == nil {
		t.Fatal("ValidateToken() with wrong secret succeeded")
	}
	var appErr *appErrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != appErrors.CodeAuthInvalid {
		t.Errorf("error = %v, want code %s", err, appErrors.CodeAuthInvalid)
	}
}

func TestValidateToken_Malformed(t *testing.T) {
	_, err := ValidateToken("not.a.token", "test-secret")
	if err == nil {
		t.Fatal("ValidateToken() with malformed token succeeded")
	}
	var appErr *appErrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != appErrors.CodeAuthInvalid {
		t.Errorf("error = %v, want code %s", err, appErrors.CodeAuthInvalid)
	}
}
