package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/you/marketauth/domain"
)

func newVerificationToken(userID uint, token, purpose string) *domain.VerificationToken {
	return &domain.VerificationToken{
		UserID:    userID,
		Email:     "test@example.com",
		Token:     token,
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestVerificationTokenRepositoryImpl_Create_SupersedesUnused(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVerificationTokenRepository(db)
	ctx := context.Background()

	first := newVerificationToken(1, "token_first", domain.TokenPasswordReset)
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// a consumed token and another purpose must both survive
	used := newVerificationToken(1, "token_used", domain.TokenPasswordReset)
	used.IsUsed = true
	if err := db.Create(&DBVerificationToken{
		UserID:    used.UserID,
		Token:     used.Token,
		Purpose:   used.Purpose,
		IsUsed:    true,
		ExpiresAt: used.ExpiresAt,
	}).Error; err != nil {
		t.Fatalf("failed to seed used token: %v", err)
	}
	recovery := newVerificationToken(1, "token_recovery", domain.TokenAccountRecovery)
	if err := repo.Create(ctx, recovery); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := newVerificationToken(1, "token_second", domain.TokenPasswordReset)
	if err := repo.Create(ctx, second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.ID == 0 {
		t.Error("expected ID to be assigned")
	}

	// the first token is gone
	if _, err := repo.FindValid(ctx, "token_first", domain.TokenPasswordReset); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("expected superseded token to be removed, got %v", err)
	}
	if _, err := repo.FindValid(ctx, "token_second", domain.TokenPasswordReset); err != nil {
		t.Errorf("expected replacement token to be valid, got %v", err)
	}
	if _, err := repo.FindValid(ctx, "token_recovery", domain.TokenAccountRecovery); err != nil {
		t.Errorf("expected other purpose to survive, got %v", err)
	}

	var usedCount int64
	db.Model(&DBVerificationToken{}).Where("token = ?", "token_used").Count(&usedCount)
	if usedCount != 1 {
		t.Error("expected consumed token to survive replacement")
	}
}

func TestVerificationTokenRepositoryImpl_FindValid(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVerificationTokenRepository(db)
	ctx := context.Background()

	token := newVerificationToken(1, "token_valid", domain.TokenDataExport)
	if err := repo.Create(ctx, token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	found, err := repo.FindValid(ctx, "token_valid", domain.TokenDataExport)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.UserID != 1 || found.Purpose != domain.TokenDataExport {
		t.Errorf("unexpected token %+v", found)
	}

	// purpose is part of the lookup key
	if _, err := repo.FindValid(ctx, "token_valid", domain.TokenPasswordReset); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound for wrong purpose, got %v", err)
	}

	if err := repo.Consume(ctx, found.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.FindValid(ctx, "token_valid", domain.TokenDataExport); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("expected consumed token to stop matching, got %v", err)
	}
}

func TestVerificationTokenRepositoryImpl_Consume(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVerificationTokenRepository(db)
	ctx := context.Background()

	token := newVerificationToken(1, "token_once", domain.TokenDeleteAccount)
	if err := repo.Create(ctx, token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := repo.Consume(ctx, token.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := repo.FindByID(ctx, token.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stored.IsUsed || stored.UsedAt == nil {
		t.Error("expected token to be marked used with a timestamp")
	}

	// second redemption of the same token fails
	if err := repo.Consume(ctx, token.ID); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound on double consume, got %v", err)
	}
}

func TestVerificationTokenRepositoryImpl_IncrementAttempts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVerificationTokenRepository(db)
	ctx := context.Background()

	token := newVerificationToken(1, "token_att", domain.TokenAccountRecovery)
	if err := repo.Create(ctx, token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := repo.IncrementAttempts(ctx, token.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	stored, err := repo.FindByID(ctx, token.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", stored.Attempts)
	}
}

func TestVerificationTokenRepositoryImpl_Approve(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVerificationTokenRepository(db)
	ctx := context.Background()

	override := newVerificationToken(1, "token_override", domain.TokenAdminOverride)
	override.RequiresAdminApproval = true
	if err := repo.Create(ctx, override); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := repo.Approve(ctx, override.ID, 42); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, err := repo.FindByID(ctx, override.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.ApprovedBy == nil || *stored.ApprovedBy != 42 {
		t.Error("expected approving admin to be recorded")
	}

	// tokens that never needed approval cannot be approved
	plain := newVerificationToken(2, "token_plain", domain.TokenDataExport)
	if err := repo.Create(ctx, plain); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Approve(ctx, plain.ID, 42); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound, got %v", err)
	}

	// nor can consumed ones
	if err := repo.Consume(ctx, override.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Approve(ctx, override.ID, 43); !errors.Is(err, domain.ErrTokenNotFound) {
		t.Errorf("expected ErrTokenNotFound for consumed token, got %v", err)
	}
}

func TestVerificationTokenRepositoryImpl_DeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVerificationTokenRepository(db)
	ctx := context.Background()

	expired := newVerificationToken(1, "token_expired", domain.TokenPasswordReset)
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	if err := repo.Create(ctx, expired); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	live := newVerificationToken(2, "token_live", domain.TokenPasswordReset)
	if err := repo.Create(ctx, live); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, err := repo.DeleteExpired(ctx, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 token deleted, got %d", n)
	}

	var remaining []string
	db.Model(&DBVerificationToken{}).Pluck("token", &remaining)
	if len(remaining) != 1 || remaining[0] != "token_live" {
		t.Errorf("unexpected surviving tokens %v", remaining)
	}
}
