package repositories

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/you/marketauth/domain"
)

func setupSessionRepo(t *testing.T) (domain.SessionRepository, *gorm.DB, *miniredis.Miniredis) {
	t.Helper()

	db := setupTestDB(t)
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	return NewSessionRepository(db, cache, 15*time.Minute), db, mr
}

func newSession(id string, userID uint) *domain.Session {
	return &domain.Session{
		ID:           id,
		UserID:       userID,
		RefreshToken: "refresh_" + id,
		ExpiresAt:    time.Now().Add(30 * 24 * time.Hour),
		Device: domain.DeviceInfo{
			UserAgent: "Mozilla/5.0",
			IP:        "203.0.113.10",
			Browser:   "Firefox",
			OS:        "Linux",
		},
		IsActive:       true,
		LastAccessedAt: time.Now(),
	}
}

func TestSessionRepositoryImpl_CreateAndFind(t *testing.T) {
	repo, _, mr := setupSessionRepo(t)
	ctx := context.Background()

	session := newSession("sess_1", 1)
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !mr.Exists(sessionCacheKey("sess_1")) {
		t.Error("expected session to be cached on create")
	}

	found, err := repo.FindByID(ctx, "sess_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.UserID != 1 || found.RefreshToken != "refresh_sess_1" {
		t.Errorf("unexpected session %+v", found)
	}
	if found.Device.IP != "203.0.113.10" || found.Device.Browser != "Firefox" {
		t.Errorf("device info not round-tripped: %+v", found.Device)
	}

	found, err = repo.FindByRefreshToken(ctx, "refresh_sess_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.ID != "sess_1" {
		t.Errorf("unexpected session ID %s", found.ID)
	}

	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionRepositoryImpl_FindByID_CacheFallback(t *testing.T) {
	repo, _, mr := setupSessionRepo(t)
	ctx := context.Background()

	session := newSession("sess_cache", 1)
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// drop the cache entry; the database copy must still serve reads and
	// repopulate the cache
	mr.Del(sessionCacheKey("sess_cache"))

	found, err := repo.FindByID(ctx, "sess_cache")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.RefreshToken != "refresh_sess_cache" {
		t.Errorf("unexpected token %s", found.RefreshToken)
	}
	if !mr.Exists(sessionCacheKey("sess_cache")) {
		t.Error("expected cache to be repopulated on read")
	}
}

func TestSessionRepositoryImpl_Create_DuplicateToken(t *testing.T) {
	repo, _, _ := setupSessionRepo(t)
	ctx := context.Background()

	first := newSession("sess_a", 1)
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := newSession("sess_b", 1)
	second.RefreshToken = first.RefreshToken
	if err := repo.Create(ctx, second); !errors.Is(err, domain.ErrDuplicateToken) {
		t.Errorf("expected ErrDuplicateToken, got %v", err)
	}
}

func TestSessionRepositoryImpl_Rotate(t *testing.T) {
	repo, _, mr := setupSessionRepo(t)
	ctx := context.Background()

	session := newSession("sess_rot", 1)
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	newExpiry := time.Now().Add(30 * 24 * time.Hour)
	if err := repo.Rotate(ctx, "sess_rot", "refresh_sess_rot", "refresh_next", newExpiry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mr.Exists(sessionCacheKey("sess_rot")) {
		t.Error("expected cache invalidation on rotate")
	}

	rotated, err := repo.FindByID(ctx, "sess_rot")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rotated.RefreshToken != "refresh_next" {
		t.Errorf("expected rotated token, got %s", rotated.RefreshToken)
	}
	if rotated.PrevRefreshToken != "refresh_sess_rot" {
		t.Errorf("expected previous token to be retained, got %s", rotated.PrevRefreshToken)
	}

	// the rotated-out token is findable for reuse detection
	byPrev, err := repo.FindByPrevRefreshToken(ctx, "refresh_sess_rot")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if byPrev.ID != "sess_rot" {
		t.Errorf("unexpected session ID %s", byPrev.ID)
	}

	// a second rotation with the already-consumed token loses the race
	err = repo.Rotate(ctx, "sess_rot", "refresh_sess_rot", "refresh_other", newExpiry)
	if !errors.Is(err, domain.ErrSessionRevoked) {
		t.Errorf("expected ErrSessionRevoked, got %v", err)
	}
}

func TestSessionRepositoryImpl_Rotate_RevokedSession(t *testing.T) {
	repo, _, _ := setupSessionRepo(t)
	ctx := context.Background()

	session := newSession("sess_rev", 1)
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Revoke(ctx, "sess_rev"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := repo.Rotate(ctx, "sess_rev", "refresh_sess_rev", "refresh_new", time.Now().Add(time.Hour))
	if !errors.Is(err, domain.ErrSessionRevoked) {
		t.Errorf("expected ErrSessionRevoked, got %v", err)
	}
}

func TestSessionRepositoryImpl_Revoke(t *testing.T) {
	repo, _, mr := setupSessionRepo(t)
	ctx := context.Background()

	session := newSession("sess_r", 1)
	if err := repo.Create(ctx, session); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := repo.Revoke(ctx, "sess_r"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mr.Exists(sessionCacheKey("sess_r")) {
		t.Error("expected cache invalidation on revoke")
	}

	found, err := repo.FindByID(ctx, "sess_r")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found.IsActive {
		t.Error("expected session to be inactive")
	}

	// revoking twice reports the session as gone
	if err := repo.Revoke(ctx, "sess_r"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionRepositoryImpl_RevokeAllAndOthers(t *testing.T) {
	repo, _, _ := setupSessionRepo(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if err := repo.Create(ctx, newSession(fmt.Sprintf("sess_u1_%d", i), 1)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if err := repo.Create(ctx, newSession("sess_u2_1", 2)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, err := repo.RevokeOthersForUser(ctx, 1, "sess_u1_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 sessions revoked, got %d", n)
	}

	kept, err := repo.FindByID(ctx, "sess_u1_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !kept.IsActive {
		t.Error("expected kept session to stay active")
	}

	n, err = repo.RevokeAllForUser(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 session revoked, got %d", n)
	}

	// the other user is untouched
	other, err := repo.FindByID(ctx, "sess_u2_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !other.IsActive {
		t.Error("expected other user's session to stay active")
	}
}

func TestSessionRepositoryImpl_ListActiveForUser(t *testing.T) {
	repo, _, _ := setupSessionRepo(t)
	ctx := context.Background()

	active := newSession("sess_list_a", 1)
	if err := repo.Create(ctx, active); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	revoked := newSession("sess_list_r", 1)
	if err := repo.Create(ctx, revoked); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Revoke(ctx, "sess_list_r"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expired := newSession("sess_list_e", 1)
	expired.ExpiresAt = time.Now().Add(-time.Hour)
	if err := repo.Create(ctx, expired); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sessions, err := repo.ListActiveForUser(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 active session, got %d", len(sessions))
	}
	if sessions[0].ID != "sess_list_a" {
		t.Errorf("unexpected session %s", sessions[0].ID)
	}
}

func TestSessionRepositoryImpl_DeleteExpired(t *testing.T) {
	repo, db, _ := setupSessionRepo(t)
	ctx := context.Background()
	now := time.Now()
	grace := 7 * 24 * time.Hour

	expired := newSession("sess_del_e", 1)
	expired.ExpiresAt = now.Add(-time.Hour)
	if err := repo.Create(ctx, expired); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	active := newSession("sess_del_a", 1)
	if err := repo.Create(ctx, active); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// inactive but its retention window is still open
	recent := newSession("sess_del_r", 1)
	if err := repo.Create(ctx, recent); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Revoke(ctx, "sess_del_r"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// inactive and past the retention window
	stale := newSession("sess_del_s", 1)
	if err := repo.Create(ctx, stale); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.Revoke(ctx, "sess_del_s"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	old := now.Add(-grace - time.Hour)
	if err := db.Model(&DBSession{}).Where("id = ?", "sess_del_s").
		Update("updated_at", old).Error; err != nil {
		t.Fatalf("failed to age session: %v", err)
	}

	n, err := repo.DeleteExpired(ctx, now, grace)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 sessions deleted, got %d", n)
	}

	var remaining []string
	db.Model(&DBSession{}).Order("id").Pluck("id", &remaining)
	if len(remaining) != 2 || remaining[0] != "sess_del_a" || remaining[1] != "sess_del_r" {
		t.Errorf("unexpected surviving sessions %v", remaining)
	}
}
