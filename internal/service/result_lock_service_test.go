package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

func lockRequest(classID string) models.LockMutationRequest {
	return models.LockMutationRequest{ClassID: classID, SessionID: "2024-2025", Term: "first", ExamType: "final"}
}

func TestResultLockServiceTransitions(t *testing.T) {
	store := newFakeLockStore()
	svc := NewResultLockService(store, NewMetricsService(), nil, nil)
	fixed := time.Date(2024, 12, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	ctx := context.Background()

	locked, err := svc.Mutate(ctx, adminActor(), "lock", lockRequest("5"))
	require.NoError(t, err)
	assert.Equal(t, "published", locked.State)
	require.NotNil(t, locked.LockedAt)
	assert.Equal(t, fixed, *locked.LockedAt)
	assert.Equal(t, "admin-1", *locked.LockedBy)

	grant := lockRequest("5")
	grant.TeacherID = 42
	_, err = svc.Mutate(ctx, adminActor(), "grant-override", grant)
	require.NoError(t, err)
	twice, err := svc.Mutate(ctx, adminActor(), "grantOverride", grant)
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, twice.AllowedTeacherIDs)

	revoked, err := svc.Mutate(ctx, adminActor(), "revokeOverride", grant)
	require.NoError(t, err)
	assert.Empty(t, revoked.AllowedTeacherIDs)
	assert.True(t, revoked.IsLocked)

	_, err = svc.Mutate(ctx, adminActor(), "grantOverride", grant)
	require.NoError(t, err)
	unlocked, err := svc.Mutate(ctx, adminActor(), "unlock", lockRequest("5"))
	require.NoError(t, err)
	assert.Equal(t, "draft", unlocked.State)
	assert.Empty(t, unlocked.AllowedTeacherIDs)
	assert.Nil(t, unlocked.LockedAt)
	assert.Nil(t, unlocked.LockedBy)
}

func TestResultLockServiceMutateRules(t *testing.T) {
	svc := NewResultLockService(newFakeLockStore(), nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Mutate(ctx, teacherActor(1, "5"), "lock", lockRequest("5"))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Mutate(ctx, adminActor(), "archive", lockRequest("5"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Mutate(ctx, adminActor(), "grantOverride", lockRequest("5"))
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	bad := lockRequest("5")
	bad.ExamType = "quiz"
	_, err = svc.Mutate(ctx, adminActor(), "lock", bad)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Mutate(ctx, nil, "lock", lockRequest("5"))
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestResultLockServiceListScope(t *testing.T) {
	store := newFakeLockStore()
	svc := NewResultLockService(store, nil, nil, nil)
	ctx := context.Background()
	for _, classID := range []string{"4", "5"} {
		_, err := svc.Mutate(ctx, adminActor(), "lock", lockRequest(classID))
		require.NoError(t, err)
	}

	all, err := svc.List(ctx, adminActor(), models.ResultLockQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := svc.List(ctx, teacherActor(1, "5"), models.ResultLockQuery{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "5", own[0].ClassID)

	_, err = svc.List(ctx, teacherActor(1, "5"), models.ResultLockQuery{ClassID: "4"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.List(ctx, parentActor("s1"), models.ResultLockQuery{})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}
