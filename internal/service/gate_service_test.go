package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openclass/openclass-api/internal/models"
	appErrors "github.com/openclass/openclass-api/pkg/errors"
)

type fakeGateStore struct {
	session models.GateSession
}

func (f *fakeGateStore) Load(_ context.Context, principalID string) (*models.GateSession, error) {
	session := f.session
	session.PrincipalID = principalID
	return &session, nil
}

func (f *fakeGateStore) IncrementAttempts(context.Context, string, time.Duration) (int, error) {
	f.session.FailedAttempts++
	return f.session.FailedAttempts, nil
}

func (f *fakeGateStore) SetLockout(_ context.Context, _ string, expiry time.Time) error {
	f.session.LockoutExpiry = &expiry
	f.session.FailedAttempts = 0
	return nil
}

func (f *fakeGateStore) SetValidated(_ context.Context, _ string, until time.Time) error {
	f.session.ValidatedUntil = &until
	f.session.FailedAttempts = 0
	f.session.LockoutExpiry = nil
	return nil
}

const gateSecret = "super-secret-key"

func newGateService(store *fakeGateStore, now time.Time) *GateService {
	svc := NewGateService(store, zap.NewNop(), GateServiceConfig{
		Secret:          gateSecret,
		MinKeyLength:    10,
		MaxAttempts:     5,
		LockoutDuration: 30 * time.Second,
		ValidationTTL:   24 * time.Hour,
	})
	svc.now = func() time.Time { return now }
	return svc
}

func TestGateShortKeyDoesNotConsumeAttempts(t *testing.T) {
	store := &fakeGateStore{}
	svc := newGateService(store, time.Now())

	status, err := svc.Submit(context.Background(), "u1", "short")
	require.ErrorIs(t, err, appErrors.ErrGateKeyInvalid)
	assert.Equal(t, string(models.GateUnvalidated), status.State)
	assert.Equal(t, 5, status.AttemptsRemaining)
	assert.Equal(t, 0, store.session.FailedAttempts)
}

func TestGateLocksAfterFiveFailures(t *testing.T) {
	now := time.Now()
	store := &fakeGateStore{}
	svc := newGateService(store, now)

	for i := 1; i <= 4; i++ {
		status, err := svc.Submit(context.Background(), "u1", "wrong-key-attempt")
		require.ErrorIs(t, err, appErrors.ErrGateRejected)
		assert.Equal(t, 5-i, status.AttemptsRemaining)
	}

	status, err := svc.Submit(context.Background(), "u1", "wrong-key-attempt")
	require.ErrorIs(t, err, appErrors.ErrGateLocked)
	assert.Equal(t, string(models.GateLockedOut), status.State)
	assert.Equal(t, 0, status.AttemptsRemaining)
	assert.InDelta(t, 30, status.RetryAfterSeconds, 1)
	require.NotNil(t, store.session.LockoutExpiry)
	assert.Equal(t, now.Add(30*time.Second), *store.session.LockoutExpiry)
}

func TestGateRejectsCorrectKeyDuringLockout(t *testing.T) {
	now := time.Now()
	expiry := now.Add(20 * time.Second)
	store := &fakeGateStore{session: models.GateSession{LockoutExpiry: &expiry}}
	svc := newGateService(store, now)

	status, err := svc.Submit(context.Background(), "u1", gateSecret)
	require.ErrorIs(t, err, appErrors.ErrGateLocked)
	assert.Equal(t, string(models.GateLockedOut), status.State)
	assert.Nil(t, store.session.ValidatedUntil)
}

func TestGateResetsAfterLockoutExpiry(t *testing.T) {
	now := time.Now()
	expiry := now.Add(-time.Second)
	store := &fakeGateStore{session: models.GateSession{LockoutExpiry: &expiry}}
	svc := newGateService(store, now)

	// Expired lockout reads back as unvalidated with a clean slate.
	status, err := svc.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, string(models.GateUnvalidated), status.State)
	assert.Equal(t, 5, status.AttemptsRemaining)

	status, err = svc.Submit(context.Background(), "u1", gateSecret)
	require.NoError(t, err)
	assert.Equal(t, string(models.GateValidated), status.State)
	require.NotNil(t, status.ValidatedUntil)
	assert.Equal(t, now.Add(24*time.Hour), *status.ValidatedUntil)
}

func TestGateSuccessResetsFailureCount(t *testing.T) {
	now := time.Now()
	store := &fakeGateStore{session: models.GateSession{FailedAttempts: 3}}
	svc := newGateService(store, now)

	status, err := svc.Submit(context.Background(), "u1", gateSecret)
	require.NoError(t, err)
	assert.Equal(t, string(models.GateValidated), status.State)
	assert.Equal(t, 0, store.session.FailedAttempts)
}

func TestGateRequire(t *testing.T) {
	now := time.Now()

	t.Run("unvalidated", func(t *testing.T) {
		svc := newGateService(&fakeGateStore{}, now)
		err := svc.Require(context.Background(), "u1")
		assert.ErrorIs(t, err, appErrors.ErrGateRequired)
	})

	t.Run("locked", func(t *testing.T) {
		expiry := now.Add(10 * time.Second)
		svc := newGateService(&fakeGateStore{session: models.GateSession{LockoutExpiry: &expiry}}, now)
		err := svc.Require(context.Background(), "u1")
		assert.ErrorIs(t, err, appErrors.ErrGateLocked)
	})

	t.Run("validated", func(t *testing.T) {
		until := now.Add(time.Hour)
		svc := newGateService(&fakeGateStore{session: models.GateSession{ValidatedUntil: &until}}, now)
		assert.NoError(t, svc.Require(context.Background(), "u1"))
	})

	t.Run("validation expired", func(t *testing.T) {
		until := now.Add(-time.Minute)
		svc := newGateService(&fakeGateStore{session: models.GateSession{ValidatedUntil: &until}}, now)
		err := svc.Require(context.Background(), "u1")
		assert.ErrorIs(t, err, appErrors.ErrGateRequired)
	})
}
