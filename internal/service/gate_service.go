package service

import (
	"context"
	"crypto/subtle"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/openclass/openclass-api/internal/dto"
	"github.com/openclass/openclass-api/internal/models"
	appErrors "github.com/openclass/openclass-api/pkg/errors"
)

// GateStore abstracts persistence for gate sessions.
type GateStore interface {
	Load(ctx context.Context, principalID string) (*models.GateSession, error)
	IncrementAttempts(ctx context.Context, principalID string, ttl time.Duration) (int, error)
	SetLockout(ctx context.Context, principalID string, expiry time.Time) error
	SetValidated(ctx context.Context, principalID string, until time.Time) error
}

// GateServiceConfig carries the gate policy knobs.
type GateServiceConfig struct {
	Secret          string
	MinKeyLength    int
	MaxAttempts     int
	LockoutDuration time.Duration
	ValidationTTL   time.Duration
}

// GateService enforces the analytics access gate: keys shorter than the
// minimum are rejected without touching the failure counter, repeated
// wrong keys trigger a timed lockout, and a correct key opens a
// validation window. All state lives server-side keyed by principal, so
// neither attempts nor lockouts can be reset from the client.
type GateService struct {
	store  GateStore
	logger *zap.Logger
	now    func() time.Time
	cfg    GateServiceConfig
}

// NewGateService constructs a gate service.
func NewGateService(store GateStore, logger *zap.Logger, cfg GateServiceConfig) *GateService {
	if cfg.MinKeyLength <= 0 {
		cfg.MinKeyLength = 10
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 30 * time.Second
	}
	if cfg.ValidationTTL <= 0 {
		cfg.ValidationTTL = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GateService{store: store, logger: logger, now: time.Now, cfg: cfg}
}

// Submit evaluates an access key for the principal and returns the
// resulting gate status. Policy violations surface as typed errors with
// the same status payload attached, so handlers can render both.
func (s *GateService) Submit(ctx context.Context, principalID, key string) (*dto.GateStatusResponse, error) {
	now := s.now()

	session, err := s.store.Load(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("load gate session: %w", err)
	}

	if session.State(now) == models.GateLockedOut {
		return s.status(session, now), appErrors.ErrGateLocked
	}

	// Length screening precedes the counter: a too-short key is a
	// client mistake, not an attempt against the secret.
	if len(key) < s.cfg.MinKeyLength {
		return s.status(session, now), appErrors.Clone(appErrors.ErrGateKeyInvalid,
			fmt.Sprintf("access key must be at least %d characters", s.cfg.MinKeyLength))
	}

	if subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.Secret)) != 1 {
		attempts, err := s.store.IncrementAttempts(ctx, principalID, s.cfg.LockoutDuration)
		if err != nil {
			return nil, fmt.Errorf("record gate failure: %w", err)
		}
		session.FailedAttempts = attempts

		if attempts >= s.cfg.MaxAttempts {
			expiry := now.Add(s.cfg.LockoutDuration)
			if err := s.store.SetLockout(ctx, principalID, expiry); err != nil {
				return nil, fmt.Errorf("record gate lockout: %w", err)
			}
			session.FailedAttempts = 0
			session.LockoutExpiry = &expiry
			s.logger.Warn("analytics gate locked",
				zap.String("principal_id", principalID),
				zap.Time("expiry", expiry))
			return s.status(session, now), appErrors.ErrGateLocked
		}

		return s.status(session, now), appErrors.ErrGateRejected
	}

	until := now.Add(s.cfg.ValidationTTL)
	if err := s.store.SetValidated(ctx, principalID, until); err != nil {
		return nil, fmt.Errorf("record gate validation: %w", err)
	}
	session.FailedAttempts = 0
	session.LockoutExpiry = nil
	session.ValidatedUntil = &until
	s.logger.Info("analytics gate validated",
		zap.String("principal_id", principalID),
		zap.Time("valid_until", until))
	return s.status(session, now), nil
}

// Status reports the current gate state without evaluating a key.
func (s *GateService) Status(ctx context.Context, principalID string) (*dto.GateStatusResponse, error) {
	session, err := s.store.Load(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("load gate session: %w", err)
	}
	return s.status(session, s.now()), nil
}

// Require returns nil only when the principal holds an unexpired
// validation. Used by middleware guarding gated analytics routes.
func (s *GateService) Require(ctx context.Context, principalID string) error {
	session, err := s.store.Load(ctx, principalID)
	if err != nil {
		return fmt.Errorf("load gate session: %w", err)
	}
	switch session.State(s.now()) {
	case models.GateValidated:
		return nil
	case models.GateLockedOut:
		return appErrors.ErrGateLocked
	default:
		return appErrors.ErrGateRequired
	}
}

func (s *GateService) status(session *models.GateSession, now time.Time) *dto.GateStatusResponse {
	resp := &dto.GateStatusResponse{State: string(session.State(now))}

	switch session.State(now) {
	case models.GateLockedOut:
		resp.AttemptsRemaining = 0
		if session.LockoutExpiry != nil {
			resp.RetryAfterSeconds = int(math.Ceil(session.LockoutExpiry.Sub(now).Seconds()))
		}
	case models.GateValidated:
		resp.AttemptsRemaining = s.cfg.MaxAttempts
		resp.ValidatedUntil = session.ValidatedUntil
	default:
		remaining := s.cfg.MaxAttempts - session.FailedAttempts
		if remaining < 0 {
			remaining = 0
		}
		resp.AttemptsRemaining = remaining
	}
	return resp
}
