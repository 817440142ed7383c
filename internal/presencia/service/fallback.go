package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/cache"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/types"
)

// DefaultTokenTTL is how long a dispatched one-time token stays valid.
const DefaultTokenTTL = 900 * time.Second

var (
	// ErrMissingCredentials rejects a fallback request before any lookup.
	ErrMissingCredentials = errors.New("employee code and national id are required")

	// ErrInvalidCredentials is deliberately generic: it covers unknown
	// codes, wrong national IDs and wrong tokens alike, so the form cannot
	// be used to probe who is enrolled.
	ErrInvalidCredentials = errors.New("invalid or expired credentials")

	// ErrTokenExpired rejects verification after the countdown has elapsed.
	ErrTokenExpired = errors.New("token expired")
)

// TokenDispatcher delivers a one-time token to the employee out of band.
// The delivery channel (SMS, mail, supervisor display) is not the
// terminal's concern.
type TokenDispatcher interface {
	Dispatch(ctx context.Context, id types.Identity, token string) error
}

type issuedToken struct {
	token      string
	nationalID string
	expiresAt  time.Time
}

// TokenService runs the manual fallback: declared code + secret trigger a
// one-time token dispatch, and only code + secret + token together resolve
// an identity.  Knowing code and national ID alone is never sufficient.
type TokenService struct {
	cache      *cache.Cache
	dispatcher TokenDispatcher
	ttl        time.Duration
	logger     *log.Logger
	now        func() time.Time

	mu      sync.Mutex
	pending map[string]issuedToken // keyed by employee code
}

func NewTokenService(stateCache *cache.Cache, dispatcher TokenDispatcher, ttl time.Duration, logger *log.Logger) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		cache:      stateCache,
		dispatcher: dispatcher,
		ttl:        ttl,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		pending:    make(map[string]issuedToken),
	}
}

// RequestToken validates the declared credentials locally and, when they
// match an enrolled identity, dispatches a fresh one-time token.  A repeat
// request replaces any earlier token for the same employee.
func (s *TokenService) RequestToken(ctx context.Context, employeeCode, nationalID string) error {
	employeeCode = strings.TrimSpace(employeeCode)
	nationalID = strings.TrimSpace(nationalID)
	if employeeCode == "" || nationalID == "" {
		return ErrMissingCredentials
	}

	snap, err := s.cache.Snapshot()
	if err != nil {
		return err
	}
	id, ok := snap.IdentityByCode(employeeCode)
	if !ok || id.NationalID != nationalID {
		return ErrInvalidCredentials
	}

	token := uuid.NewString()
	s.mu.Lock()
	s.pending[employeeCode] = issuedToken{
		token:      token,
		nationalID: nationalID,
		expiresAt:  s.now().Add(s.ttl),
	}
	s.mu.Unlock()

	if err := s.dispatcher.Dispatch(ctx, id, token); err != nil {
		// Undo: an undeliverable token must not stay verifiable.
		s.mu.Lock()
		delete(s.pending, employeeCode)
		s.mu.Unlock()
		return err
	}
	s.logger.Printf("fallback: token dispatched for employee=%s (ttl=%s)", employeeCode, s.ttl)
	return nil
}

// Verify checks code + secret + token together.  An expired token yields
// ErrTokenExpired; every other mismatch yields the generic
// ErrInvalidCredentials.  On success the token is consumed and the resolved
// identity returned for a credentials-method decision.
func (s *TokenService) Verify(ctx context.Context, employeeCode, nationalID, token string) (types.Identity, error) {
	employeeCode = strings.TrimSpace(employeeCode)
	nationalID = strings.TrimSpace(nationalID)
	token = strings.TrimSpace(token)
	if employeeCode == "" || nationalID == "" || token == "" {
		return types.Identity{}, ErrMissingCredentials
	}

	s.mu.Lock()
	issued, ok := s.pending[employeeCode]
	if ok && s.now().After(issued.expiresAt) {
		delete(s.pending, employeeCode)
		s.mu.Unlock()
		return types.Identity{}, ErrTokenExpired
	}
	if !ok || issued.token != token || issued.nationalID != nationalID {
		s.mu.Unlock()
		return types.Identity{}, ErrInvalidCredentials
	}
	// One-time: consumed on success.
	delete(s.pending, employeeCode)
	s.mu.Unlock()

	snap, err := s.cache.Snapshot()
	if err != nil {
		return types.Identity{}, err
	}
	id, found := snap.IdentityByCode(employeeCode)
	if !found {
		return types.Identity{}, ErrInvalidCredentials
	}
	s.logger.Printf("fallback: token verified for employee=%s", employeeCode)
	return id, nil
}
