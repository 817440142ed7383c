package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/cache"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/store"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/types"
)

// Outcome is the three-way decision the UI layer sees.  Raw transport or
// model errors never cross this boundary.
type Outcome string

const (
	OutcomeGranted   Outcome = "granted"
	OutcomeDenied    Outcome = "denied"
	OutcomeEscalated Outcome = "escalated"
)

// Decision is the result of one access attempt.
type Decision struct {
	Outcome Outcome
	Reason  string
}

// ErrDecisionInFlight rejects a decision started while another is still in
// flight (or inside the cooldown right after one).  Overlapping detections
// and duplicate UI triggers land here and must simply be dropped by the
// caller — no write has happened.
var ErrDecisionInFlight = errors.New("another access decision is in flight")

const defaultCooldown = 3 * time.Second

type DecisionConfig struct {
	// Cooldown extends the single-flight guard past the end of each
	// decision to absorb near-simultaneous duplicate recognitions.
	// Default 3s.
	Cooldown time.Duration
}

// DecisionService applies the business rules: shift windows, duplicate
// state, escalation.  One instance per terminal; it serializes decisions.
type DecisionService struct {
	gateway *EventGateway
	cache   *cache.Cache
	shifts  types.ShiftSchedule
	logger  *log.Logger

	cooldown time.Duration
	now      func() time.Time

	mu       sync.Mutex
	inFlight bool
	lastDone time.Time
}

func NewDecisionService(
	gateway *EventGateway,
	stateCache *cache.Cache,
	shifts types.ShiftSchedule,
	cfg DecisionConfig,
	logger *log.Logger,
) *DecisionService {
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &DecisionService{
		gateway:  gateway,
		cache:    stateCache,
		shifts:   shifts,
		logger:   logger,
		cooldown: cooldown,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Decide runs the access rules for one identity and declared direction.
//
// The returned error is ErrDecisionInFlight only; every other failure mode
// is folded into the Decision so callers above the service layer never see
// transport errors.
func (s *DecisionService) Decide(
	ctx context.Context,
	id types.Identity,
	declared types.EventType,
	method types.AuthMethod,
) (Decision, error) {
	if !declared.Valid() {
		// Local validation: rejected before any remote call.
		return Decision{Outcome: OutcomeDenied, Reason: "invalid login type"}, nil
	}

	if err := s.begin(); err != nil {
		return Decision{}, err
	}
	defer s.finish()

	now := s.now()
	current := s.shifts.At(now)

	// Out-of-shift entries are never auto-granted or auto-denied: they
	// become an authorization request a supervisor resolves later.
	if declared == types.EventEntry && id.Shift != "" && id.Shift != current {
		_, err := s.gateway.SubmitEscalation(ctx, id.EmployeeCode, declared, method, &types.EventDetail{
			Reason:         "out_of_shift",
			AssignedShift:  id.Shift,
			AttemptedShift: current,
		})
		if err != nil {
			if errors.Is(err, store.ErrPendingExists) {
				// The earlier request is still valid; same answer.
				return Decision{Outcome: OutcomeEscalated, Reason: "authorization already pending"}, nil
			}
			return s.deny(err), nil
		}
		s.logger.Printf("decision: escalated employee=%s assigned=%s attempted=%s",
			id.EmployeeCode, id.Shift, current)
		return Decision{Outcome: OutcomeEscalated, Reason: "outside assigned shift"}, nil
	}

	// Duplicate-state check against the snapshot: a repeat of the current
	// state is denied with no write at all.
	snap, err := s.cache.Snapshot()
	if err != nil {
		return s.deny(err), nil
	}
	if last := snap.LastApproved(id.EmployeeCode); last != nil && last.Type == declared {
		return Decision{Outcome: OutcomeDenied, Reason: alreadyReason(declared)}, nil
	}

	res, err := s.gateway.Submit(ctx, id.EmployeeCode, declared, method, nil)
	if err != nil {
		if errors.Is(err, store.ErrPendingExists) {
			// The hub answered 409: a pending request already exists and
			// remains the authoritative state of this employee's attempt.
			return Decision{Outcome: OutcomeEscalated, Reason: "authorization already pending"}, nil
		}
		return s.deny(err), nil
	}
	if res.Skipped {
		// A racing writer got there first.
		return Decision{Outcome: OutcomeDenied, Reason: "already recorded"}, nil
	}

	// Refresh before reporting success so the next decision (and the UI's
	// inside/outside counts) see the committed event.
	if err := s.cache.Refresh(ctx); err != nil {
		s.logger.Printf("decision: cache refresh after grant failed: %v", err)
	}

	s.logger.Printf("decision: granted employee=%s type=%s method=%s",
		id.EmployeeCode, declared, method)
	return Decision{Outcome: OutcomeGranted}, nil
}

// deny translates a gateway failure into a denial, preferring the remote
// store's own message when it sent one.
func (s *DecisionService) deny(err error) Decision {
	s.logger.Printf("decision: denied by error: %v", err)
	var statusErr *store.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		return Decision{Outcome: OutcomeDenied, Reason: statusErr.Message}
	}
	return Decision{Outcome: OutcomeDenied, Reason: "could not record access event"}
}

func alreadyReason(declared types.EventType) string {
	if declared == types.EventEntry {
		return "already inside"
	}
	return "already outside"
}

// begin claims the terminal's single decision slot.  The slot stays taken
// until finish runs and for the cooldown after it.
func (s *DecisionService) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if s.inFlight || now.Sub(s.lastDone) < s.cooldown {
		return ErrDecisionInFlight
	}
	s.inFlight = true
	return nil
}

func (s *DecisionService) finish() {
	s.mu.Lock()
	s.inFlight = false
	s.lastDone = s.now()
	s.mu.Unlock()
}
