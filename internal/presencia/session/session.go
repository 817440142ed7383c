// Package session implements the bounded recognition attempt: a polling
// loop that samples camera frames, asks the detector for a descriptor, and
// queries the matcher until it recognizes someone, runs out of time, or is
// aborted.
package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/detector"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/matcher"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/types"
)

// State is the session's lifecycle position.  Recognized, TimedOut and
// Aborted are terminal; a session reaches exactly one of them, once.
type State string

const (
	StateIdle       State = "idle"
	StateSampling   State = "sampling"
	StateRecognized State = "recognized"
	StateTimedOut   State = "timed_out"
	StateAborted    State = "aborted"
)

// Terminal reports whether the state admits no further transition.
func (s State) Terminal() bool {
	return s == StateRecognized || s == StateTimedOut || s == StateAborted
}

// ErrAlreadyRun guards against reusing a session; each attempt gets a fresh
// one (create, use, dispose).
var ErrAlreadyRun = errors.New("recognition session already run")

// Roster is the slice of the state snapshot a session needs: the matcher
// and the identity lookup.  *cache.Snapshot satisfies it.
type Roster interface {
	Matcher() *matcher.Matcher
	IdentityByCode(code string) (types.Identity, bool)
}

type Config struct {
	// PollInterval is the spacing between samples.  Default 250ms.
	PollInterval time.Duration

	// Timeout is the wall-clock countdown for the whole attempt.
	// Default 10s.
	Timeout time.Duration

	// MaxAttempts optionally bounds the number of samples; 0 means the
	// countdown alone limits the session.
	MaxAttempts int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 250 * time.Millisecond
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return c
}

// Result is the session outcome.  Identity and Match are set only for
// StateRecognized.
type Result struct {
	State    State
	Identity types.Identity
	Match    matcher.Match
}

type Session struct {
	frames detector.FrameSource
	det    detector.FaceDetector
	roster Roster
	cfg    Config
	logger *log.Logger

	mu    sync.Mutex
	state State
	run   bool
}

func New(frames detector.FrameSource, det detector.FaceDetector, roster Roster, cfg Config, logger *log.Logger) *Session {
	return &Session{
		frames: frames,
		det:    det,
		roster: roster,
		cfg:    cfg.withDefaults(),
		state:  StateIdle,
		logger: logger,
	}
}

// State returns the current lifecycle position.  UI feedback only; flow
// decisions belong to the Result.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Terminal() {
		return
	}
	s.state = next
}

// Run executes the attempt to completion.  Cancelling ctx aborts the
// session; the camera stream and timers are released exactly once no matter
// which terminal state is reached.  Run returns an error only for setup
// failures (camera acquisition, reuse); a timed-out or aborted session is a
// normal Result, not an error.
func (s *Session) Run(ctx context.Context) (Result, error) {
	s.mu.Lock()
	if s.run {
		s.mu.Unlock()
		return Result{}, ErrAlreadyRun
	}
	s.run = true
	s.mu.Unlock()

	stream, err := s.frames.Acquire(ctx)
	if err != nil {
		s.setState(StateAborted)
		return Result{}, err
	}
	// Exactly-once cleanup for every exit path below.
	defer stream.Release()

	s.setState(StateSampling)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(s.cfg.Timeout)
	defer deadline.Stop()

	attempts := 0
	for {
		select {
		case <-ctx.Done():
			s.setState(StateAborted)
			return Result{State: StateAborted}, nil

		case <-deadline.C:
			s.setState(StateTimedOut)
			return Result{State: StateTimedOut}, nil

		case <-ticker.C:
			attempts++
			match, ok := s.sample(ctx, stream)
			if ctx.Err() != nil {
				// The detection resolved after cancellation; its result
				// must not surface as a stale recognition.
				s.setState(StateAborted)
				return Result{State: StateAborted}, nil
			}
			if ok {
				identity, found := s.roster.IdentityByCode(match.EmployeeCode)
				if !found {
					// Matcher and roster are built from the same snapshot;
					// a miss here means a programming error upstream.
					s.logger.Printf("session: matched unknown code %q", match.EmployeeCode)
					continue
				}
				s.setState(StateRecognized)
				return Result{State: StateRecognized, Identity: identity, Match: match}, nil
			}
			if s.cfg.MaxAttempts > 0 && attempts >= s.cfg.MaxAttempts {
				s.setState(StateTimedOut)
				return Result{State: StateTimedOut}, nil
			}
		}
	}
}

// sample takes one frame and runs it through detection and matching.
// Transient failures are logged and treated as "no sample this tick"; the
// loop keeps polling until the countdown decides otherwise.
func (s *Session) sample(ctx context.Context, stream detector.FrameStream) (matcher.Match, bool) {
	frame, err := stream.Frame(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Printf("session: frame capture failed: %v", err)
		}
		return matcher.Match{}, false
	}

	desc, err := s.det.DetectSingleFace(ctx, frame)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Printf("session: detection failed: %v", err)
		}
		return matcher.Match{}, false
	}
	if desc == nil {
		// Zero or more than one face in the frame: visual feedback only,
		// no state transition.
		return matcher.Match{}, false
	}

	return s.roster.Matcher().Accept(desc)
}
