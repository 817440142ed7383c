package service

import (
	"context"
	"errors"
	"log"

	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/cache"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/detector"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/session"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/types"
)

// AttemptStatus tells the UI layer what happened to one access attempt and
// whether the manual fallback should be offered.
type AttemptStatus string

const (
	// AttemptDecided means recognition succeeded and Decision carries the
	// verdict.
	AttemptDecided AttemptStatus = "decided"

	// AttemptFallback means recognition did not identify anyone (timeout,
	// camera failure) and the manual credentials form should be offered.
	AttemptFallback AttemptStatus = "fallback"

	// AttemptAborted means the operator cancelled; no fallback is offered.
	AttemptAborted AttemptStatus = "aborted"
)

// AttemptResult is the controller's answer for one attempt.
type AttemptResult struct {
	Status   AttemptStatus
	Identity types.Identity
	Decision Decision
}

// Controller ties recognition sessions and the decision engine together:
// one attempt equals one fresh session followed by at most one decision.
type Controller struct {
	frames    detector.FrameSource
	det       detector.FaceDetector
	cache     *cache.Cache
	decisions *DecisionService
	tokens    *TokenService
	sessCfg   session.Config
	logger    *log.Logger
}

func NewController(
	frames detector.FrameSource,
	det detector.FaceDetector,
	stateCache *cache.Cache,
	decisions *DecisionService,
	tokens *TokenService,
	sessCfg session.Config,
	logger *log.Logger,
) *Controller {
	return &Controller{
		frames:    frames,
		det:       det,
		cache:     stateCache,
		decisions: decisions,
		tokens:    tokens,
		sessCfg:   sessCfg,
		logger:    logger,
	}
}

// Attempt runs one facial access attempt for the declared direction.
// A dead camera degrades to the fallback form instead of failing the
// attempt; an operator abort offers nothing.
func (c *Controller) Attempt(ctx context.Context, declared types.EventType) (AttemptResult, error) {
	snap, err := c.cache.Snapshot()
	if err != nil {
		return AttemptResult{}, err
	}

	sess := session.New(c.frames, c.det, snap, c.sessCfg, c.logger)
	res, err := sess.Run(ctx)
	if err != nil {
		if errors.Is(err, detector.ErrCameraUnavailable) {
			c.logger.Printf("controller: camera unavailable, offering manual fallback: %v", err)
			return AttemptResult{Status: AttemptFallback}, nil
		}
		return AttemptResult{}, err
	}

	switch res.State {
	case session.StateRecognized:
		decision, err := c.decisions.Decide(ctx, res.Identity, declared, types.MethodFacial)
		if err != nil {
			return AttemptResult{}, err
		}
		return AttemptResult{Status: AttemptDecided, Identity: res.Identity, Decision: decision}, nil

	case session.StateAborted:
		return AttemptResult{Status: AttemptAborted}, nil

	default:
		return AttemptResult{Status: AttemptFallback}, nil
	}
}

// RequestFallbackToken starts the manual flow after a failed recognition.
func (c *Controller) RequestFallbackToken(ctx context.Context, employeeCode, nationalID string) error {
	return c.tokens.RequestToken(ctx, employeeCode, nationalID)
}

// VerifyFallback completes the manual flow: a valid code + secret + token
// triplet resolves the identity, then the normal decision rules apply with
// the credentials method recorded on the event.
func (c *Controller) VerifyFallback(
	ctx context.Context,
	employeeCode, nationalID, token string,
	declared types.EventType,
) (AttemptResult, error) {
	id, err := c.tokens.Verify(ctx, employeeCode, nationalID, token)
	if err != nil {
		return AttemptResult{}, err
	}
	decision, err := c.decisions.Decide(ctx, id, declared, types.MethodCredentials)
	if err != nil {
		return AttemptResult{}, err
	}
	return AttemptResult{Status: AttemptDecided, Identity: id, Decision: decision}, nil
}
