package session_test

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/detector"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/matcher"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/session"
	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/types"
)

func testDescriptor(v float32) types.Descriptor {
	d := make(types.Descriptor, types.DescriptorLength)
	d[0] = v
	return d
}

// scriptedStream hands out dummy frames and counts Release calls.
type scriptedStream struct {
	mu       sync.Mutex
	releases int
}

func (s *scriptedStream) Frame(_ context.Context) ([]byte, error) {
	return []byte("frame"), nil
}

func (s *scriptedStream) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases++
}

func (s *scriptedStream) Releases() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releases
}

type scriptedSource struct {
	stream *scriptedStream
	err    error
}

func (s *scriptedSource) Acquire(_ context.Context) (detector.FrameStream, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.stream, nil
}

// scriptedDetector plays back a fixed sequence of descriptors; nil entries
// model "no single face in frame".  Past the end it keeps returning nil.
type scriptedDetector struct {
	mu    sync.Mutex
	steps []types.Descriptor
	calls int
	block chan struct{} // optional: hold each call until closed
}

func (d *scriptedDetector) DetectSingleFace(ctx context.Context, _ []byte) (types.Descriptor, error) {
	if d.block != nil {
		select {
		case <-d.block:
		case <-ctx.Done():
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.calls <= len(d.steps) {
		return d.steps[d.calls-1], nil
	}
	return nil, nil
}

type fakeRoster struct {
	m   *matcher.Matcher
	ids map[string]types.Identity
}

func (r *fakeRoster) Matcher() *matcher.Matcher { return r.m }

func (r *fakeRoster) IdentityByCode(code string) (types.Identity, bool) {
	id, ok := r.ids[code]
	return id, ok
}

func newRoster(ids ...types.Identity) *fakeRoster {
	byCode := make(map[string]types.Identity, len(ids))
	for _, id := range ids {
		byCode[id.EmployeeCode] = id
	}
	return &fakeRoster{m: matcher.Build(ids), ids: byCode}
}

func fastConfig() session.Config {
	return session.Config{PollInterval: time.Millisecond, Timeout: 40 * time.Millisecond}
}

func testLogger() *log.Logger { return log.New(io.Discard, "", 0) }

// ── Terminal states ──────────────────────────────────────────────────────────

func TestRun_NoFaceFrames_TimesOutAndReleasesOnce(t *testing.T) {
	stream := &scriptedStream{}
	det := &scriptedDetector{steps: []types.Descriptor{nil, nil, nil, nil, nil}}
	roster := newRoster(types.Identity{EmployeeCode: "1001", Descriptor: testDescriptor(0)})

	s := session.New(&scriptedSource{stream: stream}, det, roster, fastConfig(), testLogger())

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != session.StateTimedOut {
		t.Fatalf("expected TimedOut, got %v", res.State)
	}
	if res.Identity.EmployeeCode != "" {
		t.Error("timed-out session must not carry an identity")
	}
	if got := stream.Releases(); got != 1 {
		t.Errorf("expected exactly 1 stream release, got %d", got)
	}
	if s.State() != session.StateTimedOut {
		t.Errorf("expected terminal state TimedOut, got %v", s.State())
	}
}

func TestRun_AcceptedMatch_Recognized(t *testing.T) {
	stream := &scriptedStream{}
	// Two empty ticks, then a descriptor right on top of the enrolled one.
	det := &scriptedDetector{steps: []types.Descriptor{nil, nil, testDescriptor(0.01)}}
	roster := newRoster(types.Identity{EmployeeCode: "1001", Name: "Ana", Descriptor: testDescriptor(0)})

	s := session.New(&scriptedSource{stream: stream}, det, roster, fastConfig(), testLogger())

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != session.StateRecognized {
		t.Fatalf("expected Recognized, got %v", res.State)
	}
	if res.Identity.EmployeeCode != "1001" {
		t.Errorf("expected identity 1001, got %q", res.Identity.EmployeeCode)
	}
	if res.Match.Distance >= matcher.MatchThreshold {
		t.Errorf("accepted match above threshold: %v", res.Match.Distance)
	}
	if got := stream.Releases(); got != 1 {
		t.Errorf("expected exactly 1 stream release, got %d", got)
	}
}

func TestRun_DistantFace_NeverRecognized(t *testing.T) {
	stream := &scriptedStream{}
	det := &scriptedDetector{steps: []types.Descriptor{testDescriptor(5)}}
	roster := newRoster(types.Identity{EmployeeCode: "1001", Descriptor: testDescriptor(0)})

	s := session.New(&scriptedSource{stream: stream}, det, roster, fastConfig(), testLogger())

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != session.StateTimedOut {
		t.Fatalf("expected TimedOut for out-of-threshold face, got %v", res.State)
	}
}

func TestRun_MaxAttemptsExhausted_TimedOut(t *testing.T) {
	stream := &scriptedStream{}
	det := &scriptedDetector{}
	roster := newRoster()

	cfg := session.Config{PollInterval: time.Millisecond, Timeout: time.Minute, MaxAttempts: 3}
	s := session.New(&scriptedSource{stream: stream}, det, roster, cfg, testLogger())

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != session.StateTimedOut {
		t.Fatalf("expected TimedOut after attempt budget, got %v", res.State)
	}
}

// ── Abort semantics ──────────────────────────────────────────────────────────

func TestRun_ContextCancelled_Aborted(t *testing.T) {
	stream := &scriptedStream{}
	det := &scriptedDetector{}
	roster := newRoster()

	ctx, cancel := context.WithCancel(context.Background())
	cfg := session.Config{PollInterval: time.Millisecond, Timeout: time.Minute}
	s := session.New(&scriptedSource{stream: stream}, det, roster, cfg, testLogger())

	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	res, err := s.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State != session.StateAborted {
		t.Fatalf("expected Aborted, got %v", res.State)
	}
	if got := stream.Releases(); got != 1 {
		t.Errorf("expected exactly 1 stream release, got %d", got)
	}
}

func TestRun_DetectionResolvingAfterAbort_NoStaleRecognition(t *testing.T) {
	stream := &scriptedStream{}
	block := make(chan struct{})
	// The detection would be an accepted match, but it only resolves after
	// the session has been cancelled.
	det := &scriptedDetector{steps: []types.Descriptor{testDescriptor(0.01)}, block: block}
	roster := newRoster(types.Identity{EmployeeCode: "1001", Descriptor: testDescriptor(0)})

	ctx, cancel := context.WithCancel(context.Background())
	cfg := session.Config{PollInterval: time.Millisecond, Timeout: time.Minute}
	s := session.New(&scriptedSource{stream: stream}, det, roster, cfg, testLogger())

	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
		close(block)
	}()

	res, err := s.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.State == session.StateRecognized {
		t.Fatal("stale detection surfaced as Recognized after abort")
	}
	if res.State != session.StateAborted {
		t.Fatalf("expected Aborted, got %v", res.State)
	}
}

// ── Setup failures and reuse ─────────────────────────────────────────────────

func TestRun_CameraUnavailable_ReturnsError(t *testing.T) {
	src := &scriptedSource{err: detector.ErrCameraUnavailable}
	s := session.New(src, &scriptedDetector{}, newRoster(), fastConfig(), testLogger())

	_, err := s.Run(context.Background())
	if !errors.Is(err, detector.ErrCameraUnavailable) {
		t.Fatalf("expected ErrCameraUnavailable, got %v", err)
	}
}

func TestRun_SecondRun_Rejected(t *testing.T) {
	stream := &scriptedStream{}
	s := session.New(&scriptedSource{stream: stream}, &scriptedDetector{}, newRoster(), fastConfig(), testLogger())

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	_, err := s.Run(context.Background())
	if !errors.Is(err, session.ErrAlreadyRun) {
		t.Fatalf("expected ErrAlreadyRun, got %v", err)
	}
}
