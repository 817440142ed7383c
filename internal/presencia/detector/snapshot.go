package detector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// SnapshotSource grabs frames from an IP-camera style snapshot endpoint:
// every GET returns one fresh JPEG.  Acquire probes the endpoint once so a
// dead camera is reported as ErrCameraUnavailable before sampling starts.
type SnapshotSource struct {
	url    string
	client *http.Client
}

func NewSnapshotSource(url string) *SnapshotSource {
	return &SnapshotSource{
		url:    strings.TrimSpace(url),
		client: &http.Client{},
	}
}

func (s *SnapshotSource) Acquire(ctx context.Context) (FrameStream, error) {
	if s.url == "" {
		return nil, fmt.Errorf("%w: no camera url configured", ErrCameraUnavailable)
	}
	stream := &snapshotStream{source: s}
	if _, err := stream.Frame(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCameraUnavailable, err)
	}
	return stream, nil
}

type snapshotStream struct {
	source   *SnapshotSource
	released bool
}

func (st *snapshotStream) Frame(ctx context.Context) ([]byte, error) {
	if st.released {
		return nil, fmt.Errorf("%w: stream released", ErrCameraUnavailable)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, st.source.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := st.source.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch frame: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch frame: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Release is idempotent; snapshot cameras hold no device handle, so this
// only fences off further Frame calls.
func (st *snapshotStream) Release() {
	st.released = true
}
