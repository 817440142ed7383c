// Package detector defines the camera and face-model collaborators the
// recognition session depends on.  The embedding model itself is opaque: a
// frame goes in, a fixed-length descriptor (or nothing) comes out.
package detector

import (
	"context"
	"errors"

	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/types"
)

var (
	// ErrCameraUnavailable means the frame source could not be acquired.
	// Fatal to the current session; the caller falls back to manual login.
	ErrCameraUnavailable = errors.New("camera unavailable")

	// ErrModelUnavailable means the detector sidecar cannot serve
	// detections.  Fatal to recognition for the whole terminal; the caller
	// degrades to manual-only mode rather than pretending recognition works.
	ErrModelUnavailable = errors.New("face model unavailable")
)

// FaceDetector computes a descriptor for the single face in a frame.
// A nil descriptor with a nil error means zero or more than one face was
// found — not an error, just no usable sample this tick.
type FaceDetector interface {
	DetectSingleFace(ctx context.Context, frame []byte) (types.Descriptor, error)
}

// FrameStream yields frames from an acquired camera.  Release must be safe
// to call more than once; the session guarantees it calls Release exactly
// once per acquisition, but defensive sources cost nothing.
type FrameStream interface {
	Frame(ctx context.Context) ([]byte, error)
	Release()
}

// FrameSource acquires the camera.  Acquire returns ErrCameraUnavailable
// (possibly wrapped) when the device cannot be opened.
type FrameSource interface {
	Acquire(ctx context.Context) (FrameStream, error)
}
