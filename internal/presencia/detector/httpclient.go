package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/jza-lab/tpi-pyme-alimenticia-sub000/internal/presencia/types"
)

const defaultDetectorURL = "http://localhost:8500"

// Client talks to the face-detection sidecar over HTTP.  The sidecar accepts
// a frame and returns the detected faces with their embeddings.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
	}
}

type faceDetection struct {
	Embedding []float32 `json:"embedding"`
	DetScore  float64   `json:"det_score"`
}

type detectResponse struct {
	FacesCount int             `json:"faces_count"`
	Faces      []faceDetection `json:"faces"`
}

// DetectSingleFace posts the frame to the sidecar and returns the descriptor
// when exactly one face was found.  Zero or multiple faces yield (nil, nil).
func (c *Client) DetectSingleFace(ctx context.Context, frame []byte) (types.Descriptor, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(frame); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect/face", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrModelUnavailable, resp.StatusCode, string(body))
	}

	var det detectResponse
	if err := json.Unmarshal(body, &det); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	// Anything but exactly one face is "no usable sample", not an error.
	if det.FacesCount != 1 || len(det.Faces) != 1 {
		return nil, nil
	}
	if len(det.Faces[0].Embedding) == 0 {
		return nil, nil
	}
	return det.Faces[0].Embedding, nil
}

// Ping verifies the sidecar is reachable at startup so the terminal can
// degrade to manual-only mode instead of failing every session later.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrModelUnavailable, resp.StatusCode)
	}
	return nil
}
