package biometric

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/centbank/facegate/internal/errs"
	"github.com/centbank/facegate/internal/model"
)

// HTTPSource calls the embedding model served as an HTTP sidecar. The sidecar
// owns detection confidence and best-face selection; this client only
// validates the vector dimension.
type HTTPSource struct {
	baseURL string
	dim     int
	client  *http.Client
}

// NewHTTPSource constructs a client for the extractor sidecar at baseURL.
func NewHTTPSource(baseURL string, dim int, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		dim:     dim,
		client:  &http.Client{Timeout: timeout},
	}
}

type extractRequest struct {
	Image string `json:"image"`
}

type extractResponse struct {
	Found     bool      `json:"found"`
	Embedding []float32 `json:"embedding"`
}

// Extract posts one frame and returns its embedding, or errs.ErrNoFace when
// the model reports no face.
func (s *HTTPSource) Extract(ctx context.Context, imageB64 string) (model.Embedding, error) {
	// Kiosk frames come as data URLs; the sidecar expects bare base64.
	if idx := strings.IndexByte(imageB64, ','); idx >= 0 && strings.HasPrefix(imageB64, "data:image") {
		imageB64 = imageB64[idx+1:]
	}

	body, err := json.Marshal(extractRequest{Image: imageB64})
	if err != nil {
		return nil, fmt.Errorf("encode extract request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/extract", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extractor: unexpected status %d", resp.StatusCode)
	}
	var out extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode extract response: %w", err)
	}
	if !out.Found {
		return nil, errs.ErrNoFace
	}
	if len(out.Embedding) != s.dim {
		return nil, fmt.Errorf("extractor returned %d values: %w", len(out.Embedding), errs.ErrDimensionMismatch)
	}
	return model.Embedding(out.Embedding), nil
}
