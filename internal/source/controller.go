package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// ControllerSource fetches the pattern set from a controller over HTTP.
type ControllerSource struct {
	controllerURL string
	configHash    string
	httpClient    *http.Client
	interval      atomic.Int64
}

// NewControllerSource returns a source querying controllerURL. A non-empty
// TLSConfig switches the client to (m)TLS.
func NewControllerSource(controllerURL, configHash string, tlsCfg TLSConfig) (*ControllerSource, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !tlsCfg.empty() {
		c, err := tlsCfg.clientTLS()
		if err != nil {
			return nil, err
		}
		transport.TLSClientConfig = c
	}

	return &ControllerSource{
		controllerURL: controllerURL,
		configHash:    configHash,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   10 * time.Second,
		},
	}, nil
}

func (c *ControllerSource) FetchPatterns(ctx context.Context) ([]string, error) {
	u := fmt.Sprintf("%s/api/patterns?hash=%s", c.controllerURL, url.QueryEscape(c.configHash))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch patterns: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var controllerResp ControllerResponse
	if err := json.NewDecoder(resp.Body).Decode(&controllerResp); err != nil {
		return nil, fmt.Errorf("failed to decode pattern response: %w", err)
	}

	spec := controllerResp.PatternSet.Spec
	c.interval.Store(int64(time.Duration(spec.Interval) * time.Second))

	log.Debug().
		Str("name", controllerResp.PatternSet.Name).
		Int("patterns", len(spec.Patterns)).
		Msg("Fetched pattern set from controller")

	return spec.Patterns, nil
}

// Interval returns the fetch interval requested by the controller in its
// last response, or zero.
func (c *ControllerSource) Interval() time.Duration {
	return time.Duration(c.interval.Load())
}
