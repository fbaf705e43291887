// Package rec provides the HTTP client for the Rec availability API.
//
// Rec exposes a single read endpoint returning, per organization, every
// location with its courts and their currently bookable slot times. The
// payload schema here is the one versioned contract — a response that does
// not match it is a transport failure, never a guess at alternate keys.
package rec

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const availabilityPath = "/v1/locations/availability"

// TransportError is returned for any upstream failure: unreachable host,
// timeout, non-2xx status, or an undecodable body. The next scheduler tick
// is the retry; the client never retries internally.
type TransportError struct {
	Status int // 0 when the request never completed
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("rec upstream returned %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("rec upstream unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// --------------------------------------------------------------------------
// Payload schema
// --------------------------------------------------------------------------

// Batch is the full availability response for one organization.
type Batch []LocationAvailability

// LocationAvailability wraps a single location entry.
type LocationAvailability struct {
	Location Location `json:"location"`
}

// Location is a bookable site with its courts.
type Location struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	FormattedAddress   string  `json:"formattedAddress"`
	Timezone           string  `json:"timezone"`
	Images             Images  `json:"images"`
	MaxReservationTime string  `json:"maxReservationTime"` // "HH:MM:SS"
	Courts             []Court `json:"courts"`
}

// Images carries location artwork URLs.
type Images struct {
	Thumbnail string `json:"thumbnail"`
}

// Court is a single bookable court at a location.
type Court struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Sports             []Sport   `json:"sports"`
	Durations          Durations `json:"allowedReservationDurations"`
	MaxReservationTime string    `json:"maxReservationTime"` // "HH:MM:SS"
	AvailableSlots     []string  `json:"availableSlots"`     // "2006-01-02 15:04:05" local
}

// Sport identifies an activity offered on a court.
type Sport struct {
	SportID string `json:"sportId"`
}

// Durations lists the reservation lengths a court accepts.
type Durations struct {
	Minutes []int `json:"minutes"`
}

// --------------------------------------------------------------------------
// Client
// --------------------------------------------------------------------------

// Client is the HTTP client for Rec availability fetches.
type Client struct {
	httpClient *http.Client
	baseURL    string
	orgSlug    string
	logger     *slog.Logger
}

// NewClient creates a Rec client with a bounded request timeout.
func NewClient(baseURL, orgSlug string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		orgSlug:    orgSlug,
		logger:     logger,
	}
}

// FetchAvailability fetches the availability batch for the configured
// organization. Any failure yields a *TransportError; partial data is never
// returned.
func (c *Client) FetchAvailability(ctx context.Context) (Batch, error) {
	params := url.Values{}
	params.Set("organizationSlug", c.orgSlug)
	params.Set("publishedSites", "true")

	u := c.baseURL + availabilityPath + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s", truncate(body, 200)),
		}
	}

	var batch Batch
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, &TransportError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("decode availability payload: %w", err),
		}
	}

	return batch, nil
}

// truncate returns a truncated string representation for error messages.
func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
