// Package geocode resolves free-text addresses to coordinates through an
// ArcGIS findAddressCandidates compatible endpoint.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tazhibayda/places-service/internal/domain"
	"github.com/tazhibayda/places-service/internal/metrics"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

// ErrNoMatch is returned when the endpoint answers with zero candidates.
var ErrNoMatch = errors.New("could not find location for the specified address")

// Resolver is what the place workflow needs from a geocoder.
type Resolver interface {
	Resolve(ctx context.Context, address string) (domain.Location, error)
}

type Client struct {
	endpoint string
	http     *http.Client
}

func New(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{endpoint: endpoint, http: &http.Client{Timeout: timeout}}
}

type candidatesResp struct {
	Candidates []struct {
		Address  string `json:"address"`
		Location struct {
			X float64 `json:"x"` // longitude
			Y float64 `json:"y"` // latitude
		} `json:"location"`
		Score float64 `json:"score"`
	} `json:"candidates"`
	// ArcGIS reports failures such as a bad token with status 200 and this body.
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Resolve returns the location of the first candidate.
func (c *Client) Resolve(ctx context.Context, address string) (loc domain.Location, err error) {
	sp, ctx := tracer.StartSpanFromContext(ctx, "geocoder.resolve")
	defer func() { sp.Finish(tracer.WithError(err)) }()
	start := time.Now()
	defer func() { metrics.GeocodeDuration.Observe(time.Since(start).Seconds()) }()

	u, err := url.Parse(c.endpoint)
	if err != nil {
		return loc, fmt.Errorf("geocoder endpoint: %w", err)
	}
	q := u.Query()
	q.Set("f", "json")
	q.Set("singleLine", address)
	q.Set("outFields", "Match_addr,Addr_type")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return loc, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return loc, fmt.Errorf("geocoder request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return loc, fmt.Errorf("geocoder status %d", resp.StatusCode)
	}

	var doc candidatesResp
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return loc, fmt.Errorf("geocoder decode: %w", err)
	}
	if doc.Error != nil {
		return loc, fmt.Errorf("geocoder error %d: %s", doc.Error.Code, doc.Error.Message)
	}
	if doc.Candidates == nil {
		return loc, errors.New("geocoder response without candidates")
	}
	if len(doc.Candidates) == 0 {
		return loc, ErrNoMatch
	}
	first := doc.Candidates[0].Location
	return domain.Location{Lat: first.Y, Lng: first.X}, nil
}

var _ Resolver = (*Client)(nil)
