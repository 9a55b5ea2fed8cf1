// Package broker queries heterogeneous transient-alert brokers and
// normalizes their responses into the canonical Alert shape. Each
// broker gets one adapter implementing the Broker interface; adapters
// share no mutable state and are safe for concurrent use.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nightwatch-obs/alert-radar/internal/models"
)

// DefaultFetchTimeout bounds a single remote broker call.
const DefaultFetchTimeout = 30 * time.Second

// Query carries the recognized filters a caller may set. At least one
// of the three strategies (identifier lookup, detection-time window,
// free-form search) must be populated before dispatch.
type Query struct {
	ObjectIDs []string
	MJDMin    *float64
	MJDMax    *float64
	Search    string
	MaxAlerts int
}

// Validate ensures at least one recognized filter is populated.
// Whether a specific broker supports the populated strategy is checked
// by that broker's BuildRequest.
func (q Query) Validate() error {
	switch {
	case len(q.ObjectIDs) > 0:
		return nil
	case q.MJDMin != nil && q.MJDMax != nil:
		return nil
	case strings.TrimSpace(q.Search) != "":
		return nil
	}
	return &ValidationError{Reason: "one of object ids, a full detection-time window, or a search term must be set"}
}

// Limit returns the result cap to send to the broker.
func (q Query) Limit(fallback int) int {
	if q.MaxAlerts > 0 {
		return q.MaxAlerts
	}
	return fallback
}

// Broker is the per-broker capability set. BuildRequest selects exactly
// one query strategy by fixed precedence (identifiers, then time
// window, then free-form search) and never mixes them. Fetch performs
// the remote call and splits the payload into raw per-object records
// without retrying; Normalize maps one raw record to the canonical
// alert shape, tolerating the broker's known response shapes and
// failing loudly on anything else.
type Broker interface {
	Name() string
	BuildRequest(ctx context.Context, q Query) (*http.Request, error)
	Fetch(req *http.Request) ([]json.RawMessage, error)
	Normalize(raw json.RawMessage) (models.Alert, error)
}

func newClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &http.Client{Timeout: timeout}
}

// fetchInto performs the request and decodes the body into dst.
// Failures of every kind come back as a RemoteError; the caller decides
// whether to retry or report.
func fetchInto(client *http.Client, name string, req *http.Request, dst any) error {
	resp, err := client.Do(req)
	if err != nil {
		return &RemoteError{Broker: name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RemoteError{
			Broker: name,
			Status: resp.StatusCode,
			Err:    errors.New(http.StatusText(resp.StatusCode)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return &RemoteError{Broker: name, Err: fmt.Errorf("malformed JSON body: %w", err)}
	}
	return nil
}
