package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nightwatch-obs/alert-radar/internal/models"
)

const (
	// DefaultLasairURL is the Lasair ZTF API root.
	DefaultLasairURL = "https://lasair-ztf.lsst.ac.uk/api"

	// Lasair rows carry jdmax as a plain Julian date; the portal's own
	// object pages subtract this fixed offset to display it as MJD.
	lasairJDOffset = 2400000

	lasairDefaultLimit = 20
)

// Lasair queries the Lasair ZTF alert broker. It supports direct object
// id lookups against the objects endpoint and detection-time window
// searches against the query endpoint; free-form queries are not
// exposed by the API.
type Lasair struct {
	baseURL    string
	displayURL string
	token      string
	client     *http.Client
}

// NewLasair builds a Lasair adapter. baseURL falls back to the public
// API root when empty; token is the broker-issued API token.
func NewLasair(baseURL, token string, timeout time.Duration) *Lasair {
	if baseURL == "" {
		baseURL = DefaultLasairURL
	}
	return &Lasair{
		baseURL:    strings.TrimRight(baseURL, "/"),
		displayURL: strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/api"),
		token:      token,
		client:     newClient(timeout),
	}
}

func (b *Lasair) Name() string { return "Lasair" }

// BuildRequest picks one strategy: object ids first, then a jdmax
// window over the objects and sherlock_classifications tables.
func (b *Lasair) BuildRequest(ctx context.Context, q Query) (*http.Request, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	switch {
	case len(q.ObjectIDs) > 0:
		params := url.Values{
			"objectIds": {strings.Join(q.ObjectIDs, ",")},
			"token":     {b.token},
			"format":    {"json"},
			"limit":     {strconv.Itoa(q.Limit(lasairDefaultLimit))},
		}
		return http.NewRequestWithContext(ctx, http.MethodGet,
			b.baseURL+"/objects/?"+params.Encode(), nil)

	case q.MJDMin != nil && q.MJDMax != nil:
		conditions := fmt.Sprintf("objects.jdmax>%f AND objects.jdmax<%f",
			*q.MJDMin+lasairJDOffset, *q.MJDMax+lasairJDOffset)
		params := url.Values{
			"selected": {"objects.objectId, objects.ramean, objects.decmean, objects.jdmax, " +
				"sherlock_classifications.classification"},
			"tables":     {"objects, sherlock_classifications"},
			"conditions": {conditions},
			"token":      {b.token},
			"format":     {"json"},
			"limit":      {strconv.Itoa(q.Limit(lasairDefaultLimit))},
		}
		return http.NewRequestWithContext(ctx, http.MethodGet,
			b.baseURL+"/query/?"+params.Encode(), nil)
	}

	return nil, &ValidationError{Reason: "Lasair supports object id or detection-time window queries only"}
}

// Fetch performs the call; both Lasair endpoints answer with a JSON
// array of records.
func (b *Lasair) Fetch(req *http.Request) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := fetchInto(b.client, b.Name(), req, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// lasairRecord covers both known Lasair shapes at once. The detail
// shape nests coordinates under objectData and carries a candidate
// list; the flat query-row shape has the same fields at the top level.
type lasairRecord struct {
	ObjectID   string `json:"objectId"`
	ObjectData *struct {
		RAMean  float64 `json:"ramean"`
		DecMean float64 `json:"decmean"`
		JDMax   float64 `json:"jdmax"`
	} `json:"objectData"`
	Candidates []struct {
		MagPSF *float64 `json:"magpsf"`
	} `json:"candidates"`

	RAMean  *float64 `json:"ramean"`
	DecMean *float64 `json:"decmean"`
	JDMax   *float64 `json:"jdmax"`
}

// Normalize tries the nested detail shape first and falls back to the
// flat query-row shape only when objectData is absent. A record that
// fits neither shape is corrupt and fails hard.
func (b *Lasair) Normalize(raw json.RawMessage) (models.Alert, error) {
	var rec lasairRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.Alert{}, &NormalizeError{Broker: b.Name(), Err: err}
	}
	if rec.ObjectID == "" {
		return models.Alert{}, &NormalizeError{Broker: b.Name(), Err: errors.New("missing objectId")}
	}

	alert := models.Alert{
		Source:   b.Name(),
		SourceID: rec.ObjectID,
		Name:     rec.ObjectID,
		URL:      fmt.Sprintf("%s/object/%s/", b.displayURL, rec.ObjectID),
		Mag:      models.MagUnknown,
		Score:    1,
	}

	switch {
	case rec.ObjectData != nil:
		alert.RA = rec.ObjectData.RAMean
		alert.Dec = rec.ObjectData.DecMean
		alert.MJD = rec.ObjectData.JDMax - lasairJDOffset
		if len(rec.Candidates) > 0 && rec.Candidates[0].MagPSF != nil {
			alert.Mag = *rec.Candidates[0].MagPSF
		}
	case rec.RAMean != nil && rec.DecMean != nil && rec.JDMax != nil:
		alert.RA = *rec.RAMean
		alert.Dec = *rec.DecMean
		alert.MJD = *rec.JDMax - lasairJDOffset
	default:
		return models.Alert{}, &NormalizeError{
			Broker: b.Name(),
			Err:    errors.New("record has neither objectData nor flat summary fields"),
		}
	}

	if err := alert.Validate(); err != nil {
		return models.Alert{}, &NormalizeError{Broker: b.Name(), Err: err}
	}
	return alert, nil
}
