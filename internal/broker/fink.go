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
	// DefaultFinkURL is the Fink science portal API root.
	DefaultFinkURL = "https://api.fink-portal.org/api/v1"

	// Fink returns full Julian dates; proper MJD conversion.
	finkJDOffset = 2400000.5

	finkDefaultLimit = 20
)

// Fink queries the Fink alert broker REST API. All three strategies
// are supported: object id lookup through the objects endpoint, a
// detection-time window through the latests endpoint, and a free-form
// class-name search through the same endpoint.
type Fink struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewFink builds a Fink adapter. Fink is tokenless for public queries;
// token may be empty and is forwarded when set.
func NewFink(baseURL, token string, timeout time.Duration) *Fink {
	if baseURL == "" {
		baseURL = DefaultFinkURL
	}
	return &Fink{baseURL: strings.TrimRight(baseURL, "/"), token: token, client: newClient(timeout)}
}

func (b *Fink) Name() string { return "Fink" }

func (b *Fink) BuildRequest(ctx context.Context, q Query) (*http.Request, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{"output-format": {"json"}}
	if b.token != "" {
		params.Set("token", b.token)
	}

	var endpoint string
	switch {
	case len(q.ObjectIDs) > 0:
		endpoint = "/objects"
		params.Set("objectId", strings.Join(q.ObjectIDs, ","))
		params.Set("columns", "i:objectId,i:ra,i:dec,i:jd,i:magpsf,d:classification")

	case q.MJDMin != nil && q.MJDMax != nil:
		endpoint = "/latests"
		params.Set("class", "allclasses")
		params.Set("startdate", models.TimeFromMJD(*q.MJDMin).Format(time.RFC3339))
		params.Set("stopdate", models.TimeFromMJD(*q.MJDMax).Format(time.RFC3339))
		params.Set("n", strconv.Itoa(q.Limit(finkDefaultLimit)))

	default:
		endpoint = "/latests"
		params.Set("class", strings.TrimSpace(q.Search))
		params.Set("n", strconv.Itoa(q.Limit(finkDefaultLimit)))
	}

	return http.NewRequestWithContext(ctx, http.MethodGet,
		b.baseURL+endpoint+"?"+params.Encode(), nil)
}

// Fetch performs the call; Fink answers with a JSON array of alerts.
func (b *Fink) Fetch(req *http.Request) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := fetchInto(b.client, b.Name(), req, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// finkRecord covers the two known Fink shapes: the portal's column
// output with ZTF "i:"/"d:" prefixes, and the bare summary shape some
// endpoints return without prefixes.
type finkRecord struct {
	ObjectID string   `json:"i:objectId"`
	RA       *float64 `json:"i:ra"`
	Dec      *float64 `json:"i:dec"`
	JD       *float64 `json:"i:jd"`
	MagPSF   *float64 `json:"i:magpsf"`
	Score    *float64 `json:"d:rf_snia_vs_nonia"`

	BareObjectID string   `json:"objectId"`
	BareRA       *float64 `json:"ra"`
	BareDec      *float64 `json:"dec"`
	BareJD       *float64 `json:"jd"`
}

// Normalize tries the prefixed column shape first, then the bare shape.
func (b *Fink) Normalize(raw json.RawMessage) (models.Alert, error) {
	var rec finkRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.Alert{}, &NormalizeError{Broker: b.Name(), Err: err}
	}

	alert := models.Alert{Source: b.Name(), Mag: models.MagUnknown, Score: 1}

	switch {
	case rec.ObjectID != "" && rec.RA != nil && rec.Dec != nil && rec.JD != nil:
		alert.SourceID = rec.ObjectID
		alert.RA = *rec.RA
		alert.Dec = *rec.Dec
		alert.MJD = *rec.JD - finkJDOffset
		if rec.MagPSF != nil {
			alert.Mag = *rec.MagPSF
		}
		if rec.Score != nil {
			alert.Score = *rec.Score
		}
	case rec.BareObjectID != "" && rec.BareRA != nil && rec.BareDec != nil && rec.BareJD != nil:
		alert.SourceID = rec.BareObjectID
		alert.RA = *rec.BareRA
		alert.Dec = *rec.BareDec
		alert.MJD = *rec.BareJD - finkJDOffset
	default:
		return models.Alert{}, &NormalizeError{
			Broker: b.Name(),
			Err:    errors.New("record matches neither the column shape nor the bare summary shape"),
		}
	}

	alert.Name = alert.SourceID
	alert.URL = fmt.Sprintf("https://fink-portal.org/%s", alert.SourceID)

	if err := alert.Validate(); err != nil {
		return models.Alert{}, &NormalizeError{Broker: b.Name(), Err: err}
	}
	return alert, nil
}
