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
	// DefaultAlerceURL is the ALeRCE ZTF API root.
	DefaultAlerceURL = "https://api.alerce.online/ztf/v1"

	alerceDefaultLimit = 20
)

// Alerce queries the ALeRCE ZTF API. Object id lookups and mjd windows
// go through the objects endpoint; a free-form search is interpreted as
// a classifier class name filter on the same endpoint.
type Alerce struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewAlerce builds an ALeRCE adapter.
func NewAlerce(baseURL, token string, timeout time.Duration) *Alerce {
	if baseURL == "" {
		baseURL = DefaultAlerceURL
	}
	return &Alerce{baseURL: strings.TrimRight(baseURL, "/"), token: token, client: newClient(timeout)}
}

func (b *Alerce) Name() string { return "ALeRCE" }

func (b *Alerce) BuildRequest(ctx context.Context, q Query) (*http.Request, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	params := url.Values{
		"page_size": {strconv.Itoa(q.Limit(alerceDefaultLimit))},
	}
	if b.token != "" {
		params.Set("token", b.token)
	}

	switch {
	case len(q.ObjectIDs) > 0:
		for _, oid := range q.ObjectIDs {
			params.Add("oid", oid)
		}
	case q.MJDMin != nil && q.MJDMax != nil:
		params.Set("firstmjd", strconv.FormatFloat(*q.MJDMin, 'f', -1, 64))
		params.Set("lastmjd", strconv.FormatFloat(*q.MJDMax, 'f', -1, 64))
	default:
		params.Set("classifier", "lc_classifier")
		params.Set("class_name", strings.TrimSpace(q.Search))
	}

	return http.NewRequestWithContext(ctx, http.MethodGet,
		b.baseURL+"/objects/?"+params.Encode(), nil)
}

// Fetch unwraps the paged envelope the objects endpoint answers with.
func (b *Alerce) Fetch(req *http.Request) ([]json.RawMessage, error) {
	var envelope struct {
		Total int               `json:"total"`
		Items []json.RawMessage `json:"items"`
	}
	if err := fetchInto(b.client, b.Name(), req, &envelope); err != nil {
		return nil, err
	}
	return envelope.Items, nil
}

// alerceRecord covers the two known ALeRCE shapes: the detail shape
// with coordinates nested under object plus a probabilities list, and
// the flat list-item shape with mean coordinates at the top level.
type alerceRecord struct {
	OID    string `json:"oid"`
	Object *struct {
		MeanRA  float64 `json:"meanra"`
		MeanDec float64 `json:"meandec"`
		LastMJD float64 `json:"lastmjd"`
	} `json:"object"`
	Probabilities []struct {
		ClassifierName string  `json:"classifier_name"`
		ClassName      string  `json:"class_name"`
		Probability    float64 `json:"probability"`
		Ranking        int     `json:"ranking"`
	} `json:"probabilities"`

	MeanRA      *float64 `json:"meanra"`
	MeanDec     *float64 `json:"meandec"`
	LastMJD     *float64 `json:"lastmjd"`
	Probability *float64 `json:"probability"`
}

// Normalize tries the nested detail shape first and falls back to the
// flat list-item shape only when the object envelope is absent.
func (b *Alerce) Normalize(raw json.RawMessage) (models.Alert, error) {
	var rec alerceRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.Alert{}, &NormalizeError{Broker: b.Name(), Err: err}
	}
	if rec.OID == "" {
		return models.Alert{}, &NormalizeError{Broker: b.Name(), Err: errors.New("missing oid")}
	}

	alert := models.Alert{
		Source:   b.Name(),
		SourceID: rec.OID,
		Name:     rec.OID,
		URL:      fmt.Sprintf("https://alerce.online/object/%s", rec.OID),
		Mag:      models.MagUnknown,
		Score:    1,
	}

	switch {
	case rec.Object != nil:
		alert.RA = rec.Object.MeanRA
		alert.Dec = rec.Object.MeanDec
		alert.MJD = rec.Object.LastMJD
		for _, p := range rec.Probabilities {
			if p.Ranking == 1 {
				alert.Score = p.Probability
				break
			}
		}
	case rec.MeanRA != nil && rec.MeanDec != nil && rec.LastMJD != nil:
		alert.RA = *rec.MeanRA
		alert.Dec = *rec.MeanDec
		alert.MJD = *rec.LastMJD
		if rec.Probability != nil {
			alert.Score = *rec.Probability
		}
	default:
		return models.Alert{}, &NormalizeError{
			Broker: b.Name(),
			Err:    errors.New("record has neither an object envelope nor flat mean coordinates"),
		}
	}

	if err := alert.Validate(); err != nil {
		return models.Alert{}, &NormalizeError{Broker: b.Name(), Err: err}
	}
	return alert, nil
}
