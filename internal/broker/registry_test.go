package broker_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nightwatch-obs/alert-radar/internal/broker"
	"github.com/nightwatch-obs/alert-radar/internal/models"
)

func TestRegistryGet(t *testing.T) {
	reg := broker.NewRegistry(nil,
		broker.NewLasair("", "", time.Second),
		broker.NewFink("", "", time.Second),
	)

	b, err := reg.Get("Lasair")
	require.NoError(t, err)
	require.Equal(t, "Lasair", b.Name())

	_, err = reg.Get("MARS")
	require.ErrorIs(t, err, broker.ErrUnknownBroker)

	require.Equal(t, []string{"Fink", "Lasair"}, reg.Names())
}

func TestListAlertsUnknownBroker(t *testing.T) {
	reg := broker.NewRegistry(nil)

	var errs []error
	for _, err := range reg.ListAlerts(context.Background(), "nope", broker.Query{Search: "x"}) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	require.ErrorIs(t, errs[0], broker.ErrUnknownBroker)
}

func TestListAlertsIsolatesPerItemFailures(t *testing.T) {
	// Three flat Lasair rows; the middle one is corrupt. The other two
	// must still come through.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"objectId": "ZTF21aaaaaaa", "ramean": 10, "decmean": 5, "jdmax": 2459000},
			{"objectId": "ZTF21bbbbbbb"},
			{"objectId": "ZTF21ccccccc", "ramean": 20, "decmean": -5, "jdmax": 2459001}
		]`))
	}))
	defer srv.Close()

	reg := broker.NewRegistry(nil, broker.NewLasair(srv.URL, "", time.Second))

	var alerts []models.Alert
	var errs []error
	for alert, err := range reg.ListAlerts(context.Background(), "Lasair", broker.Query{ObjectIDs: []string{"ZTF21aaaaaaa"}}) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		alerts = append(alerts, alert)
	}

	require.Len(t, alerts, 2)
	require.Len(t, errs, 1)
	var nErr *broker.NormalizeError
	require.ErrorAs(t, errs[0], &nErr)
	require.Equal(t, "ZTF21aaaaaaa", alerts[0].SourceID)
	require.Equal(t, "ZTF21ccccccc", alerts[1].SourceID)
}

func TestListAlertsLazyAndSingleUse(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`[{"objectId": "ZTF21aaaaaaa", "ramean": 10, "decmean": 5, "jdmax": 2459000}]`))
	}))
	defer srv.Close()

	reg := broker.NewRegistry(nil, broker.NewLasair(srv.URL, "", time.Second))
	seq := reg.ListAlerts(context.Background(), "Lasair", broker.Query{ObjectIDs: []string{"ZTF21aaaaaaa"}})

	// Nothing fetched until the sequence is pulled.
	require.Zero(t, calls.Load())

	count := 0
	for _, err := range seq {
		require.NoError(t, err)
		count++
	}
	require.Equal(t, 1, count)
	require.Equal(t, int32(1), calls.Load())

	// A consumed sequence yields nothing and does not re-fetch.
	for range seq {
		t.Fatal("consumed sequence must not yield")
	}
	require.Equal(t, int32(1), calls.Load())
}

func TestListAlertsPropagatesRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	reg := broker.NewRegistry(nil, broker.NewLasair(srv.URL, "", time.Second))

	var errs []error
	for _, err := range reg.ListAlerts(context.Background(), "Lasair", broker.Query{ObjectIDs: []string{"x"}}) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	var rErr *broker.RemoteError
	require.ErrorAs(t, errs[0], &rErr)
	require.Equal(t, http.StatusServiceUnavailable, rErr.Status)
}

func TestQueryValidate(t *testing.T) {
	tests := []struct {
		name  string
		q     broker.Query
		valid bool
	}{
		{name: "empty", q: broker.Query{}, valid: false},
		{name: "ids", q: broker.Query{ObjectIDs: []string{"a"}}, valid: true},
		{name: "full window", q: broker.Query{MJDMin: mjd(1), MJDMax: mjd(2)}, valid: true},
		{name: "half window", q: broker.Query{MJDMax: mjd(2)}, valid: false},
		{name: "search", q: broker.Query{Search: "SN"}, valid: true},
		{name: "blank search", q: broker.Query{Search: "  "}, valid: false},
		{name: "only a cap", q: broker.Query{MaxAlerts: 10}, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if tt.valid {
				require.NoError(t, err)
			} else {
				var vErr *broker.ValidationError
				require.ErrorAs(t, err, &vErr)
			}
		})
	}
}
