package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nightwatch-obs/alert-radar/internal/models"
)

func TestAlertValidate(t *testing.T) {
	valid := models.Alert{Source: "Lasair", SourceID: "ZTF21aaabbbb", RA: 120.5, Dec: -30.25, MJD: 59000}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		alert models.Alert
	}{
		{name: "empty source id", alert: models.Alert{RA: 10, Dec: 10}},
		{name: "ra too large", alert: models.Alert{SourceID: "x", RA: 360, Dec: 0}},
		{name: "ra negative", alert: models.Alert{SourceID: "x", RA: -0.1, Dec: 0}},
		{name: "dec too large", alert: models.Alert{SourceID: "x", RA: 10, Dec: 90.1}},
		{name: "dec too small", alert: models.Alert{SourceID: "x", RA: 10, Dec: -90.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Error(t, tt.alert.Validate())
		})
	}
}

func TestAlertDocID(t *testing.T) {
	a := models.Alert{Source: "Fink", SourceID: "ZTF21aaabbbb"}
	require.Equal(t, "Fink:ZTF21aaabbbb", a.DocID())
}

func TestMJDRoundTrip(t *testing.T) {
	// 1970-01-01 is MJD 40587 by definition.
	require.InDelta(t, 40587, models.MJDFromTime(time.Unix(0, 0)), 1e-9)

	ts := time.Date(2024, 2, 3, 12, 0, 0, 0, time.UTC)
	mjd := models.MJDFromTime(ts)
	back := models.TimeFromMJD(mjd)
	require.WithinDuration(t, ts, back, time.Millisecond)
}
