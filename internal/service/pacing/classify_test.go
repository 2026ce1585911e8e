package pacing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"BarSync/internal/domain/models"
)

var clock = time.Date(2024, time.March, 12, 12, 0, 0, 0, time.UTC)

func TestClassifyStaticCodes(t *testing.T) {
	cases := []struct {
		code      int
		kind      models.ErrorKind
		retryable bool
	}{
		{1100, models.ErrKindConnectionLost, true},
		{2103, models.ErrKindConnectionLost, true},
		{1101, models.ErrKindInformational, false},
		{2158, models.ErrKindInformational, false},
		{200, models.ErrKindInvalidRequest, false},
		{321, models.ErrKindInvalidRequest, false},
		{354, models.ErrKindPermissionDenied, false},
		{10167, models.ErrKindPermissionDenied, false},
		{366, models.ErrKindNoDataAvailable, false},
		{99999, models.ErrKindUnknown, false},
	}
	for _, tc := range cases {
		v := Classify(tc.code, "", RequestContext{}, clock, 0)
		assert.Equal(t, tc.kind, v.Kind, "code %d", tc.code)
		assert.Equal(t, tc.retryable, v.Retryable, "code %d", tc.code)
	}
}

func TestClassifyAmbiguousFutureDate(t *testing.T) {
	reqCtx := RequestContext{
		Start: clock.Add(-time.Hour),
		End:   clock.Add(time.Hour),
	}
	v := Classify(162, "historical market data service error", reqCtx, clock, 0)
	assert.Equal(t, models.ErrKindFutureDateRequest, v.Kind)
	assert.False(t, v.Retryable)
}

func TestClassifyAmbiguousLookbackLimit(t *testing.T) {
	reqCtx := RequestContext{
		Start: clock.AddDate(-6, 0, 0),
		End:   clock.AddDate(-6, 0, 1),
	}
	v := Classify(162, "historical market data service error", reqCtx, clock, 5*365*24*time.Hour)
	assert.Equal(t, models.ErrKindHistoricalDataLimit, v.Kind)
}

func TestClassifyAmbiguousNoData(t *testing.T) {
	reqCtx := RequestContext{
		Start: clock.Add(-2 * time.Hour),
		End:   clock.Add(-time.Hour),
	}
	v := Classify(162, "HMDS query returned no data", reqCtx, clock, 0)
	assert.Equal(t, models.ErrKindNoDataAvailable, v.Kind)
	assert.False(t, v.Retryable)
}

func TestClassifyAmbiguousDefaultsToPacing(t *testing.T) {
	reqCtx := RequestContext{
		Start: clock.Add(-2 * time.Hour),
		End:   clock.Add(-time.Hour),
	}
	v := Classify(162, "historical market data service error", reqCtx, clock, 0)
	assert.Equal(t, models.ErrKindPacingViolation, v.Kind)
	assert.True(t, v.Retryable)
	assert.Equal(t, pacingViolationWait, v.Wait)
}
