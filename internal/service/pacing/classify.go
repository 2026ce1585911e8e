package pacing

import (
	"strings"
	"time"

	"BarSync/internal/domain/models"
)

// RequestContext carries the parameters of the request that produced an
// error. The provider reuses one code for several unrelated conditions, so
// classification cannot look at the code alone.
type RequestContext struct {
	Key   string
	Start time.Time
	End   time.Time
}

// The provider's ambiguous catch-all for historical data problems: pacing
// violations, out-of-range requests and empty results all arrive under it.
const ambiguousHistoricalCode = 162

// Suggested wait after a confirmed pacing rejection.
const pacingViolationWait = 60 * time.Second

// Message fragments the provider uses for genuinely empty result sets.
var noDataPhrases = []string{
	"no data",
	"no historical data",
	"query returned no data",
	"no market data permissions", // empty permissioned range, not an auth failure
}

// staticVerdicts maps unambiguous provider codes to their handling.
var staticVerdicts = map[int]models.ErrorVerdict{
	// Connectivity: retry after a short wait.
	1100: {Kind: models.ErrKindConnectionLost, Retryable: true, Wait: 15 * time.Second},
	1300: {Kind: models.ErrKindConnectionLost, Retryable: true, Wait: 15 * time.Second},
	2103: {Kind: models.ErrKindConnectionLost, Retryable: true, Wait: 10 * time.Second},
	2105: {Kind: models.ErrKindConnectionLost, Retryable: true, Wait: 10 * time.Second},
	2110: {Kind: models.ErrKindConnectionLost, Retryable: true, Wait: 10 * time.Second},

	// Informational notices: nothing to do.
	1101: {Kind: models.ErrKindInformational},
	1102: {Kind: models.ErrKindInformational},
	2104: {Kind: models.ErrKindInformational},
	2106: {Kind: models.ErrKindInformational},
	2158: {Kind: models.ErrKindInformational},

	// Request or permission problems: retrying cannot help.
	200:   {Kind: models.ErrKindInvalidRequest},
	321:   {Kind: models.ErrKindInvalidRequest},
	354:   {Kind: models.ErrKindPermissionDenied},
	366:   {Kind: models.ErrKindNoDataAvailable},
	10167: {Kind: models.ErrKindPermissionDenied},
}

// Classify turns a provider error into a tagged verdict. Pure function; the
// static table and the context-sensitive overrides for the ambiguous code
// are independently testable layers.
func Classify(code int, message string, reqCtx RequestContext, now time.Time, maxLookback time.Duration) models.ErrorVerdict {
	if code != ambiguousHistoricalCode {
		if v, ok := staticVerdicts[code]; ok {
			return v
		}
		return models.ErrorVerdict{Kind: models.ErrKindUnknown}
	}

	// Ambiguous code: disambiguate from the request shape first, then the
	// message text, and only then assume pacing.
	if reqCtx.End.After(now) {
		return models.ErrorVerdict{Kind: models.ErrKindFutureDateRequest}
	}
	if maxLookback > 0 && reqCtx.Start.Before(now.Add(-maxLookback)) {
		return models.ErrorVerdict{Kind: models.ErrKindHistoricalDataLimit}
	}
	lower := strings.ToLower(message)
	for _, phrase := range noDataPhrases {
		if strings.Contains(lower, phrase) {
			return models.ErrorVerdict{Kind: models.ErrKindNoDataAvailable}
		}
	}
	return models.ErrorVerdict{
		Kind:      models.ErrKindPacingViolation,
		Retryable: true,
		Wait:      pacingViolationWait,
	}
}
