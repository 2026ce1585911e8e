package usecase

import (
	"fmt"
	"time"

	"BarSync/internal/domain/models"
	domrepo "BarSync/internal/domain/repository"
	"BarSync/pkg/util"
)

// ParamsFromRequest converts a transport-level sync request into validated
// sync parameters. An empty "to" means now; the range is aligned down to bar
// boundaries.
func ParamsFromRequest(req *models.SyncRequest) (SyncParams, error) {
	var p SyncParams
	if req == nil {
		return p, fmt.Errorf("%w: nil request", models.ErrValidation)
	}

	from, ok := util.ParseTime(req.From)
	if !ok {
		return p, fmt.Errorf("%w: from %q", models.ErrValidation, req.From)
	}
	to := util.ParseTimeDefault(req.To, time.Now().UTC())
	from, to = util.AlignFromTo(from.UTC(), to.UTC(), req.Granularity)

	p = SyncParams{
		Symbol:      req.Symbol,
		Granularity: domrepo.NormalizeGranularity(req.Granularity),
		Range:       models.TimeRange{Start: from, End: to},
		Mode:        models.NormalizeLoadingMode(req.Mode),
	}
	return p, nil
}
