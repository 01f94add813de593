package services

import (
	"context"

	"github.com/dmitrijs2005/crowdfund/internal/client/models"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// Dashboard derives per-account views from the synchronizer snapshot.
type Dashboard interface {
	Created(creator ethcommon.Address) []models.Campaign
	Backed(ctx context.Context, backer ethcommon.Address) ([]models.BackedCampaign, error)
}

type dashboard struct {
	sync        Synchronizer
	concurrency int
}

func NewDashboard(sync Synchronizer, concurrency int) Dashboard {
	if concurrency <= 0 {
		concurrency = defaultReadConcurrency
	}
	return &dashboard{sync: sync, concurrency: concurrency}
}

func (d *dashboard) Created(creator ethcommon.Address) []models.Campaign {
	var out []models.Campaign
	for _, c := range d.sync.All() {
		if c.IsCreator(creator) {
			out = append(out, c)
		}
	}
	return out
}

// Backed looks up backer's contribution to every known campaign and keeps
// the ones with a positive amount, in snapshot order.
func (d *dashboard) Backed(ctx context.Context, backer ethcommon.Address) ([]models.BackedCampaign, error) {
	all := d.sync.All()
	amounts := make([]models.Amount, len(all))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, c := range all {
		g.Go(func() error {
			amounts[i] = d.sync.UserContribution(gctx, c.ID, backer)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []models.BackedCampaign
	for i, c := range all {
		if amounts[i].Sign() > 0 {
			out = append(out, models.BackedCampaign{Campaign: c, Contribution: amounts[i]})
		}
	}
	return out, nil
}
