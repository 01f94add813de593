// Package normalize turns raw contract records into domain campaigns.
//
// Everything here is a pure function of its inputs, including the clock, so
// the same record normalizes to the same campaign every time.
package normalize

import (
	"math"
	"math/big"
	"time"

	"github.com/dmitrijs2005/crowdfund/internal/client/ledger"
	"github.com/dmitrijs2005/crowdfund/internal/client/models"
)

// DeriveStatus computes the effective status. Terminal raw statuses win;
// otherwise a campaign past its deadline is Successful when it reached the
// goal (inclusive) and Failed when it did not.
func DeriveStatus(raw models.RawStatus, deadline time.Time, raised, goal models.Amount, now time.Time) models.Status {
	switch raw {
	case models.RawPaidOut:
		return models.StatusPaidOut
	case models.RawRefunded:
		return models.StatusRefunded
	}

	if !now.Before(deadline) {
		if raised.Cmp(goal) >= 0 {
			return models.StatusSuccessful
		}
		return models.StatusFailed
	}
	return models.StatusActive
}

// Normalize converts a contract record into a Campaign with its status
// derived at now.
func Normalize(raw ledger.CampaignRecord, id uint64, now time.Time) models.Campaign {
	c := models.Campaign{
		ID:           id,
		Creator:      raw.Creator,
		Title:        raw.Title,
		Description:  raw.Description,
		ImageURL:     raw.ImageURL,
		FundingGoal:  models.NewAmount(raw.FundingGoal),
		AmountRaised: models.NewAmount(raw.AmountRaised),
		Deadline:     UnixTime(raw.Deadline),
		RawStatus:    models.RawStatus(raw.Status),
	}
	c.Status = DeriveStatus(c.RawStatus, c.Deadline, c.AmountRaised, c.FundingGoal, now)
	return c
}

// Refresh re-derives the status of an already normalized campaign.
func Refresh(c models.Campaign, now time.Time) models.Campaign {
	c.Status = DeriveStatus(c.RawStatus, c.Deadline, c.AmountRaised, c.FundingGoal, now)
	return c
}

// UnixTime converts a contract timestamp in seconds. Values beyond int64
// saturate, so a nonsense deadline reads as "never".
func UnixTime(sec *big.Int) time.Time {
	switch {
	case sec == nil || sec.Sign() <= 0:
		return time.Unix(0, 0).UTC()
	case !sec.IsInt64():
		return time.Unix(math.MaxInt64/2, 0).UTC()
	}
	return time.Unix(sec.Int64(), 0).UTC()
}

// UnixSeconds is the inverse of UnixTime for values the contract accepts.
func UnixSeconds(t time.Time) *big.Int {
	return big.NewInt(t.Unix())
}
