package models

import (
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RawStatus is the lifecycle code stored by the contract.
type RawStatus uint8

const (
	RawActive RawStatus = iota
	RawSuccessful
	RawFailed
	RawPaidOut
	RawRefunded
)

// Status is the effective status shown to users.
type Status string

const (
	StatusActive     Status = "Active"
	StatusSuccessful Status = "Successful"
	StatusFailed     Status = "Failed"
	StatusPaidOut    Status = "PaidOut"
	StatusRefunded   Status = "Refunded"
)

// AllStatuses lists the statuses in lifecycle order.
var AllStatuses = []Status{StatusActive, StatusSuccessful, StatusFailed, StatusPaidOut, StatusRefunded}

// Campaign is a normalized on-chain campaign. Status is derived from the
// other fields and the clock; see normalize.DeriveStatus.
type Campaign struct {
	ID           uint64
	Creator      common.Address
	Title        string
	Description  string
	ImageURL     string
	FundingGoal  Amount
	AmountRaised Amount
	Deadline     time.Time
	RawStatus    RawStatus
	Status       Status
}

// Progress is the funded percentage. It may exceed 100.
func (c Campaign) Progress() float64 {
	goal := c.FundingGoal.Float64()
	if goal == 0 {
		return 0
	}
	return c.AmountRaised.Float64() / goal * 100
}

// DaysRemaining rounds the time left up to whole days, zero once the deadline passed.
func (c Campaign) DaysRemaining(now time.Time) int {
	left := c.Deadline.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Hours() / 24))
}

func (c Campaign) IsCreator(account common.Address) bool {
	return account != (common.Address{}) && account == c.Creator
}

// CanContribute reports whether contributions are still accepted.
func (c Campaign) CanContribute(now time.Time) bool {
	return c.Status == StatusActive && c.DaysRemaining(now) > 0
}

// CanRelease reports whether account may release the raised funds.
func (c Campaign) CanRelease(account common.Address) bool {
	return c.IsCreator(account) && c.Status == StatusSuccessful
}

// CanRefund reports whether account may claim a refund.
func (c Campaign) CanRefund(account common.Address) bool {
	return account != (common.Address{}) && !c.IsCreator(account) && c.Status == StatusFailed
}

// ShortAddress abbreviates an address as 0x1234...abcd.
func ShortAddress(a common.Address) string {
	h := a.Hex()
	return h[:6] + "..." + h[len(h)-4:]
}

// BackedCampaign pairs a campaign with one backer's accumulated contribution.
type BackedCampaign struct {
	Campaign
	Contribution Amount
}
