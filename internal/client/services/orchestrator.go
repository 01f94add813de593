package services

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/crowdfund/internal/client/ledger"
	"github.com/dmitrijs2005/crowdfund/internal/client/models"
	"github.com/dmitrijs2005/crowdfund/internal/client/normalize"
	"github.com/dmitrijs2005/crowdfund/internal/common"
	"github.com/dmitrijs2005/crowdfund/internal/logging"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
)

const (
	ActionCreate     = "create"
	ActionContribute = "contribute"
	ActionRelease    = "release-or-refund"
)

// WriterSource hands out the current read-write gateway.
// *session.Manager implements it.
type WriterSource interface {
	Writer() (ledger.Gateway, uint64, error)
}

// CampaignDraft is the user's input for a new campaign.
type CampaignDraft struct {
	Title       string
	Description string
	ImageURL    string
	FundingGoal models.Amount
	Deadline    time.Time
}

// Result identifies a finished invocation.
type Result struct {
	InvocationID string
	TxHash       string
}

// Rules are the client-side checks applied before anything is submitted.
type Rules struct {
	MinFundingGoal  models.Amount
	MinDeadlineLead time.Duration
}

func DefaultRules() Rules {
	return Rules{MinFundingGoal: models.MustParseEther("0.01"), MinDeadlineLead: 5 * time.Minute}
}

// Orchestrator runs the mutating contract calls: it checks the session,
// validates, submits, waits for inclusion and refreshes the synchronizer
// before reporting success. Nothing is retried.
type Orchestrator interface {
	CreateCampaign(ctx context.Context, d CampaignDraft) (Result, error)
	Contribute(ctx context.Context, id uint64, amount models.Amount) (Result, error)
	ReleaseOrRefund(ctx context.Context, id uint64) (Result, error)

	Status(invocationID string) (ActionStatus, bool)
	CampaignStatus(id uint64) (ActionStatus, bool)
}

type orchestrator struct {
	writers WriterSource
	sync    Synchronizer
	rules   Rules
	log     logging.Logger
	now     func() time.Time
	status  *tracker
}

func NewOrchestrator(writers WriterSource, sync Synchronizer, rules Rules, log logging.Logger) Orchestrator {
	return newOrchestrator(writers, sync, rules, log, time.Now)
}

func newOrchestrator(writers WriterSource, sync Synchronizer, rules Rules, log logging.Logger, now func() time.Time) *orchestrator {
	return &orchestrator{writers: writers, sync: sync, rules: rules, log: log, now: now, status: newTracker(now)}
}

func (o *orchestrator) Status(invocationID string) (ActionStatus, bool) {
	return o.status.get(invocationID)
}

func (o *orchestrator) CampaignStatus(id uint64) (ActionStatus, bool) {
	return o.status.forCampaign(id)
}

func (o *orchestrator) CreateCampaign(ctx context.Context, d CampaignDraft) (Result, error) {
	return o.run(ctx, ActionCreate, 0,
		func() error { return o.validateDraft(d) },
		func(gw ledger.Gateway) (*types.Transaction, error) {
			return gw.CreateCampaign(ctx, ledger.CreateParams{
				Title:       strings.TrimSpace(d.Title),
				Description: strings.TrimSpace(d.Description),
				ImageURL:    strings.TrimSpace(d.ImageURL),
				FundingGoal: d.FundingGoal.Wei(),
				Deadline:    normalize.UnixSeconds(d.Deadline),
			})
		})
}

func (o *orchestrator) Contribute(ctx context.Context, id uint64, amount models.Amount) (Result, error) {
	return o.run(ctx, ActionContribute, id,
		func() error {
			if err := validateID(id); err != nil {
				return err
			}
			if amount.Sign() <= 0 {
				return common.Validation("contribution must be greater than zero")
			}
			return nil
		},
		func(gw ledger.Gateway) (*types.Transaction, error) {
			return gw.Contribute(ctx, id, amount.Wei())
		})
}

func (o *orchestrator) ReleaseOrRefund(ctx context.Context, id uint64) (Result, error) {
	return o.run(ctx, ActionRelease, id,
		func() error { return validateID(id) },
		func(gw ledger.Gateway) (*types.Transaction, error) {
			return gw.ReleaseOrRefund(ctx, id)
		})
}

func validateID(id uint64) error {
	if id < 1 {
		return common.Validation("campaign id must be at least 1")
	}
	return nil
}

func (o *orchestrator) validateDraft(d CampaignDraft) error {
	switch {
	case strings.TrimSpace(d.Title) == "":
		return common.Validation("title is required")
	case strings.TrimSpace(d.Description) == "":
		return common.Validation("description is required")
	case strings.TrimSpace(d.ImageURL) == "":
		return common.Validation("image URL is required")
	}

	u, err := url.Parse(strings.TrimSpace(d.ImageURL))
	if err != nil || !u.IsAbs() {
		return common.Validation("image URL must be an absolute URI")
	}
	if d.FundingGoal.Cmp(o.rules.MinFundingGoal) < 0 {
		return common.NewError(common.ErrValidationFailed, "funding goal must be at least %s ETH", o.rules.MinFundingGoal)
	}
	if earliest := o.now().Add(o.rules.MinDeadlineLead); d.Deadline.Before(earliest) {
		return common.NewError(common.ErrValidationFailed, "deadline must be at least %s from now", o.rules.MinDeadlineLead)
	}
	return nil
}

func (o *orchestrator) run(ctx context.Context, action string, campaignID uint64,
	validate func() error, submit func(ledger.Gateway) (*types.Transaction, error)) (Result, error) {

	res := Result{InvocationID: uuid.NewString()}
	o.status.start(res.InvocationID, action, campaignID)

	err := o.execute(ctx, &res, action, campaignID, validate, submit)
	o.status.finish(res.InvocationID, err)
	return res, err
}

func (o *orchestrator) execute(ctx context.Context, res *Result, action string, campaignID uint64,
	validate func() error, submit func(ledger.Gateway) (*types.Transaction, error)) error {

	gw, gen, err := o.writers.Writer()
	if err != nil {
		return err
	}
	if err := validate(); err != nil {
		return err
	}

	log := o.log.With("action", action, "invocation", res.InvocationID, "generation", gen)
	if campaignID != 0 {
		log = log.With("campaign_id", campaignID)
	}

	tx, err := submit(gw)
	if err != nil {
		err = ledger.Classify(err)
		log.Warn(ctx, "transaction not submitted", "err", err)
		return err
	}
	res.TxHash = tx.Hash().Hex()
	o.status.submitted(res.InvocationID, tx.Hash())
	log.Info(ctx, "transaction submitted", "tx", res.TxHash)

	if _, err := gw.WaitMined(ctx, tx); err != nil {
		err = ledger.Classify(err)
		log.Warn(ctx, "transaction failed", "tx", res.TxHash, "err", err)
		return err
	}

	if err := o.sync.RefreshAll(ctx); err != nil {
		log.Warn(ctx, "refresh after transaction failed", "err", err)
	}
	log.Info(ctx, "transaction confirmed", "tx", res.TxHash)
	return nil
}
