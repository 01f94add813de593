// Package ledger binds a ledger channel to the crowdfunding contract.
//
// Bind returns a Gateway exposing typed reads, the three mutating calls,
// confirmation waits and event subscriptions. Reads fail with
// common.ErrReadFailed; writes are classified by Classify so callers see the
// contract's revert reason rather than the JSON-RPC envelope.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/dmitrijs2005/crowdfund/internal/common"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
)

// EventName identifies a contract notification.
type EventName string

const (
	EventCampaignCreated  EventName = "CampaignCreated"
	EventContributionMade EventName = "ContributionMade"
)

// CampaignRecord is a campaign exactly as the contract stores it.
type CampaignRecord struct {
	Creator      ethcommon.Address
	Title        string
	Description  string
	ImageURL     string
	FundingGoal  *big.Int
	AmountRaised *big.Int
	Deadline     *big.Int
	Status       uint8
}

// CreateParams are the createCampaign arguments in ledger units.
type CreateParams struct {
	Title       string
	Description string
	ImageURL    string
	FundingGoal *big.Int
	Deadline    *big.Int
}

// Event is a decoded notification. Fields not carried by the event are zero.
type Event struct {
	Name       EventName
	CampaignID *big.Int
	Account    ethcommon.Address
	Title      string
	Amount     *big.Int
	Log        types.Log
}

// Subscription is an explicit handle for an event watch.
type Subscription interface {
	Unsubscribe()
}

// Gateway is the fixed contract interface the rest of the client uses.
type Gateway interface {
	CampaignCount(ctx context.Context) (uint64, error)
	Campaign(ctx context.Context, id uint64) (CampaignRecord, error)
	Contribution(ctx context.Context, id uint64, backer ethcommon.Address) (*big.Int, error)

	CreateCampaign(ctx context.Context, p CreateParams) (*types.Transaction, error)
	Contribute(ctx context.Context, id uint64, amount *big.Int) (*types.Transaction, error)
	ReleaseOrRefund(ctx context.Context, id uint64) (*types.Transaction, error)
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)

	Subscribe(ctx context.Context, name EventName, onEvent func(Event), onErr func(error)) (Subscription, error)

	Writable() bool
}

const defaultPollInterval = 5 * time.Second

// Contract is the go-ethereum implementation of Gateway.
type Contract struct {
	address      ethcommon.Address
	backend      Backend
	signer       *bind.TransactOpts
	contract     *bind.BoundContract
	pollInterval time.Duration
}

type Option func(*Contract)

// WithPollInterval sets how often events are polled for when the node
// cannot push them (plain HTTP endpoints).
func WithPollInterval(d time.Duration) Option {
	return func(c *Contract) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// Bind attaches ch to the contract at address. It returns nil when there is
// no channel or no address, which callers treat as "unavailable".
func Bind(ch *Channel, address ethcommon.Address, opts ...Option) Gateway {
	if ch == nil || ch.Backend == nil || address == (ethcommon.Address{}) {
		return nil
	}
	c := &Contract{
		address:      address,
		backend:      ch.Backend,
		signer:       ch.Signer,
		contract:     bind.NewBoundContract(address, contractABI, ch.Backend, ch.Backend, ch.Backend),
		pollInterval: defaultPollInterval,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Contract) Address() ethcommon.Address {
	return c.address
}

func (c *Contract) Writable() bool {
	return c.signer != nil
}

func readFailed(what string, err error) error {
	return &common.Error{Kind: common.ErrReadFailed, Message: fmt.Sprintf("%s: %v", what, err), Err: err}
}

func (c *Contract) CampaignCount(ctx context.Context) (uint64, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "campaignCount"); err != nil {
		return 0, readFailed("read campaign count", err)
	}
	count := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	if !count.IsUint64() {
		return 0, readFailed("read campaign count", fmt.Errorf("count %s out of range", count))
	}
	return count.Uint64(), nil
}

func (c *Contract) Campaign(ctx context.Context, id uint64) (CampaignRecord, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "campaigns", new(big.Int).SetUint64(id))
	if err != nil {
		return CampaignRecord{}, readFailed(fmt.Sprintf("read campaign %d", id), err)
	}

	return CampaignRecord{
		Creator:      *abi.ConvertType(out[0], new(ethcommon.Address)).(*ethcommon.Address),
		Title:        *abi.ConvertType(out[1], new(string)).(*string),
		Description:  *abi.ConvertType(out[2], new(string)).(*string),
		ImageURL:     *abi.ConvertType(out[3], new(string)).(*string),
		FundingGoal:  *abi.ConvertType(out[4], new(*big.Int)).(**big.Int),
		AmountRaised: *abi.ConvertType(out[5], new(*big.Int)).(**big.Int),
		Deadline:     *abi.ConvertType(out[6], new(*big.Int)).(**big.Int),
		Status:       *abi.ConvertType(out[7], new(uint8)).(*uint8),
	}, nil
}

func (c *Contract) Contribution(ctx context.Context, id uint64, backer ethcommon.Address) (*big.Int, error) {
	var out []interface{}
	err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "contributions", new(big.Int).SetUint64(id), backer)
	if err != nil {
		return nil, readFailed(fmt.Sprintf("read contribution %d/%s", id, backer.Hex()), err)
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

func (c *Contract) transactOpts(ctx context.Context, value *big.Int) (*bind.TransactOpts, error) {
	if c.signer == nil {
		return nil, common.NewError(common.ErrNotConnected, "wallet not connected: channel is read-only")
	}
	opts := *c.signer
	opts.Context = ctx
	opts.Value = value
	return &opts, nil
}

func (c *Contract) transact(ctx context.Context, value *big.Int, method string, params ...interface{}) (*types.Transaction, error) {
	opts, err := c.transactOpts(ctx, value)
	if err != nil {
		return nil, err
	}
	tx, err := c.contract.Transact(opts, method, params...)
	if err != nil {
		return nil, Classify(err)
	}
	return tx, nil
}

func (c *Contract) CreateCampaign(ctx context.Context, p CreateParams) (*types.Transaction, error) {
	return c.transact(ctx, nil, "createCampaign", p.Title, p.Description, p.ImageURL, p.FundingGoal, p.Deadline)
}

func (c *Contract) Contribute(ctx context.Context, id uint64, amount *big.Int) (*types.Transaction, error) {
	return c.transact(ctx, amount, "contribute", new(big.Int).SetUint64(id))
}

func (c *Contract) ReleaseOrRefund(ctx context.Context, id uint64) (*types.Transaction, error) {
	return c.transact(ctx, nil, "releaseOrRefund", new(big.Int).SetUint64(id))
}

// WaitMined blocks until tx is included. A reverted receipt is reported as
// common.ErrLedgerRejected.
func (c *Contract) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, c.backend, tx)
	if err != nil {
		return nil, Classify(err)
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return receipt, c.revertReason(ctx, tx, receipt)
	}
	return receipt, nil
}

// revertReason replays a failed transaction as a call at its block, since
// receipts do not carry the reason.
func (c *Contract) revertReason(ctx context.Context, tx *types.Transaction, receipt *types.Receipt) error {
	rejected := &common.Error{Kind: common.ErrLedgerRejected, Message: fallbackRevertMessage}

	from, err := c.sender(tx)
	if err != nil {
		return rejected
	}
	msg := ethereum.CallMsg{From: from, To: tx.To(), Gas: tx.Gas(), Value: tx.Value(), Data: tx.Data()}
	if _, err := c.backend.CallContract(ctx, msg, receipt.BlockNumber); err != nil {
		if classified := Classify(err); errors.Is(classified, common.ErrLedgerRejected) {
			return classified
		}
	}
	return rejected
}

func (c *Contract) sender(tx *types.Transaction) (ethcommon.Address, error) {
	if c.signer != nil {
		return c.signer.From, nil
	}
	return types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
}

// Subscribe watches name until Unsubscribe is called or the node ends the
// subscription, in which case onErr receives the reason. Nodes that cannot
// push notifications are polled instead.
func (c *Contract) Subscribe(ctx context.Context, name EventName, onEvent func(Event), onErr func(error)) (Subscription, error) {
	logs, sub, err := c.contract.WatchLogs(&bind.WatchOpts{Context: ctx}, string(name))
	if errors.Is(err, rpc.ErrNotificationsUnsupported) {
		return c.poll(ctx, name, onEvent)
	}
	if err != nil {
		return nil, readFailed(fmt.Sprintf("subscribe %s", name), err)
	}

	s := &subscription{sub: sub, quit: make(chan struct{})}
	go func() {
		for {
			select {
			case l := <-logs:
				onEvent(c.decode(name, l))
			case err, ok := <-sub.Err():
				if ok && err != nil && onErr != nil {
					onErr(err)
				}
				return
			case <-s.quit:
				return
			}
		}
	}()
	return s, nil
}

type campaignCreatedLog struct {
	Id          *big.Int
	Creator     ethcommon.Address
	Title       string
	Description string
	ImageURL    string
	FundingGoal *big.Int
	Deadline    *big.Int
}

type contributionMadeLog struct {
	CampaignId *big.Int
	Backer     ethcommon.Address
	Amount     *big.Int
}

// decode fills what it can. Handlers only need to know that something
// happened, so a payload that does not match the ABI still yields an Event.
func (c *Contract) decode(name EventName, l types.Log) Event {
	ev := Event{Name: name, Log: l}
	switch name {
	case EventCampaignCreated:
		var out campaignCreatedLog
		if err := c.contract.UnpackLog(&out, string(name), l); err == nil {
			ev.CampaignID, ev.Account, ev.Title, ev.Amount = out.Id, out.Creator, out.Title, out.FundingGoal
		}
	case EventContributionMade:
		var out contributionMadeLog
		if err := c.contract.UnpackLog(&out, string(name), l); err == nil {
			ev.CampaignID, ev.Account, ev.Amount = out.CampaignId, out.Backer, out.Amount
		}
	}
	return ev
}

type subscription struct {
	sub  interface{ Unsubscribe() }
	quit chan struct{}
	once sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.quit)
		if s.sub != nil {
			s.sub.Unsubscribe()
		}
	})
}

// poll filters each new block range on a ticker. Node errors are retried on
// the next tick; the range only advances once a filter succeeds.
func (c *Contract) poll(ctx context.Context, name EventName, onEvent func(Event)) (Subscription, error) {
	head, err := c.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, readFailed(fmt.Sprintf("subscribe %s", name), err)
	}
	next := new(big.Int).Add(head.Number, big.NewInt(1))
	query := ethereum.FilterQuery{
		Addresses: []ethcommon.Address{c.address},
		Topics:    [][]ethcommon.Hash{{contractABI.Events[string(name)].ID}},
	}

	s := &subscription{quit: make(chan struct{})}
	go func() {
		ticker := time.NewTicker(c.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
			case <-s.quit:
				return
			case <-ctx.Done():
				return
			}

			head, err := c.backend.HeaderByNumber(ctx, nil)
			if err != nil || head.Number.Cmp(next) < 0 {
				continue
			}
			q := query
			q.FromBlock, q.ToBlock = next, head.Number
			logs, err := c.backend.FilterLogs(ctx, q)
			if err != nil {
				continue
			}
			for _, l := range logs {
				if !l.Removed {
					onEvent(c.decode(name, l))
				}
			}
			next = new(big.Int).Add(head.Number, big.NewInt(1))
		}
	}()
	return s, nil
}
