package services

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/dmitrijs2005/crowdfund/internal/client/ledger"
	"github.com/dmitrijs2005/crowdfund/internal/client/models"
	"github.com/dmitrijs2005/crowdfund/internal/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	testNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	alice   = ethcommon.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob     = ethcommon.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func record(title string, creator ethcommon.Address, raised, goal string, deadline time.Time) ledger.CampaignRecord {
	return ledger.CampaignRecord{
		Creator:      creator,
		Title:        title,
		Description:  title + " description",
		ImageURL:     "https://example.com/" + title + ".png",
		FundingGoal:  models.MustParseEther(goal).Wei(),
		AmountRaised: models.MustParseEther(raised).Wei(),
		Deadline:     big.NewInt(deadline.Unix()),
	}
}

type fakeSub struct {
	once sync.Once
	fn   func()
}

func (s *fakeSub) Unsubscribe() { s.once.Do(s.fn) }

type fakeGateway struct {
	mu sync.Mutex

	records       []ledger.CampaignRecord
	countErr      error
	readErr       map[uint64]error
	contributions map[uint64]*big.Int
	contribErr    error

	// block, when set, holds CampaignCount until closed; entered is signalled first.
	block   chan struct{}
	entered chan struct{}

	writable   bool
	submitErr  error
	waitErr    error
	submitted  []string
	countCalls int

	handlers     map[ledger.EventName]func(ledger.Event)
	enders       map[ledger.EventName]func(error)
	active       map[ledger.EventName]*fakeSub
	subscribeErr map[ledger.EventName]int
	subscribes   map[ledger.EventName]int
	unsubscribed int
}

func newFakeGateway(records ...ledger.CampaignRecord) *fakeGateway {
	return &fakeGateway{
		records:       records,
		readErr:       map[uint64]error{},
		contributions: map[uint64]*big.Int{},
		handlers:      map[ledger.EventName]func(ledger.Event){},
		enders:        map[ledger.EventName]func(error){},
		active:        map[ledger.EventName]*fakeSub{},
		subscribeErr:  map[ledger.EventName]int{},
		subscribes:    map[ledger.EventName]int{},
		writable:      true,
	}
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.countCalls
}

func (g *fakeGateway) CampaignCount(ctx context.Context) (uint64, error) {
	g.mu.Lock()
	g.countCalls++
	block, entered := g.block, g.entered
	g.mu.Unlock()

	if block != nil {
		if entered != nil {
			entered <- struct{}{}
		}
		<-block
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.countErr != nil {
		return 0, g.countErr
	}
	return uint64(len(g.records)), nil
}

func (g *fakeGateway) Campaign(ctx context.Context, id uint64) (ledger.CampaignRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.readErr[id]; err != nil {
		return ledger.CampaignRecord{}, err
	}
	if id < 1 || id > uint64(len(g.records)) {
		return ledger.CampaignRecord{FundingGoal: new(big.Int), AmountRaised: new(big.Int), Deadline: new(big.Int)}, nil
	}
	return g.records[id-1], nil
}

func (g *fakeGateway) Contribution(ctx context.Context, id uint64, backer ethcommon.Address) (*big.Int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.contribErr != nil {
		return nil, g.contribErr
	}
	if v, ok := g.contributions[id]; ok {
		return v, nil
	}
	return new(big.Int), nil
}

func (g *fakeGateway) submit(what string) (*types.Transaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submitted = append(g.submitted, what)
	if g.submitErr != nil {
		return nil, g.submitErr
	}
	return types.NewTx(&types.LegacyTx{Nonce: uint64(len(g.submitted)), Gas: 21000, GasPrice: big.NewInt(1)}), nil
}

func (g *fakeGateway) CreateCampaign(ctx context.Context, p ledger.CreateParams) (*types.Transaction, error) {
	return g.submit("create:" + p.Title)
}

func (g *fakeGateway) Contribute(ctx context.Context, id uint64, amount *big.Int) (*types.Transaction, error) {
	return g.submit("contribute:" + models.NewAmount(amount).String())
}

func (g *fakeGateway) ReleaseOrRefund(ctx context.Context, id uint64) (*types.Transaction, error) {
	return g.submit("release")
}

func (g *fakeGateway) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	if g.waitErr != nil {
		return nil, g.waitErr
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: tx.Hash()}, nil
}

func (g *fakeGateway) Subscribe(ctx context.Context, name ledger.EventName, onEvent func(ledger.Event), onErr func(error)) (ledger.Subscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subscribes[name]++
	if g.subscribeErr[name] > 0 {
		g.subscribeErr[name]--
		return nil, errBoom
	}

	sub := &fakeSub{}
	sub.fn = func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.unsubscribed++
		if g.active[name] == sub {
			delete(g.active, name)
			delete(g.handlers, name)
			delete(g.enders, name)
		}
	}
	g.active[name] = sub
	g.handlers[name] = onEvent
	g.enders[name] = onErr
	return sub, nil
}

// end simulates the node dropping the subscription for name.
func (g *fakeGateway) end(name ledger.EventName, err error) bool {
	g.mu.Lock()
	onErr := g.enders[name]
	delete(g.active, name)
	delete(g.handlers, name)
	delete(g.enders, name)
	g.mu.Unlock()
	if onErr == nil {
		return false
	}
	onErr(err)
	return true
}

func (g *fakeGateway) subscribed(name ledger.EventName) (live bool, attempts int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.handlers[name] != nil, g.subscribes[name]
}

func (g *fakeGateway) emit(name ledger.EventName) bool {
	g.mu.Lock()
	h := g.handlers[name]
	g.mu.Unlock()
	if h == nil {
		return false
	}
	h(ledger.Event{Name: name, CampaignID: big.NewInt(1)})
	return true
}

func (g *fakeGateway) Writable() bool { return g.writable }

type fakeWriter struct {
	gw  ledger.Gateway
	gen uint64
}

func (w *fakeWriter) Writer() (ledger.Gateway, uint64, error) {
	if w.gw == nil || !w.gw.Writable() {
		return nil, w.gen, common.NewError(common.ErrNotConnected, "wallet not connected")
	}
	return w.gw, w.gen, nil
}

var errBoom = errors.New("boom")
