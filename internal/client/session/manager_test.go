package session

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/dmitrijs2005/crowdfund/internal/client/ledger"
	"github.com/dmitrijs2005/crowdfund/internal/client/models"
	"github.com/dmitrijs2005/crowdfund/internal/client/wallet"
	"github.com/dmitrijs2005/crowdfund/internal/common"
	"github.com/dmitrijs2005/crowdfund/internal/logging"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = ethcommon.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	bob   = ethcommon.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

type nopBackend struct{ ledger.Backend }

type fakeGateway struct {
	ledger.Gateway
	writable bool
}

func (g *fakeGateway) Writable() bool { return g.writable }

type fakeProvider struct {
	mu sync.Mutex

	requested  []ethcommon.Address
	requestErr error
	authorized []ethcommon.Address
	chainID    int64
	balance    *big.Int
	balanceErr error

	handlers     []wallet.Handlers
	unsubscribed int
}

func (p *fakeProvider) RequestAccounts(ctx context.Context) ([]ethcommon.Address, error) {
	if p.requestErr != nil {
		return nil, p.requestErr
	}
	p.authorized = p.requested
	return p.requested, nil
}

func (p *fakeProvider) Accounts(ctx context.Context) ([]ethcommon.Address, error) {
	return p.authorized, nil
}

func (p *fakeProvider) Network(ctx context.Context) (*big.Int, error) {
	return big.NewInt(p.chainID), nil
}

func (p *fakeProvider) Balance(ctx context.Context, account ethcommon.Address) (*big.Int, error) {
	if p.balanceErr != nil {
		return nil, p.balanceErr
	}
	return p.balance, nil
}

func (p *fakeProvider) Channel(ctx context.Context, account *ethcommon.Address) (*ledger.Channel, error) {
	ch := &ledger.Channel{Backend: nopBackend{}}
	if account != nil {
		ch.Signer = &bind.TransactOpts{From: *account}
	}
	return ch, nil
}

type fakeSub struct {
	p    *fakeProvider
	once sync.Once
}

func (s *fakeSub) Unsubscribe() {
	s.once.Do(func() {
		s.p.mu.Lock()
		s.p.unsubscribed++
		s.p.handlers = nil
		s.p.mu.Unlock()
	})
}

func (p *fakeProvider) Subscribe(h wallet.Handlers) wallet.Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, h)
	return &fakeSub{p: p}
}

func (p *fakeProvider) current() []wallet.Handlers {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]wallet.Handlers(nil), p.handlers...)
}

func (p *fakeProvider) accountsChanged(accts ...ethcommon.Address) {
	for _, h := range p.current() {
		h.AccountsChanged(accts)
	}
}

func (p *fakeProvider) networkChanged(id int64) {
	p.chainID = id
	for _, h := range p.current() {
		h.NetworkChanged(big.NewInt(id))
	}
}

func newManager(p *fakeProvider) (*Manager, *[]Change) {
	m := NewManager(p, func(ch *ledger.Channel) ledger.Gateway {
		return &fakeGateway{writable: ch.Signer != nil}
	}, logging.Discard())
	var changes []Change
	m.OnChange(func(c Change) { changes = append(changes, c) })
	return m, &changes
}

func TestManager_StartsAbsent(t *testing.T) {
	m, _ := newManager(&fakeProvider{})

	assert.True(t, m.Session().Absent())
	assert.Nil(t, m.Gateway())
	_, _, err := m.Writer()
	require.ErrorIs(t, err, common.ErrNotConnected)
}

func TestConnect_PopulatesSession(t *testing.T) {
	p := &fakeProvider{requested: []ethcommon.Address{alice}, chainID: 11155111, balance: models.Ether(2).Wei()}
	m, changes := newManager(p)

	require.NoError(t, m.Connect(context.Background()))

	s := m.Session()
	require.NotNil(t, s.Account)
	assert.Equal(t, alice, *s.Account)
	assert.Equal(t, int64(11155111), s.NetworkID.Int64())
	assert.Equal(t, "2", s.Balance.String())
	assert.Equal(t, models.ChannelReadWrite, s.Channel)
	assert.True(t, s.Connected())

	gw, gen, err := m.Writer()
	require.NoError(t, err)
	assert.NotNil(t, gw)
	assert.Equal(t, uint64(1), gen)

	require.Len(t, *changes, 1)
	assert.Equal(t, uint64(1), (*changes)[0].Generation)
	assert.False(t, (*changes)[0].Reset)
}

func TestSession_SnapshotIsIndependent(t *testing.T) {
	p := &fakeProvider{requested: []ethcommon.Address{alice}, chainID: 11155111, balance: models.Ether(2).Wei()}
	m, changes := newManager(p)
	require.NoError(t, m.Connect(context.Background()))

	s := m.Session()
	s.NetworkID.SetInt64(1)
	*s.Account = bob
	*s.Balance = models.Ether(9)

	(*changes)[0].Session.NetworkID.SetInt64(5)

	again := m.Session()
	assert.Equal(t, int64(11155111), again.NetworkID.Int64())
	assert.Equal(t, alice, *again.Account)
	assert.Equal(t, "2", again.Balance.String())
}

func TestConnect_RejectedLeavesSessionAbsent(t *testing.T) {
	p := &fakeProvider{requestErr: common.NewError(common.ErrUserRejected, "declined")}
	m, changes := newManager(p)

	err := m.Connect(context.Background())

	require.ErrorIs(t, err, common.ErrUserRejected)
	assert.True(t, m.Session().Absent())
	assert.Empty(t, *changes)
}

func TestConnect_BalanceFailureIsNotFatal(t *testing.T) {
	p := &fakeProvider{requested: []ethcommon.Address{alice}, chainID: 1, balanceErr: errors.New("timeout")}
	m, _ := newManager(p)

	require.NoError(t, m.Connect(context.Background()))

	assert.Nil(t, m.Session().Balance)
	assert.True(t, m.Session().Connected())
}

func TestRestoreIfAuthorized_SignalsReadyOnce(t *testing.T) {
	p := &fakeProvider{chainID: 1}
	m, changes := newManager(p)

	require.NoError(t, m.RestoreIfAuthorized(context.Background()))
	require.NoError(t, m.RestoreIfAuthorized(context.Background()))

	select {
	case <-m.Ready():
	default:
		t.Fatal("ready not signalled")
	}
	assert.True(t, m.Session().Absent())
	assert.Empty(t, *changes)
}

func TestRestoreIfAuthorized_Silent(t *testing.T) {
	p := &fakeProvider{authorized: []ethcommon.Address{bob}, chainID: 1, balance: big.NewInt(0)}
	m, _ := newManager(p)

	require.NoError(t, m.RestoreIfAuthorized(context.Background()))

	<-m.Ready()
	require.NotNil(t, m.Session().Account)
	assert.Equal(t, bob, *m.Session().Account)
}

func TestDisconnect_ClearsAndIsIdempotent(t *testing.T) {
	p := &fakeProvider{requested: []ethcommon.Address{alice}, chainID: 1, balance: big.NewInt(1)}
	m, changes := newManager(p)
	require.NoError(t, m.Connect(context.Background()))

	m.Disconnect()
	m.Disconnect()

	assert.True(t, m.Session().Absent())
	assert.Nil(t, m.Gateway())
	assert.Equal(t, 1, p.unsubscribed)
	assert.Empty(t, p.current())
	require.Len(t, *changes, 2)
	assert.Nil(t, (*changes)[1].Gateway)
}

func TestAccountsChanged_EmptyListEqualsDisconnect(t *testing.T) {
	p := &fakeProvider{requested: []ethcommon.Address{alice}, chainID: 1, balance: big.NewInt(1)}
	m, changes := newManager(p)
	require.NoError(t, m.Connect(context.Background()))

	p.accountsChanged()

	assert.True(t, m.Session().Absent())
	assert.Equal(t, 1, p.unsubscribed)
	require.Len(t, *changes, 2)
	assert.True(t, (*changes)[1].Session.Absent())
}

func TestAccountsChanged_NewAccount(t *testing.T) {
	p := &fakeProvider{requested: []ethcommon.Address{alice}, chainID: 1, balance: big.NewInt(1)}
	m, changes := newManager(p)
	require.NoError(t, m.Connect(context.Background()))

	p.accountsChanged(alice)
	assert.Len(t, *changes, 1, "same account is not a replacement")

	p.accountsChanged(bob, alice)

	require.NotNil(t, m.Session().Account)
	assert.Equal(t, bob, *m.Session().Account)
	assert.Equal(t, uint64(2), m.Generation())
	assert.Len(t, *changes, 2)
	assert.Zero(t, p.unsubscribed)
}

func TestNetworkChanged_HardResetThenRestore(t *testing.T) {
	p := &fakeProvider{requested: []ethcommon.Address{alice}, chainID: 1, balance: big.NewInt(1)}
	m, changes := newManager(p)
	require.NoError(t, m.Connect(context.Background()))

	p.networkChanged(5)

	require.Len(t, *changes, 3)
	reset := (*changes)[1]
	assert.True(t, reset.Reset)
	assert.True(t, reset.Session.Absent())
	assert.Nil(t, reset.Gateway)

	restored := (*changes)[2]
	assert.False(t, restored.Reset)
	require.NotNil(t, restored.Session.Account)
	assert.Equal(t, alice, *restored.Session.Account)
	assert.Equal(t, int64(5), restored.Session.NetworkID.Int64())
	assert.Equal(t, uint64(3), m.Generation())
}

func TestNetworkChanged_WithoutAuthorizationStaysAbsent(t *testing.T) {
	p := &fakeProvider{requested: []ethcommon.Address{alice}, chainID: 1, balance: big.NewInt(1)}
	m, _ := newManager(p)
	require.NoError(t, m.Connect(context.Background()))
	p.authorized = nil

	p.networkChanged(5)

	assert.True(t, m.Session().Absent())
}

func TestBrowse_ReadOnly(t *testing.T) {
	p := &fakeProvider{chainID: 1}
	m, _ := newManager(p)

	require.NoError(t, m.Browse(context.Background()))

	s := m.Session()
	assert.Nil(t, s.Account)
	assert.Equal(t, models.ChannelReadOnly, s.Channel)
	assert.NotNil(t, m.Gateway())
	_, _, err := m.Writer()
	require.ErrorIs(t, err, common.ErrNotConnected)

	p.networkChanged(7)
	assert.Equal(t, models.ChannelReadOnly, m.Session().Channel)
	assert.Equal(t, int64(7), m.Session().NetworkID.Int64())
}

func TestBrowse_NoopWhenConnected(t *testing.T) {
	p := &fakeProvider{requested: []ethcommon.Address{alice}, chainID: 1, balance: big.NewInt(1)}
	m, _ := newManager(p)
	require.NoError(t, m.Connect(context.Background()))

	require.NoError(t, m.Browse(context.Background()))

	assert.True(t, m.Session().Connected())
	assert.Equal(t, uint64(1), m.Generation())
}

func TestEstablish_DiscardsStaleGeneration(t *testing.T) {
	p := &fakeProvider{requested: []ethcommon.Address{alice}, chainID: 1, balance: big.NewInt(1)}
	m, _ := newManager(p)
	require.NoError(t, m.Connect(context.Background()))

	err := m.establish(context.Background(), &bob, 0)

	require.ErrorIs(t, err, common.ErrUnknown)
	assert.Equal(t, alice, *m.Session().Account)
}
