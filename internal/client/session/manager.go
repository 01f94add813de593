// Package session owns the wallet session: which account is connected, on
// which network, and through which ledger channel.
//
// Every replacement of the session bumps a generation counter and is
// announced to OnChange listeners together with the freshly bound gateway.
// Work started against an older generation must be discarded by its owner.
package session

import (
	"context"
	"math/big"
	"sync"

	"github.com/dmitrijs2005/crowdfund/internal/client/ledger"
	"github.com/dmitrijs2005/crowdfund/internal/client/models"
	"github.com/dmitrijs2005/crowdfund/internal/client/wallet"
	"github.com/dmitrijs2005/crowdfund/internal/common"
	"github.com/dmitrijs2005/crowdfund/internal/logging"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Binder attaches a channel to the contract. It returns nil when the contract
// is unavailable.
type Binder func(ch *ledger.Channel) ledger.Gateway

// BindTo returns a Binder for the contract at address.
func BindTo(address ethcommon.Address, opts ...ledger.Option) Binder {
	return func(ch *ledger.Channel) ledger.Gateway {
		return ledger.Bind(ch, address, opts...)
	}
}

// Change describes a session replacement. Reset is set when downstream
// caches must be dropped regardless of what the new session looks like.
type Change struct {
	Generation uint64
	Session    models.Session
	Gateway    ledger.Gateway
	Reset      bool
}

type Manager struct {
	provider wallet.Provider
	bind     Binder
	log      logging.Logger

	// notifyMu orders install+notify pairs so listeners see generations in order.
	notifyMu sync.Mutex

	mu         sync.Mutex
	ctx        context.Context
	session    models.Session
	gateway    ledger.Gateway
	generation uint64
	sub        wallet.Subscription
	listeners  []func(Change)

	ready     chan struct{}
	readyOnce sync.Once
}

func NewManager(provider wallet.Provider, bind Binder, log logging.Logger) *Manager {
	return &Manager{
		provider: provider,
		bind:     bind,
		log:      log,
		ctx:      context.Background(),
		ready:    make(chan struct{}),
	}
}

// OnChange registers fn for every session replacement.
func (m *Manager) OnChange(fn func(Change)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// Ready is closed once the startup restore attempt has finished.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

func (m *Manager) Session() models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Clone()
}

func (m *Manager) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// Gateway returns the gateway of the current session, nil when there is none.
func (m *Manager) Gateway() ledger.Gateway {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gateway
}

// Writer returns a gateway able to submit transactions along with the
// generation it belongs to.
func (m *Manager) Writer() (ledger.Gateway, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.session.Connected() || m.gateway == nil || !m.gateway.Writable() {
		return nil, m.generation, common.NewError(common.ErrNotConnected, "wallet not connected")
	}
	return m.gateway, m.generation, nil
}

// Connect asks the wallet to authorize an account and opens a read-write
// session for the selected one.
func (m *Manager) Connect(ctx context.Context) error {
	accts, err := m.provider.RequestAccounts(ctx)
	if err != nil {
		m.log.Warn(ctx, "wallet connection failed", "err", err)
		return err
	}
	if len(accts) == 0 {
		return common.NewError(common.ErrUserRejected, "no account authorized")
	}
	return m.establish(ctx, &accts[0], m.Generation())
}

// RestoreIfAuthorized reconnects silently when the wallet already authorized
// an account. Ready is closed when it returns, whatever the outcome.
func (m *Manager) RestoreIfAuthorized(ctx context.Context) error {
	defer m.readyOnce.Do(func() { close(m.ready) })
	return m.restore(ctx, m.Generation())
}

func (m *Manager) restore(ctx context.Context, gen uint64) error {
	accts, err := m.provider.Accounts(ctx)
	if err != nil {
		m.log.Info(ctx, "session restore skipped", "err", err)
		return err
	}
	if len(accts) == 0 {
		m.log.Debug(ctx, "no authorized accounts to restore")
		return nil
	}
	return m.establish(ctx, &accts[0], gen)
}

// Browse opens a read-only session so campaigns can be read without an
// account. It does nothing while connected.
func (m *Manager) Browse(ctx context.Context) error {
	if m.Session().Connected() {
		return nil
	}
	return m.establish(ctx, nil, m.Generation())
}

// Disconnect clears the session and drops provider subscriptions. Calling it
// on an absent session does nothing.
func (m *Manager) Disconnect() {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if m.session.Absent() && m.sub == nil {
		m.mu.Unlock()
		return
	}
	sub := m.sub
	m.sub = nil
	change := m.replaceLocked(models.Session{}, nil, false)
	m.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	m.log.Info(m.ctx, "wallet disconnected", "generation", change.Generation)
	m.notify(change)
}

// establish builds a session for account (nil for read-only) and installs
// it unless another replacement happened since gen.
func (m *Manager) establish(ctx context.Context, account *ethcommon.Address, gen uint64) error {
	network, err := m.provider.Network(ctx)
	if err != nil {
		return err
	}
	ch, err := m.provider.Channel(ctx, account)
	if err != nil {
		return err
	}

	s := models.Session{NetworkID: network, Channel: ch.Kind()}
	if account != nil {
		acct := *account
		s.Account = &acct
		if bal, err := m.provider.Balance(ctx, acct); err != nil {
			m.log.Warn(ctx, "balance unavailable", "account", acct.Hex(), "err", err)
		} else {
			amount := models.NewAmount(bal)
			s.Balance = &amount
		}
	}
	gw := m.bind(ch)

	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		m.log.Info(ctx, "discarding stale session", "generation", gen)
		return common.NewError(common.ErrUnknown, "session changed while connecting, try again")
	}
	m.ctx = ctx
	if m.sub == nil {
		m.sub = m.provider.Subscribe(wallet.Handlers{
			AccountsChanged: m.handleAccountsChanged,
			NetworkChanged:  m.handleNetworkChanged,
		})
	}
	change := m.replaceLocked(s, gw, false)
	m.mu.Unlock()

	args := []any{"generation", change.Generation, "channel", s.Channel.String(), "network", network}
	if s.Account != nil {
		args = append(args, "account", s.Account.Hex())
	}
	m.log.Info(ctx, "session established", args...)
	m.notify(change)
	return nil
}

// replaceLocked installs a new session. m.mu must be held.
func (m *Manager) replaceLocked(s models.Session, gw ledger.Gateway, reset bool) Change {
	m.generation++
	s.Generation = m.generation
	m.session = s
	m.gateway = gw
	return Change{Generation: m.generation, Session: s.Clone(), Gateway: gw, Reset: reset}
}

func (m *Manager) notify(c Change) {
	m.mu.Lock()
	listeners := append([](func(Change))(nil), m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(c)
	}
}

func (m *Manager) handleAccountsChanged(accts []ethcommon.Address) {
	if len(accts) == 0 {
		m.Disconnect()
		return
	}

	m.mu.Lock()
	ctx, cur, gen := m.ctx, m.session.Account, m.generation
	m.mu.Unlock()

	if cur != nil && *cur == accts[0] {
		return
	}
	m.log.Info(ctx, "wallet account changed", "account", accts[0].Hex())
	if err := m.establish(ctx, &accts[0], gen); err != nil {
		m.log.Warn(ctx, "account switch failed", "err", err)
	}
}

// handleNetworkChanged drops everything bound to the old network, then tries
// a silent restore against the new one.
func (m *Manager) handleNetworkChanged(chainID *big.Int) {
	m.notifyMu.Lock()
	m.mu.Lock()
	ctx := m.ctx
	browsing := m.session.Account == nil && m.session.Channel == models.ChannelReadOnly
	sub := m.sub
	m.sub = nil
	change := m.replaceLocked(models.Session{}, nil, true)
	m.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	m.log.Info(ctx, "network changed, session reset", "network", chainID, "generation", change.Generation)
	m.notify(change)
	m.notifyMu.Unlock()

	err := m.restore(ctx, change.Generation)
	if err == nil && browsing && m.Generation() == change.Generation {
		err = m.establish(ctx, nil, change.Generation)
	}
	if err != nil {
		m.log.Warn(ctx, "restore after network change failed", "err", err)
	}
}
