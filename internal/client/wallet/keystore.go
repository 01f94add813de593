package wallet

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/dmitrijs2005/crowdfund/internal/client/ledger"
	"github.com/dmitrijs2005/crowdfund/internal/client/repositories/authorizations"
	"github.com/dmitrijs2005/crowdfund/internal/common"
	"github.com/dmitrijs2005/crowdfund/internal/logging"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
)

const (
	defaultCheckInterval = 5 * time.Second
	pollTimeout          = 3 * time.Second
)

// Keys is the part of *keystore.KeyStore the wallet uses.
type Keys interface {
	Accounts() []accounts.Account
	HasAddress(addr ethcommon.Address) bool
	SignTxWithPassphrase(a accounts.Account, passphrase string, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
	Subscribe(sink chan<- accounts.WalletEvent) event.Subscription
}

// Node is the part of *ethclient.Client the wallet uses.
type Node interface {
	ledger.Backend
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account ethcommon.Address, blockNumber *big.Int) (*big.Int, error)
}

var _ Keys = (*keystore.KeyStore)(nil)

type KeystoreWallet struct {
	keys     Keys
	node     Node
	auths    authorizations.Repository
	prompt   Prompter
	log      logging.Logger
	interval time.Duration

	mu       sync.Mutex
	handlers map[uint64]Handlers
	nextID   uint64
	stop     context.CancelFunc
}

type Option func(*KeystoreWallet)

// WithCheckInterval sets how often the node's chain id is polled.
func WithCheckInterval(d time.Duration) Option {
	return func(w *KeystoreWallet) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(w *KeystoreWallet) { w.log = l }
}

// NewKeystoreWallet builds a wallet. keys or node may be nil, in which case
// every call fails with common.ErrProviderUnavailable.
func NewKeystoreWallet(keys Keys, node Node, auths authorizations.Repository, prompt Prompter, opts ...Option) *KeystoreWallet {
	w := &KeystoreWallet{
		keys:     keys,
		node:     node,
		auths:    auths,
		prompt:   prompt,
		log:      logging.Discard(),
		interval: defaultCheckInterval,
		handlers: make(map[uint64]Handlers),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *KeystoreWallet) available() error {
	switch {
	case w.keys == nil:
		return common.NewError(common.ErrProviderUnavailable, "no wallet provider: keystore not configured")
	case w.node == nil:
		return common.NewError(common.ErrProviderUnavailable, "no wallet provider: ledger endpoint not configured")
	}
	return nil
}

func (w *KeystoreWallet) RequestAccounts(ctx context.Context) ([]ethcommon.Address, error) {
	if err := w.available(); err != nil {
		return nil, err
	}

	keys := w.keys.Accounts()
	if len(keys) == 0 {
		return nil, common.NewError(common.ErrProviderUnavailable, "no wallet provider: keystore has no accounts")
	}
	candidates := make([]ethcommon.Address, 0, len(keys))
	for _, k := range keys {
		candidates = append(candidates, k.Address)
	}

	chosen, err := w.prompt.ConfirmAccount(ctx, candidates)
	if err != nil {
		return nil, err
	}
	if !w.keys.HasAddress(chosen) {
		return nil, common.NewError(common.ErrUserRejected, "account %s is not in the keystore", chosen.Hex())
	}

	if err := w.auths.Grant(ctx, chosen); err != nil {
		return nil, common.Wrap(common.ErrUnknown, err)
	}
	w.log.Info(ctx, "account authorized", "account", chosen.Hex())

	return w.Accounts(ctx)
}

// Accounts returns authorized accounts that are still in the keystore.
func (w *KeystoreWallet) Accounts(ctx context.Context) ([]ethcommon.Address, error) {
	if err := w.available(); err != nil {
		return nil, err
	}

	list, err := w.auths.List(ctx)
	if err != nil {
		return nil, common.Wrap(common.ErrUnknown, err)
	}

	var out []ethcommon.Address
	for _, a := range list {
		if w.keys.HasAddress(a.Account) {
			out = append(out, a.Account)
		}
	}
	return out, nil
}

func (w *KeystoreWallet) Network(ctx context.Context) (*big.Int, error) {
	if err := w.available(); err != nil {
		return nil, err
	}
	id, err := w.node.ChainID(ctx)
	if err != nil {
		return nil, common.Wrap(common.ErrProviderUnavailable, err)
	}
	return id, nil
}

func (w *KeystoreWallet) Balance(ctx context.Context, account ethcommon.Address) (*big.Int, error) {
	if err := w.available(); err != nil {
		return nil, err
	}
	bal, err := w.node.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, common.Wrap(common.ErrReadFailed, err)
	}
	return bal, nil
}

func (w *KeystoreWallet) Channel(ctx context.Context, account *ethcommon.Address) (*ledger.Channel, error) {
	if err := w.available(); err != nil {
		return nil, err
	}
	if account == nil {
		return &ledger.Channel{Backend: w.node}, nil
	}

	chainID, err := w.node.ChainID(ctx)
	if err != nil {
		return nil, common.Wrap(common.ErrProviderUnavailable, err)
	}
	acct := *account

	// Prompts run under the channel's context; the CLI passes the root one.
	sign := func(from ethcommon.Address, tx *types.Transaction) (*types.Transaction, error) {
		if from != acct {
			return nil, bind.ErrNotAuthorized
		}
		pass, err := w.prompt.Passphrase(ctx, acct)
		if err != nil {
			return nil, err
		}
		if pass == "" {
			return nil, common.NewError(common.ErrUserRejected, "transaction signature declined")
		}
		signed, err := w.keys.SignTxWithPassphrase(accounts.Account{Address: acct}, pass, tx, chainID)
		if errors.Is(err, keystore.ErrDecrypt) {
			return nil, common.NewError(common.ErrUserRejected, "wrong passphrase, transaction not signed")
		}
		if err != nil {
			return nil, common.Wrap(common.ErrUnknown, err)
		}
		return signed, nil
	}

	return &ledger.Channel{
		Backend: w.node,
		Signer:  &bind.TransactOpts{From: acct, Signer: sign},
	}, nil
}

// Switch makes account the selected one, authorizing it if needed.
func (w *KeystoreWallet) Switch(ctx context.Context, account ethcommon.Address) error {
	if err := w.available(); err != nil {
		return err
	}
	if !w.keys.HasAddress(account) {
		return common.NewError(common.ErrValidationFailed, "account %s is not in the keystore", account.Hex())
	}

	err := w.auths.Select(ctx, account)
	if errors.Is(err, authorizations.ErrNotAuthorized) {
		w.log.Info(ctx, "authorizing account", "account", account.Hex())
		err = w.auths.Grant(ctx, account)
	}
	if err != nil {
		return common.Wrap(common.ErrUnknown, err)
	}
	return w.emitAccounts(ctx)
}

// Revoke forgets an authorization. Revoking the last one disconnects.
func (w *KeystoreWallet) Revoke(ctx context.Context, account ethcommon.Address) error {
	if err := w.available(); err != nil {
		return err
	}
	if err := w.auths.Revoke(ctx, account); err != nil {
		return common.Wrap(common.ErrUnknown, err)
	}
	return w.emitAccounts(ctx)
}

// RevokeAll forgets every authorization, which disconnects.
func (w *KeystoreWallet) RevokeAll(ctx context.Context) error {
	if err := w.available(); err != nil {
		return err
	}
	if err := w.auths.Clear(ctx); err != nil {
		return common.Wrap(common.ErrUnknown, err)
	}
	return w.emitAccounts(ctx)
}

// Subscribe registers h. The keystore and chain id watchers run while at
// least one subscription is live.
func (w *KeystoreWallet) Subscribe(h Handlers) Subscription {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++
	w.handlers[id] = h
	if w.stop == nil && w.available() == nil {
		w.startWatchers()
	}
	return &subscription{w: w, id: id}
}

type subscription struct {
	w    *KeystoreWallet
	id   uint64
	once sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() { s.w.unsubscribe(s.id) })
}

func (w *KeystoreWallet) unsubscribe(id uint64) {
	w.mu.Lock()
	delete(w.handlers, id)
	var stop context.CancelFunc
	if len(w.handlers) == 0 && w.stop != nil {
		stop, w.stop = w.stop, nil
	}
	w.mu.Unlock()

	// Handlers may unsubscribe from a watcher goroutine, so do not wait here.
	if stop != nil {
		stop()
	}
}

func (w *KeystoreWallet) snapshot() []Handlers {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Handlers, 0, len(w.handlers))
	for _, h := range w.handlers {
		out = append(out, h)
	}
	return out
}

func (w *KeystoreWallet) emitAccounts(ctx context.Context) error {
	accts, err := w.Accounts(ctx)
	if err != nil {
		return err
	}
	for _, h := range w.snapshot() {
		if h.AccountsChanged != nil {
			h.AccountsChanged(accts)
		}
	}
	return nil
}

func (w *KeystoreWallet) emitNetwork(chainID *big.Int) {
	for _, h := range w.snapshot() {
		if h.NetworkChanged != nil {
			h.NetworkChanged(new(big.Int).Set(chainID))
		}
	}
}

// startWatchers must be called with w.mu held.
func (w *KeystoreWallet) startWatchers() {
	ctx, cancel := context.WithCancel(context.Background())
	w.stop = cancel

	sink := make(chan accounts.WalletEvent, 8)
	sub := w.keys.Subscribe(sink)

	go func() {
		defer sub.Unsubscribe()
		w.watchKeystore(ctx, sink, sub.Err())
	}()
	go w.watchNetwork(ctx)
}

func (w *KeystoreWallet) watchKeystore(ctx context.Context, sink <-chan accounts.WalletEvent, errc <-chan error) {
	for {
		select {
		case ev := <-sink:
			if ev.Kind != accounts.WalletDropped {
				continue
			}
			w.log.Info(ctx, "keystore account removed")
			if err := w.emitAccounts(ctx); err != nil {
				w.log.Warn(ctx, "accounts changed notification failed", "err", err)
			}
		case <-errc:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *KeystoreWallet) pollChainID(ctx context.Context) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()
	return w.node.ChainID(ctx)
}

func (w *KeystoreWallet) watchNetwork(ctx context.Context) {
	last, err := w.pollChainID(ctx)
	if err != nil {
		w.log.Warn(ctx, "chain id check failed", "err", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			id, err := w.pollChainID(ctx)
			if err != nil {
				w.log.Debug(ctx, "chain id check failed", "err", err)
				continue
			}
			if last != nil && id.Cmp(last) != 0 {
				w.log.Info(ctx, "network changed", "from", last, "to", id)
				w.emitNetwork(id)
			}
			last = id

		case <-ctx.Done():
			return
		}
	}
}
