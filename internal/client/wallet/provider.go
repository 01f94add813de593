// Package wallet is the client's wallet provider: the source of accounts,
// network identity, balances and signing channels.
//
// KeystoreWallet implements Provider on top of a go-ethereum keystore and a
// JSON-RPC node. The accounts the user authorized are remembered in the local
// database, so a later start can restore the session without prompting.
package wallet

import (
	"context"
	"math/big"

	"github.com/dmitrijs2005/crowdfund/internal/client/ledger"
	"github.com/ethereum/go-ethereum/common"
)

// Handlers receive provider notifications. Either may be nil. They are called
// from the provider's watcher goroutines.
type Handlers struct {
	AccountsChanged func(accounts []common.Address)
	NetworkChanged  func(chainID *big.Int)
}

// Subscription is an explicit handle for provider notifications.
type Subscription interface {
	Unsubscribe()
}

type Provider interface {
	// RequestAccounts prompts the user to authorize an account and returns
	// the authorized accounts, selected first.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// Accounts returns previously authorized accounts without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)
	Network(ctx context.Context) (*big.Int, error)
	Balance(ctx context.Context, account common.Address) (*big.Int, error)
	// Channel opens a ledger channel. A nil account yields a read-only one.
	Channel(ctx context.Context, account *common.Address) (*ledger.Channel, error)
	Subscribe(h Handlers) Subscription
}

// Prompter asks the user for wallet decisions.
type Prompter interface {
	// ConfirmAccount lets the user pick one of accounts to authorize.
	// Declining returns a common.ErrUserRejected error.
	ConfirmAccount(ctx context.Context, accounts []common.Address) (common.Address, error)
	// Passphrase unlocks account for one signature. An empty answer declines.
	Passphrase(ctx context.Context, account common.Address) (string, error)
}
