package ledger

import (
	"github.com/dmitrijs2005/crowdfund/internal/client/models"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
)

// Backend is what a channel needs from a node connection: contract calls,
// transactions, log filters and receipts. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Channel is a connection to the ledger. Without a Signer it is read-only.
type Channel struct {
	Backend Backend
	Signer  *bind.TransactOpts
}

func (c *Channel) Kind() models.ChannelKind {
	switch {
	case c == nil || c.Backend == nil:
		return models.ChannelNone
	case c.Signer == nil:
		return models.ChannelReadOnly
	default:
		return models.ChannelReadWrite
	}
}
