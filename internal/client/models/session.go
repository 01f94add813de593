package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ChannelKind describes what the current ledger channel may do.
type ChannelKind int

const (
	ChannelNone ChannelKind = iota
	ChannelReadOnly
	ChannelReadWrite
)

func (k ChannelKind) String() string {
	switch k {
	case ChannelReadOnly:
		return "read-only"
	case ChannelReadWrite:
		return "read-write"
	default:
		return "none"
	}
}

// Session is a snapshot of the wallet session. Nil pointers mean absent.
// A read-write channel always comes with an account.
type Session struct {
	Account    *common.Address
	NetworkID  *big.Int
	Balance    *Amount
	Channel    ChannelKind
	Generation uint64
}

func (s Session) Connected() bool {
	return s.Account != nil && s.Channel == ChannelReadWrite
}

// Absent reports whether every field is cleared.
func (s Session) Absent() bool {
	return s.Account == nil && s.NetworkID == nil && s.Balance == nil && s.Channel == ChannelNone
}

// Clone returns s with its own copies of the pointed-to values.
func (s Session) Clone() Session {
	if s.Account != nil {
		acct := *s.Account
		s.Account = &acct
	}
	if s.NetworkID != nil {
		s.NetworkID = new(big.Int).Set(s.NetworkID)
	}
	if s.Balance != nil {
		bal := *s.Balance
		s.Balance = &bal
	}
	return s
}
