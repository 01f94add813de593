package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Authorization records that the user let this client use an account.
// The most recently used authorization is the selected account.
type Authorization struct {
	Account    common.Address
	GrantedAt  time.Time
	LastUsedAt time.Time
}
