package ledger

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/crowdfund/internal/common"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

const fallbackRevertMessage = "transaction reverted"

var revertPattern = regexp.MustCompile(`execution reverted(?::\s*(.*))?`)

// Classify maps a write-path failure into the common taxonomy. The revert
// reason is looked up in order: ABI-encoded revert data carried by the
// JSON-RPC error, the "execution reverted: ..." message text, and finally a
// generic message. Already classified errors pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var ce *common.Error
	if errors.As(err, &ce) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return common.Wrap(common.ErrUnknown, err)
	}

	if reason, ok := revertData(err); ok {
		return &common.Error{Kind: common.ErrLedgerRejected, Message: reason, Err: err}
	}
	if reason, ok := revertMessage(err.Error()); ok {
		return &common.Error{Kind: common.ErrLedgerRejected, Message: reason, Err: err}
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		msg := rpcErr.Error()
		if msg == "" {
			msg = fallbackRevertMessage
		}
		return &common.Error{Kind: common.ErrLedgerRejected, Message: msg, Err: err}
	}

	return common.Wrap(common.ErrUnknown, err)
}

func revertData(err error) (string, bool) {
	var de rpc.DataError
	if !errors.As(err, &de) {
		return "", false
	}

	var data []byte
	switch v := de.ErrorData().(type) {
	case string:
		b, err := hexutil.Decode(v)
		if err != nil {
			return "", false
		}
		data = b
	case []byte:
		data = v
	default:
		return "", false
	}

	reason, err := abi.UnpackRevert(data)
	if err != nil || reason == "" {
		return "", false
	}
	return reason, true
}

func revertMessage(msg string) (string, bool) {
	m := revertPattern.FindStringSubmatch(msg)
	if m == nil {
		return "", false
	}
	reason := strings.Trim(strings.TrimSpace(m[1]), `"`)
	if reason == "" {
		reason = fallbackRevertMessage
	}
	return reason, true
}
