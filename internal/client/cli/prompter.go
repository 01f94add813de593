package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/crowdfund/internal/client/models"
	"github.com/dmitrijs2005/crowdfund/internal/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// terminalPrompter answers wallet prompts from the REPL's own input, so it
// must only be used while a command is running.
type terminalPrompter struct {
	reader *bufio.Reader
	out    io.Writer
}

func (p *terminalPrompter) ConfirmAccount(ctx context.Context, accounts []ethcommon.Address) (ethcommon.Address, error) {
	fmt.Fprintln(p.out, "Authorize crowdfund to use an account:")
	for i, a := range accounts {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, a.Hex())
	}

	answer, err := GetSimpleText(p.reader, fmt.Sprintf("Choose 1-%d, empty to cancel", len(accounts)), p.out)
	if err != nil {
		return ethcommon.Address{}, common.NewError(common.ErrUserRejected, "request rejected: %v", err)
	}
	switch strings.ToLower(answer) {
	case "", "n", "no", "cancel":
		return ethcommon.Address{}, common.NewError(common.ErrUserRejected, "request rejected by user")
	}

	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(accounts) {
		return ethcommon.Address{}, common.NewError(common.ErrUserRejected, "request rejected: no account %q", answer)
	}
	return accounts[n-1], nil
}

func (p *terminalPrompter) Passphrase(ctx context.Context, account ethcommon.Address) (string, error) {
	pass, err := GetPassword(p.out, fmt.Sprintf("Passphrase to sign with %s (empty to decline): ", models.ShortAddress(account)))
	if err != nil {
		return "", common.NewError(common.ErrUserRejected, "signature declined: %v", err)
	}
	return pass, nil
}
