package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/crowdfund/internal/client/models"
	"github.com/dmitrijs2005/crowdfund/internal/common"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = ethcommon.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = ethcommon.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func TestTerminalPrompter_ConfirmAccount(t *testing.T) {
	accounts := []ethcommon.Address{alice, bob}

	var out bytes.Buffer
	p := &terminalPrompter{reader: rdr("2\n"), out: &out}
	got, err := p.ConfirmAccount(context.Background(), accounts)
	require.NoError(t, err)
	assert.Equal(t, bob, got)
	assert.Contains(t, out.String(), "1) "+alice.Hex())
	assert.Contains(t, out.String(), "Choose 1-2")
}

func TestTerminalPrompter_ConfirmAccountRejects(t *testing.T) {
	for _, answer := range []string{"\n", "no\n", "cancel\n", "3\n", "x\n", ""} {
		p := &terminalPrompter{reader: rdr(answer), out: &bytes.Buffer{}}
		_, err := p.ConfirmAccount(context.Background(), []ethcommon.Address{alice})
		assert.ErrorIs(t, err, common.ErrUserRejected, "answer %q", answer)
	}
}

func TestTerminalPrompter_Passphrase(t *testing.T) {
	old := readPassword
	t.Cleanup(func() { readPassword = old })

	readPassword = func(int) ([]byte, error) { return []byte("pw"), nil }
	var out bytes.Buffer
	p := &terminalPrompter{reader: rdr(""), out: &out}
	got, err := p.Passphrase(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, "pw", got)
	assert.Contains(t, out.String(), models.ShortAddress(alice))

	readPassword = func(int) ([]byte, error) { return nil, errors.New("not a terminal") }
	_, err = p.Passphrase(context.Background(), alice)
	assert.ErrorIs(t, err, common.ErrUserRejected)
}
