package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/crowdfund/internal/client/models"
	"github.com/dmitrijs2005/crowdfund/internal/client/services"
	"github.com/dmitrijs2005/crowdfund/internal/common"
	"github.com/dustin/go-humanize"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// report prints err with a hint for the kinds a user can act on and
// returns it unchanged.
func (a *App) report(err error) error {
	if err == nil {
		return nil
	}
	a.printf("Error: %s\n", err)
	switch {
	case errors.Is(err, common.ErrNotConnected):
		a.printf("Use 'connect' first.\n")
	case errors.Is(err, common.ErrProviderUnavailable):
		a.printf("Check the keystore directory and ledger endpoint settings.\n")
	}
	return err
}

func (a *App) Connect(ctx context.Context) error {
	if err := a.session.Connect(ctx); err != nil {
		return a.report(err)
	}
	s := a.session.Session()
	a.printf("Connected as %s\n", s.Account.Hex())
	if a.wrongNetwork(s) {
		a.printf("Warning: wallet is on network %s, campaigns live on %d.\n", s.NetworkID, a.config.ChainID)
	}
	return a.report(a.sync.RefreshAll(ctx))
}

func (a *App) Disconnect(ctx context.Context) error {
	a.session.Disconnect()
	a.printf("Disconnected.\n")
	return nil
}

func (a *App) Browse(ctx context.Context) error {
	if err := a.session.Browse(ctx); err != nil {
		return a.report(err)
	}
	if !a.isConnected() {
		a.printf("Browsing read-only.\n")
	}
	return a.report(a.sync.RefreshAll(ctx))
}

func (a *App) Status(ctx context.Context) error {
	s := a.session.Session()

	a.printf("Channel:  %s\n", s.Channel)
	if s.Account != nil {
		a.printf("Account:  %s\n", s.Account.Hex())
	}
	if s.NetworkID != nil {
		a.printf("Network:  %s\n", s.NetworkID)
		if a.wrongNetwork(s) {
			a.printf("          expected %d\n", a.config.ChainID)
		}
	}
	if s.Balance != nil {
		a.printf("Balance:  %s ETH\n", s.Balance)
	}
	a.printf("Session:  generation %d\n", s.Generation)
	a.printf("Filter:   %s", a.sync.Filter())
	if q := a.sync.Search(); q != "" {
		a.printf(", search %q", q)
	}
	a.printf("\n")
	if err := a.sync.Err(); err != nil {
		a.printf("Campaigns may be stale: %s\n", err)
	}
	return nil
}

// List applies an optional status filter and title search, then prints the
// matching campaigns. "list all" clears both.
func (a *App) List(ctx context.Context, args []string) error {
	if len(args) > 0 {
		if err := a.sync.SetFilter(args[0]); err != nil {
			return a.report(err)
		}
		a.sync.SetSearch(strings.Join(args[1:], " "))
	}

	cs := a.sync.Campaigns()
	if err := a.sync.Err(); err != nil {
		a.printf("Warning: last refresh failed (%s); showing previous data.\n", err)
	}
	if len(cs) == 0 {
		a.printf("No campaigns.\n")
		return nil
	}
	a.printf("%s\n", campaignTable(cs, a.now(), "", nil))
	return nil
}

func parseID(args []string) (uint64, error) {
	if len(args) == 0 {
		return 0, common.Validation("campaign id is required")
	}
	id, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil || id < 1 {
		return 0, common.Validation("campaign id must be a positive integer")
	}
	return id, nil
}

func (a *App) Show(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return a.report(err)
	}
	c, err := a.sync.FetchOne(ctx, id)
	if err != nil {
		return a.report(err)
	}
	now := a.now()

	a.printf("#%d %s [%s]\n", c.ID, c.Title, statusBadge(c.Status))
	a.printf("%s\n\n", c.Description)
	a.printf("Image:     %s\n", c.ImageURL)
	a.printf("Creator:   %s\n", c.Creator.Hex())
	a.printf("Raised:    %s of %s ETH (%.1f%%)\n", c.AmountRaised, c.FundingGoal, c.Progress())
	a.printf("Deadline:  %s (%s)\n", c.Deadline.Local().Format(time.RFC1123), humanize.RelTime(c.Deadline, now, "ago", "from now"))

	s := a.session.Session()
	if s.Account != nil {
		acct := *s.Account
		if mine := a.sync.UserContribution(ctx, id, acct); mine.Sign() > 0 {
			a.printf("You gave:  %s ETH\n", mine)
		}
		switch {
		case c.CanRelease(acct):
			a.printf("You can release the funds: release %d\n", id)
		case c.CanRefund(acct):
			a.printf("You can claim a refund: release %d\n", id)
		case c.CanContribute(now):
			a.printf("Contribute with: contribute %d <eth>\n", id)
		}
	}
	if st, ok := a.orch.CampaignStatus(id); ok {
		a.printf("Last action: %s %s", st.Action, st.State)
		if st.Message != "" {
			a.printf(" (%s)", st.Message)
		}
		a.printf("\n")
	}
	return nil
}

// parseDeadline accepts a duration from now ("72h"), a day count ("7d"),
// or a local date with optional time ("2026-01-02" or "2026-01-02 15:04").
func parseDeadline(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(d), nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil {
			return now.AddDate(0, 0, n), nil
		}
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, common.NewError(common.ErrValidationFailed, "cannot read deadline %q", s)
}

func (a *App) Create(ctx context.Context) error {
	if !a.isConnected() {
		return a.report(common.NewError(common.ErrNotConnected, "wallet not connected"))
	}

	title, err := GetSimpleText(a.reader, "Title", a.out)
	if err != nil {
		return err
	}
	description, err := GetMultiline(a.reader, "Description", a.out)
	if err != nil {
		return err
	}
	image, err := GetSimpleText(a.reader, "Image URL", a.out)
	if err != nil {
		return err
	}
	goalText, err := GetSimpleText(a.reader, "Funding goal (ETH)", a.out)
	if err != nil {
		return err
	}
	deadlineText, err := GetSimpleText(a.reader, "Deadline (e.g. 30d, 72h, 2026-12-31)", a.out)
	if err != nil {
		return err
	}

	goal, err := models.ParseEther(goalText)
	if err != nil {
		return a.report(common.Validation(err.Error()))
	}
	deadline, err := parseDeadline(deadlineText, a.now())
	if err != nil {
		return a.report(err)
	}

	a.printf("Submitting campaign...\n")
	res, err := a.orch.CreateCampaign(ctx, services.CampaignDraft{
		Title:       title,
		Description: description,
		ImageURL:    image,
		FundingGoal: goal,
		Deadline:    deadline,
	})
	if err != nil {
		return a.report(err)
	}
	a.printf("Campaign created (tx %s).\n", res.TxHash)
	return nil
}

func (a *App) Contribute(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return a.report(err)
	}
	if len(args) < 2 {
		return a.report(common.Validation("usage: contribute <id> <eth>"))
	}
	amount, err := models.ParseEther(args[1])
	if err != nil {
		return a.report(common.Validation(err.Error()))
	}

	a.printf("Contributing %s ETH to campaign %d...\n", amount, id)
	res, err := a.orch.Contribute(ctx, id, amount)
	if err != nil {
		return a.report(err)
	}
	a.printf("Contribution confirmed (tx %s).\n", res.TxHash)
	return nil
}

func (a *App) Release(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return a.report(err)
	}

	a.printf("Settling campaign %d...\n", id)
	res, err := a.orch.ReleaseOrRefund(ctx, id)
	if err != nil {
		return a.report(err)
	}
	a.printf("Settled (tx %s).\n", res.TxHash)
	return nil
}

func (a *App) account() (ethcommon.Address, error) {
	s := a.session.Session()
	if s.Account == nil {
		return ethcommon.Address{}, common.NewError(common.ErrNotConnected, "wallet not connected")
	}
	return *s.Account, nil
}

// Backed lists campaigns the connected account contributed to.
func (a *App) Backed(ctx context.Context) error {
	acct, err := a.account()
	if err != nil {
		return a.report(err)
	}
	backed, err := a.dash.Backed(ctx, acct)
	if err != nil {
		return a.report(err)
	}
	if len(backed) == 0 {
		a.printf("You have not backed any campaigns.\n")
		return nil
	}

	cs := make([]models.Campaign, len(backed))
	for i, b := range backed {
		cs[i] = b.Campaign
	}
	a.printf("%s\n", campaignTable(cs, a.now(), "Yours (ETH)", func(i int) string {
		return backed[i].Contribution.String()
	}))
	return nil
}

// Mine lists campaigns created by the connected account.
func (a *App) Mine(ctx context.Context) error {
	acct, err := a.account()
	if err != nil {
		return a.report(err)
	}
	cs := a.dash.Created(acct)
	if len(cs) == 0 {
		a.printf("You have not created any campaigns.\n")
		return nil
	}
	a.printf("%s\n", campaignTable(cs, a.now(), "", nil))
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.sync.RefreshAll(ctx); err != nil {
		return a.report(err)
	}
	a.printf("%d campaigns loaded.\n", len(a.sync.All()))
	return nil
}

func parseAddress(s string) (ethcommon.Address, error) {
	if !ethcommon.IsHexAddress(s) {
		return ethcommon.Address{}, common.NewError(common.ErrValidationFailed, "invalid address %q", s)
	}
	return ethcommon.HexToAddress(s), nil
}

// Switch moves the connected session to another keystore account.
func (a *App) Switch(ctx context.Context, args []string) error {
	if _, err := a.account(); err != nil {
		return a.report(err)
	}
	if len(args) == 0 {
		return a.report(common.Validation("usage: switch <address>"))
	}
	acct, err := parseAddress(args[0])
	if err != nil {
		return a.report(err)
	}
	if err := a.accounts.Switch(ctx, acct); err != nil {
		return a.report(err)
	}
	a.printf("Now using %s\n", acct.Hex())
	return nil
}

// Revoke forgets an authorization, the current account by default.
// "revoke all" forgets every account.
func (a *App) Revoke(ctx context.Context, args []string) error {
	if len(args) > 0 && (args[0] == "all" || args[0] == "--all") {
		if err := a.accounts.RevokeAll(ctx); err != nil {
			return a.report(err)
		}
		a.printf("Revoked all accounts.\n")
		return nil
	}

	var (
		acct ethcommon.Address
		err  error
	)
	if len(args) > 0 {
		acct, err = parseAddress(args[0])
	} else {
		acct, err = a.account()
	}
	if err != nil {
		return a.report(err)
	}
	if err := a.accounts.Revoke(ctx, acct); err != nil {
		return a.report(err)
	}
	a.printf("Revoked %s\n", acct.Hex())
	return nil
}

func (a *App) Help(ctx context.Context) error {
	a.printf("%s\n", strings.Join([]string{
		"Commands:",
		"  connect | disconnect | browse | status",
		"  list [all|<status>] [search...]   show <id>   refresh",
		"  create   contribute <id> <eth>   release <id>",
		"  backed   mine   switch <address>   revoke [address|all]",
		"  exit",
		fmt.Sprintf("Statuses: %s", joinStatuses()),
	}, "\n"))
	return nil
}

func joinStatuses() string {
	names := make([]string, len(models.AllStatuses))
	for i, s := range models.AllStatuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
