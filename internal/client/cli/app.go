package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/crowdfund/internal/client/config"
	"github.com/dmitrijs2005/crowdfund/internal/client/ledger"
	"github.com/dmitrijs2005/crowdfund/internal/client/models"
	"github.com/dmitrijs2005/crowdfund/internal/client/services"
	"github.com/dmitrijs2005/crowdfund/internal/client/session"
	"github.com/dmitrijs2005/crowdfund/internal/client/storage"
	"github.com/dmitrijs2005/crowdfund/internal/client/wallet"
	"github.com/dmitrijs2005/crowdfund/internal/filex"
	"github.com/dmitrijs2005/crowdfund/internal/logging"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// sessionManager is the part of *session.Manager the CLI drives.
type sessionManager interface {
	Connect(ctx context.Context) error
	RestoreIfAuthorized(ctx context.Context) error
	Browse(ctx context.Context) error
	Disconnect()
	Session() models.Session
}

// accountControl is implemented by *wallet.KeystoreWallet.
type accountControl interface {
	Switch(ctx context.Context, account ethcommon.Address) error
	Revoke(ctx context.Context, account ethcommon.Address) error
	RevokeAll(ctx context.Context) error
}

type App struct {
	config   *config.Config
	session  sessionManager
	accounts accountControl
	sync     services.Synchronizer
	orch     services.Orchestrator
	dash     services.Dashboard
	log      logging.Logger

	reader *bufio.Reader
	out    io.Writer
	now    func() time.Time
	close  func() error
}

// NewApp wires the client. The ledger node is dialled lazily by ethclient,
// so an unreachable node only surfaces on the first call.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	dbPath, err := filex.EnsureParent(c.DatabasePath)
	if err != nil {
		return nil, err
	}
	repos, err := storage.InitDatabase(ctx, dbPath)
	if err != nil {
		log.Error(ctx, "error initializing database", "path", dbPath, "err", err)
		return nil, err
	}

	var node wallet.Node
	if c.RPCEndpoint != "" {
		ec, err := ethclient.DialContext(ctx, c.RPCEndpoint)
		if err != nil {
			_ = repos.Close()
			return nil, fmt.Errorf("dial %s: %w", c.RPCEndpoint, err)
		}
		node = ec
	}

	var keys wallet.Keys
	if c.KeystoreDir != "" {
		dir, err := filex.EnsureDir(c.KeystoreDir)
		if err != nil {
			if ec, ok := node.(*ethclient.Client); ok {
				ec.Close()
			}
			_ = repos.Close()
			return nil, err
		}
		keys = keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP)
	}

	reader := bufio.NewReader(os.Stdin)
	prompt := &terminalPrompter{reader: reader, out: os.Stdout}

	w := wallet.NewKeystoreWallet(keys, node, repos.Authorizations, prompt,
		wallet.WithCheckInterval(c.NetworkCheckInterval),
		wallet.WithLogger(log.With("component", "wallet")))

	mgr := session.NewManager(w,
		session.BindTo(c.Address(), ledger.WithPollInterval(c.NetworkCheckInterval)),
		log.With("component", "session"))
	sync := services.NewSynchronizer(log.With("component", "sync"), services.WithReadConcurrency(c.ReadConcurrency))
	rules := services.Rules{MinFundingGoal: c.MinGoal(), MinDeadlineLead: c.MinDeadlineLead}
	orch := services.NewOrchestrator(mgr, sync, rules, log.With("component", "orchestrator"))

	a := &App{
		config:   c,
		session:  mgr,
		accounts: w,
		sync:     sync,
		orch:     orch,
		dash:     services.NewDashboard(sync, c.ReadConcurrency),
		log:      log,
		reader:   reader,
		out:      os.Stdout,
		now:      time.Now,
		close: func() error {
			mgr.Disconnect()
			if ec, ok := node.(*ethclient.Client); ok {
				ec.Close()
			}
			return repos.Close()
		},
	}

	mgr.OnChange(func(ch session.Change) {
		sync.Bind(ctx, ch.Gateway, ch.Generation, ch.Reset)
		if ch.Reset {
			a.printf("Network changed, session reset.\n")
		}
		if ch.Gateway != nil {
			go func() { _ = sync.RefreshAll(ctx) }()
		}
	})

	return a, nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// Run restores an authorized session, then serves the REPL until the user
// exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer func() {
		if a.close != nil {
			if err := a.close(); err != nil {
				a.log.Warn(ctx, "shutdown", "err", err)
			}
		}
	}()

	if err := a.session.RestoreIfAuthorized(ctx); err != nil {
		a.log.Debug(ctx, "no session restored", "err", err)
	}
	if a.session.Session().Connected() {
		_ = a.sync.RefreshAll(ctx)
	}

	a.printf("Crowdfund CLI (type 'help' for commands)\n")
	runREPL(ctx, a, a.statusLine, a.reader)
}

func (a *App) statusLine() string {
	s := a.session.Session()
	switch {
	case s.Connected():
		return models.ShortAddress(*s.Account)
	case s.Channel == models.ChannelReadOnly:
		return "read-only"
	default:
		return "disconnected"
	}
}

func (a *App) isConnected() bool {
	return a.session.Session().Connected()
}

// wrongNetwork reports whether the session's network differs from the
// configured one.
func (a *App) wrongNetwork(s models.Session) bool {
	return a.config != nil && a.config.ChainID != 0 && s.NetworkID != nil &&
		(!s.NetworkID.IsUint64() || s.NetworkID.Uint64() != a.config.ChainID)
}
