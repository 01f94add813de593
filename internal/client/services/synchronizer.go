package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/crowdfund/internal/client/ledger"
	"github.com/dmitrijs2005/crowdfund/internal/client/models"
	"github.com/dmitrijs2005/crowdfund/internal/client/normalize"
	"github.com/dmitrijs2005/crowdfund/internal/common"
	"github.com/dmitrijs2005/crowdfund/internal/logging"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

const (
	defaultReadConcurrency  = 8
	defaultResubscribeDelay = 2 * time.Second
)

var watchedEvents = []ledger.EventName{ledger.EventCampaignCreated, ledger.EventContributionMade}

// Synchronizer keeps a local snapshot of every campaign in sync with the
// ledger. It refetches everything on each invalidation; the snapshot is only
// ever handed out as filtered copies.
type Synchronizer interface {
	// Bind attaches the synchronizer to a session generation. A nil gateway
	// or reset drops the snapshot.
	Bind(ctx context.Context, gw ledger.Gateway, generation uint64, reset bool)
	RefreshAll(ctx context.Context) error
	FetchOne(ctx context.Context, id uint64) (models.Campaign, error)
	UserContribution(ctx context.Context, id uint64, account ethcommon.Address) models.Amount

	SetFilter(filter string) error
	SetSearch(term string)
	Filter() string
	Search() string

	// Campaigns is the snapshot narrowed by the active filter and search.
	Campaigns() []models.Campaign
	// All is the whole snapshot.
	All() []models.Campaign
	// Err is the error of the last refresh, nil after a successful one.
	Err() error
}

// round is one refresh execution shared by everyone waiting on it.
type round struct {
	done chan struct{}
	err  error
}

type synchronizer struct {
	log              logging.Logger
	now              func() time.Time
	concurrency      int
	resubscribeDelay time.Duration

	mu         sync.Mutex
	ctx        context.Context
	gw         ledger.Gateway
	generation uint64
	// binding counts Bind calls; event watches started for an older binding stop.
	binding uint64
	subs    map[ledger.EventName]ledger.Subscription
	snapshot   []models.Campaign
	filter     string
	search     string
	lastErr    error

	running *round
	queued  *round
}

type SyncOption func(*synchronizer)

// WithClock replaces time.Now for status derivation.
func WithClock(now func() time.Time) SyncOption {
	return func(s *synchronizer) { s.now = now }
}

// WithReadConcurrency bounds the number of parallel campaign reads.
func WithReadConcurrency(n int) SyncOption {
	return func(s *synchronizer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithResubscribeDelay sets the pause before a failed or ended event
// subscription is retried.
func WithResubscribeDelay(d time.Duration) SyncOption {
	return func(s *synchronizer) {
		if d > 0 {
			s.resubscribeDelay = d
		}
	}
}

func NewSynchronizer(log logging.Logger, opts ...SyncOption) Synchronizer {
	s := &synchronizer{
		log:              log,
		now:              time.Now,
		concurrency:      defaultReadConcurrency,
		resubscribeDelay: defaultResubscribeDelay,
		ctx:         context.Background(),
		filter:      models.FilterAll,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *synchronizer) Bind(ctx context.Context, gw ledger.Gateway, generation uint64, reset bool) {
	s.mu.Lock()
	old := s.subs
	s.subs = map[ledger.EventName]ledger.Subscription{}
	s.binding++
	binding := s.binding
	s.ctx = ctx
	s.gw = gw
	s.generation = generation
	if gw == nil || reset {
		s.snapshot = nil
		s.lastErr = nil
	}
	s.mu.Unlock()

	for _, sub := range old {
		sub.Unsubscribe()
	}
	if gw == nil {
		s.log.Debug(ctx, "synchronizer unbound", "generation", generation)
		return
	}

	for _, name := range watchedEvents {
		s.watch(ctx, gw, binding, generation, name, false)
	}
}

// watch subscribes to name and keeps the subscription alive for as long as
// binding is current: failed or ended subscriptions are retried after
// resubscribeDelay. A resumed watch refreshes, since events may have been
// missed in between.
func (s *synchronizer) watch(ctx context.Context, gw ledger.Gateway, binding, generation uint64, name ledger.EventName, resumed bool) {
	if ctx.Err() != nil || !s.bound(binding) {
		return
	}

	sub, err := gw.Subscribe(ctx, name, s.onEvent(generation), func(err error) {
		s.log.Warn(ctx, "event subscription ended, resubscribing", "event", name, "err", err)
		s.retryWatch(ctx, gw, binding, generation, name)
	})
	if err != nil {
		s.log.Warn(ctx, "event subscription failed, retrying", "event", name, "err", err, "retry_in", s.resubscribeDelay)
		s.retryWatch(ctx, gw, binding, generation, name)
		return
	}

	s.mu.Lock()
	if s.binding != binding {
		s.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	prev := s.subs[name]
	s.subs[name] = sub
	s.mu.Unlock()

	if prev != nil {
		prev.Unsubscribe()
	}
	if resumed {
		s.log.Info(ctx, "event subscription resumed", "event", name, "generation", generation)
		go func() { _ = s.RefreshAll(ctx) }()
	}
}

func (s *synchronizer) retryWatch(ctx context.Context, gw ledger.Gateway, binding, generation uint64, name ledger.EventName) {
	time.AfterFunc(s.resubscribeDelay, func() {
		s.watch(ctx, gw, binding, generation, name, true)
	})
}

func (s *synchronizer) bound(binding uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.binding == binding
}

func (s *synchronizer) onEvent(generation uint64) func(ledger.Event) {
	return func(ev ledger.Event) {
		s.mu.Lock()
		ctx, current := s.ctx, s.generation
		s.mu.Unlock()
		if current != generation {
			return
		}

		args := []any{"event", ev.Name}
		if ev.CampaignID != nil {
			args = append(args, "campaign_id", ev.CampaignID)
		}
		s.log.Debug(ctx, "ledger event, refreshing", args...)

		go func() { _ = s.RefreshAll(ctx) }()
	}
}

// RefreshAll reloads every campaign. Calls made while a refresh is running
// share one follow-up refresh that starts when the running one finishes.
func (s *synchronizer) RefreshAll(ctx context.Context) error {
	s.mu.Lock()
	if s.running != nil {
		if s.queued == nil {
			s.queued = &round{done: make(chan struct{})}
		}
		r := s.queued
		s.mu.Unlock()

		select {
		case <-r.done:
			return r.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r := &round{done: make(chan struct{})}
	s.running = r
	s.mu.Unlock()

	s.run(ctx, r)
	return r.err
}

func (s *synchronizer) run(ctx context.Context, r *round) {
	r.err = s.refresh(ctx)

	s.mu.Lock()
	next := s.queued
	s.queued = nil
	s.running = next
	s.mu.Unlock()

	close(r.done)
	if next != nil {
		go s.run(context.WithoutCancel(ctx), next)
	}
}

func (s *synchronizer) refresh(ctx context.Context) error {
	s.mu.Lock()
	gw, gen := s.gw, s.generation
	s.mu.Unlock()

	if gw == nil {
		return nil
	}

	count, err := gw.CampaignCount(ctx)
	if err != nil {
		return s.fail(ctx, gen, err)
	}

	now := s.now()
	campaigns := make([]models.Campaign, count)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range campaigns {
		id := uint64(i + 1)
		g.Go(func() error {
			rec, err := gw.Campaign(gctx, id)
			if err != nil {
				return err
			}
			campaigns[id-1] = normalize.Normalize(rec, id, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return s.fail(ctx, gen, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		s.log.Debug(ctx, "discarding stale refresh", "generation", gen, "current", s.generation)
		return nil
	}
	s.snapshot = campaigns
	s.lastErr = nil
	s.log.Info(ctx, "campaigns refreshed", "count", count, "generation", gen)
	return nil
}

func (s *synchronizer) fail(ctx context.Context, gen uint64, err error) error {
	var ce *common.Error
	if !errors.As(err, &ce) {
		err = common.Wrap(common.ErrReadFailed, err)
	}

	s.mu.Lock()
	if s.generation == gen {
		s.lastErr = err
	}
	s.mu.Unlock()

	s.log.Warn(ctx, "campaign refresh failed, keeping previous snapshot", "generation", gen, "err", err)
	return err
}

func (s *synchronizer) gateway() ledger.Gateway {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gw
}

// FetchOne reads a single campaign straight from the ledger.
func (s *synchronizer) FetchOne(ctx context.Context, id uint64) (models.Campaign, error) {
	if id < 1 {
		return models.Campaign{}, common.Validation("campaign id must be at least 1")
	}
	gw := s.gateway()
	if gw == nil {
		return models.Campaign{}, common.NewError(common.ErrNotConnected, "no ledger channel, connect or browse first")
	}

	rec, err := gw.Campaign(ctx, id)
	if err != nil {
		return models.Campaign{}, err
	}
	if rec.Creator == (ethcommon.Address{}) {
		return models.Campaign{}, common.NewError(common.ErrReadFailed, "campaign %d not found", id)
	}
	return normalize.Normalize(rec, id, s.now()), nil
}

// UserContribution is zero when the ledger is unreachable or the read fails.
func (s *synchronizer) UserContribution(ctx context.Context, id uint64, account ethcommon.Address) models.Amount {
	gw := s.gateway()
	if gw == nil {
		return models.Amount{}
	}
	wei, err := gw.Contribution(ctx, id, account)
	if err != nil {
		s.log.Debug(ctx, "contribution lookup failed", "campaign_id", id, "err", err)
		return models.Amount{}
	}
	return models.NewAmount(wei)
}

func (s *synchronizer) SetFilter(filter string) error {
	f, err := models.ParseStatusFilter(filter)
	if err != nil {
		return common.Validation(err.Error())
	}
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
	return nil
}

func (s *synchronizer) SetSearch(term string) {
	s.mu.Lock()
	s.search = strings.TrimSpace(term)
	s.mu.Unlock()
}

func (s *synchronizer) Filter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

func (s *synchronizer) Search() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.search
}

func (s *synchronizer) Campaigns() []models.Campaign {
	s.mu.Lock()
	snap, filter, search := s.snapshot, s.filter, s.search
	s.mu.Unlock()

	now := s.now()
	out := make([]models.Campaign, 0, len(snap))
	for _, c := range snap {
		c = normalize.Refresh(c, now)
		if models.MatchesStatus(c, filter) && models.MatchesSearch(c, search) {
			out = append(out, c)
		}
	}
	return out
}

func (s *synchronizer) All() []models.Campaign {
	s.mu.Lock()
	snap := s.snapshot
	s.mu.Unlock()

	now := s.now()
	out := make([]models.Campaign, len(snap))
	for i, c := range snap {
		out[i] = normalize.Refresh(c, now)
	}
	return out
}

func (s *synchronizer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}
