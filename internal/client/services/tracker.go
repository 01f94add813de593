package services

import (
	"sync"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

type ActionState string

const (
	ActionPending ActionState = "pending"
	ActionSuccess ActionState = "success"
	ActionError   ActionState = "error"
)

// ActionStatus is the progress of one user-initiated transaction.
type ActionStatus struct {
	ID         string
	Action     string
	CampaignID uint64
	State      ActionState
	Message    string
	TxHash     ethcommon.Hash
	UpdatedAt  time.Time
}

// tracker keeps the status of every invocation, and for campaign actions the
// latest invocation per campaign.
type tracker struct {
	mu         sync.Mutex
	byID       map[string]*ActionStatus
	byCampaign map[uint64]string
	now        func() time.Time
}

func newTracker(now func() time.Time) *tracker {
	return &tracker{
		byID:       make(map[string]*ActionStatus),
		byCampaign: make(map[uint64]string),
		now:        now,
	}
}

func (t *tracker) start(id, action string, campaignID uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byID[id] = &ActionStatus{ID: id, Action: action, CampaignID: campaignID, State: ActionPending, UpdatedAt: t.now()}
	if campaignID != 0 {
		t.byCampaign[campaignID] = id
	}
}

func (t *tracker) submitted(id string, hash ethcommon.Hash) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st, ok := t.byID[id]; ok {
		st.TxHash = hash
		st.UpdatedAt = t.now()
	}
}

func (t *tracker) finish(id string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.byID[id]
	if !ok {
		return
	}
	st.State, st.Message = ActionSuccess, ""
	if err != nil {
		st.State, st.Message = ActionError, err.Error()
	}
	st.UpdatedAt = t.now()
}

func (t *tracker) get(id string) (ActionStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.byID[id]
	if !ok {
		return ActionStatus{}, false
	}
	return *st, true
}

func (t *tracker) forCampaign(campaignID uint64) (ActionStatus, bool) {
	t.mu.Lock()
	id, ok := t.byCampaign[campaignID]
	t.mu.Unlock()
	if !ok {
		return ActionStatus{}, false
	}
	return t.get(id)
}
