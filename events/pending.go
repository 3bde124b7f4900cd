package events

import (
	"sort"
	"sync"
	"time"
)

// pendingSet holds open workflows until they are answered. take removes an
// entry, so only one caller can ever answer a workflow.
type pendingSet struct {
	mu   sync.Mutex
	byID map[string]Workflow
}

func newPendingSet() *pendingSet {
	return &pendingSet{byID: make(map[string]Workflow)}
}

func (p *pendingSet) add(wf Workflow) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byID[wf.ID] = wf
}

func (p *pendingSet) take(id string) (Workflow, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	wf, ok := p.byID[id]
	if ok {
		delete(p.byID, id)
	}
	return wf, ok
}

func (p *pendingSet) get(id string) (Workflow, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	wf, ok := p.byID[id]
	return wf, ok
}

// ids returns the open workflow ids, oldest first.
func (p *pendingSet) ids() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sortedLocked(func(Workflow) bool { return true })
}

// expired returns the ids of workflows whose expiry is before now.
func (p *pendingSet) expired(now time.Time) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sortedLocked(func(wf Workflow) bool {
		return !wf.ExpiresAt.IsZero() && wf.ExpiresAt.Before(now)
	})
}

// dropTopic removes every workflow of a session without answering it.
func (p *pendingSet) dropTopic(topic string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := p.sortedLocked(func(wf Workflow) bool { return wf.Topic == topic })
	for _, id := range ids {
		delete(p.byID, id)
	}
	return ids
}

func (p *pendingSet) sortedLocked(keep func(Workflow) bool) []string {
	var out []Workflow
	for _, wf := range p.byID {
		if keep(wf) {
			out = append(out, wf)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	ids := make([]string, len(out))
	for i, wf := range out {
		ids[i] = wf.ID
	}
	return ids
}
