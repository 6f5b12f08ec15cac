package postdesk

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eringen/postdesk/editor"
)

// draft is an open editor session. Handlers hold mu while acting on doc.
type draft struct {
	mu      sync.Mutex
	doc     *editor.Document
	owner   string
	touched time.Time
}

// DraftStore keeps the editor documents of signed-in admins between
// requests. Drafts idle for longer than the TTL are dropped.
type DraftStore struct {
	mu     sync.Mutex
	drafts map[string]*draft
	ttl    time.Duration
	now    func() time.Time
}

// NewDraftStore creates an empty store.
func NewDraftStore(ttl time.Duration) *DraftStore {
	return &DraftStore{
		drafts: make(map[string]*draft),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Add registers doc for owner and returns its id.
func (s *DraftStore) Add(owner string, doc *editor.Document) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.evictLocked(now)
	id := uuid.NewString()
	s.drafts[id] = &draft{doc: doc, owner: owner, touched: now}
	return id
}

// Get returns the draft id if it exists, has not expired and belongs to owner.
func (s *DraftStore) Get(id, owner string) (*draft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.evictLocked(now)
	d, ok := s.drafts[id]
	if !ok || d.owner != owner {
		return nil, false
	}
	d.touched = now
	return d, true
}

// Remove drops a draft.
func (s *DraftStore) Remove(id string) {
	s.mu.Lock()
	delete(s.drafts, id)
	s.mu.Unlock()
}

// Len reports the number of live drafts.
func (s *DraftStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked(s.now())
	return len(s.drafts)
}

func (s *DraftStore) evictLocked(now time.Time) {
	for id, d := range s.drafts {
		if now.Sub(d.touched) > s.ttl {
			delete(s.drafts, id)
		}
	}
}
