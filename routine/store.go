package routine

import (
	"sort"
	"sync"
	"time"
)

const (
	TagRoutine  = "ROUTINE"
	TagConcern  = "CONCERN"
	TagMealPlan = "MEAL_PLAN"
)

type Entry struct {
	Activity  string    `json:"activity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// AuditEntry records one handled message, tagged by the handler that produced it.
type AuditEntry struct {
	Tag       string    `json:"tag"`
	Input     string    `json:"input"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// Record is a point-in-time copy of one user's state.
type Record struct {
	LastConcern string             `json:"last_concern,omitempty"`
	Activities  map[string][]Entry `json:"activities"`
	Audit       []AuditEntry       `json:"audit,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

type user struct {
	mu          sync.Mutex
	lastConcern string
	activities  map[string][]Entry
	audit       []AuditEntry
	createdAt   time.Time
	lastStamp   time.Time
}

// stamp returns a timestamp never earlier than the previous one handed out for this user.
func (u *user) stamp(now time.Time) time.Time {
	if now.Before(u.lastStamp) {
		now = u.lastStamp
	}
	u.lastStamp = now
	return now
}

// Store is an in-memory, append-only ledger keyed by user. Each user has its own lock,
// so writes for different users never contend.
type Store struct {
	mu    sync.RWMutex
	users map[string]*user
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{users: map[string]*user{}, now: time.Now}
}

func (s *Store) get(userID string) (*user, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	return u, ok
}

func (s *Store) getOrCreate(userID string) *user {
	if u, ok := s.get(userID); ok {
		return u
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		return u
	}
	u := &user{activities: map[string][]Entry{}, createdAt: s.now()}
	s.users[userID] = u
	return u
}

// Log appends an entry under activity and makes activity the user's last concern.
func (s *Store) Log(userID, activity, message string) Entry {
	u := s.getOrCreate(userID)
	u.mu.Lock()
	defer u.mu.Unlock()
	e := Entry{Activity: activity, Message: message, Timestamp: u.stamp(s.now())}
	u.activities[activity] = append(u.activities[activity], e)
	u.lastConcern = activity
	return e
}

func (s *Store) SetLastConcern(userID, concern string) {
	u := s.getOrCreate(userID)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.lastConcern = concern
}

func (s *Store) Audit(userID, tag, input, detail string) AuditEntry {
	u := s.getOrCreate(userID)
	u.mu.Lock()
	defer u.mu.Unlock()
	a := AuditEntry{Tag: tag, Input: input, Detail: detail, Timestamp: u.stamp(s.now())}
	u.audit = append(u.audit, a)
	return a
}

// Entries returns a copy of the user's entries for one activity.
func (s *Store) Entries(userID, activity string) []Entry {
	u, ok := s.get(userID)
	if !ok {
		return nil
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]Entry(nil), u.activities[activity]...)
}

func (s *Store) Get(userID string) (Record, bool) {
	u, ok := s.get(userID)
	if !ok {
		return Record{}, false
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	rec := Record{
		LastConcern: u.lastConcern,
		Activities:  make(map[string][]Entry, len(u.activities)),
		Audit:       append([]AuditEntry(nil), u.audit...),
		CreatedAt:   u.createdAt,
	}
	for k, v := range u.activities {
		rec.Activities[k] = append([]Entry(nil), v...)
	}
	return rec, true
}

func (s *Store) Users() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.users))
	for id := range s.users {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
