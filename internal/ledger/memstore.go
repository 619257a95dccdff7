package ledger

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory Store. Units are serialized under one mutex, so
// two operations against the same account observe each other's committed
// writes exactly as they would through the conflict-retry discipline. Tests
// use FailNextCommits to exercise the retry path.
type MemStore struct {
	mu          sync.Mutex
	accounts    map[string]Account
	entries     map[string]Entry
	entryOrder  []string
	obligations map[string]Obligation
	milestones  map[string]Milestones
	conflicts   int
}

func NewMemStore() *MemStore {
	return &MemStore{
		accounts:    map[string]Account{},
		entries:     map[string]Entry{},
		obligations: map[string]Obligation{},
		milestones:  map[string]Milestones{},
	}
}

// FailNextCommits makes the next n units fail with ErrSerialization before
// running, simulating write-write conflicts.
func (s *MemStore) FailNextCommits(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts = n
}

// Seed installs an account directly, outside any unit. Test setup only.
func (s *MemStore) Seed(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.Currency == "" {
		a.Currency = DefaultCurrency
	}
	s.accounts[a.ID] = a
}

// SeedMilestones installs a milestone row, standing in for the profile
// collaborator that owns it in production.
func (s *MemStore) SeedMilestones(m Milestones) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.milestones[m.UserID] = m
}

func (s *MemStore) Atomic(ctx context.Context, fn func(ops Ops) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conflicts > 0 {
		s.conflicts--
		return ErrSerialization
	}
	snap := s.snapshot()
	if err := fn(&memOps{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type memSnapshot struct {
	accounts    map[string]Account
	entries     map[string]Entry
	entryOrder  []string
	obligations map[string]Obligation
	milestones  map[string]Milestones
}

func (s *MemStore) snapshot() memSnapshot {
	snap := memSnapshot{
		accounts:    make(map[string]Account, len(s.accounts)),
		entries:     make(map[string]Entry, len(s.entries)),
		entryOrder:  append([]string(nil), s.entryOrder...),
		obligations: make(map[string]Obligation, len(s.obligations)),
		milestones:  make(map[string]Milestones, len(s.milestones)),
	}
	for k, v := range s.accounts {
		snap.accounts[k] = v
	}
	for k, v := range s.entries {
		snap.entries[k] = v
	}
	for k, v := range s.obligations {
		snap.obligations[k] = v
	}
	for k, v := range s.milestones {
		snap.milestones[k] = v
	}
	return snap
}

func (s *MemStore) restore(snap memSnapshot) {
	s.accounts = snap.accounts
	s.entries = snap.entries
	s.entryOrder = snap.entryOrder
	s.obligations = snap.obligations
	s.milestones = snap.milestones
}

type memOps struct {
	s *MemStore
}

func (o *memOps) Account(_ context.Context, id string) (Account, error) {
	a, ok := o.s.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (o *memOps) EnsureAccount(_ context.Context, id string) (Account, error) {
	if a, ok := o.s.accounts[id]; ok {
		return a, nil
	}
	a := Account{ID: id, Currency: DefaultCurrency, CreatedAt: time.Now()}
	o.s.accounts[id] = a
	return a, nil
}

func (o *memOps) ApplyBalance(_ context.Context, id string, delta int64) error {
	a, ok := o.s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	if a.Balance+delta < 0 {
		return ErrInsufficientFunds
	}
	a.Balance += delta
	o.s.accounts[id] = a
	return nil
}

func (o *memOps) ApplyEscrow(_ context.Context, id string, delta int64) error {
	a, ok := o.s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	if a.Escrow+delta < 0 {
		return ErrInvalidState
	}
	a.Escrow += delta
	o.s.accounts[id] = a
	return nil
}

func (o *memOps) AddLifetime(_ context.Context, id string, earned, spent int64) error {
	a, ok := o.s.accounts[id]
	if !ok {
		return ErrAccountNotFound
	}
	a.TotalEarned += earned
	a.TotalSpent += spent
	o.s.accounts[id] = a
	return nil
}

func (o *memOps) AppendEntry(_ context.Context, e Entry) error {
	if e.ExternalRef != "" {
		for _, id := range o.s.entryOrder {
			prior := o.s.entries[id]
			if prior.AccountID == e.AccountID && prior.ExternalRef == e.ExternalRef {
				return ErrDuplicateEntry
			}
		}
	}
	o.s.entries[e.ID] = e
	o.s.entryOrder = append(o.s.entryOrder, e.ID)
	return nil
}

func (o *memOps) EntryByID(_ context.Context, id string) (Entry, error) {
	e, ok := o.s.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (o *memOps) EntryByExternalRef(_ context.Context, accountID, externalRef string) (Entry, error) {
	for _, id := range o.s.entryOrder {
		e := o.s.entries[id]
		if e.AccountID == accountID && e.ExternalRef == externalRef {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

func (o *memOps) EntriesByCounterpartyRef(_ context.Context, ref string) ([]Entry, error) {
	var out []Entry
	for _, id := range o.s.entryOrder {
		if e := o.s.entries[id]; e.CounterpartyRef == ref {
			out = append(out, e)
		}
	}
	return out, nil
}

func (o *memOps) SetEntryStatus(_ context.Context, id string, from, to EntryStatus) error {
	e, ok := o.s.entries[id]
	if !ok {
		return ErrNotFound
	}
	if e.Status != from {
		return ErrInvalidState
	}
	e.Status = to
	o.s.entries[id] = e
	return nil
}

func (o *memOps) CreateObligation(_ context.Context, ob Obligation) error {
	if _, ok := o.s.obligations[ob.ID]; ok {
		return ErrDuplicateEntry
	}
	o.s.obligations[ob.ID] = ob
	return nil
}

func (o *memOps) Obligation(_ context.Context, id string) (Obligation, error) {
	ob, ok := o.s.obligations[id]
	if !ok {
		return Obligation{}, ErrNotFound
	}
	return ob, nil
}

func (o *memOps) SettleObligation(_ context.Context, id string, to ObligationStatus) error {
	ob, ok := o.s.obligations[id]
	if !ok {
		return ErrNotFound
	}
	if ob.Status != ObligationHeld {
		return ErrInvalidState
	}
	now := time.Now()
	ob.Status = to
	ob.SettledAt = &now
	o.s.obligations[id] = ob
	return nil
}

func (o *memOps) Milestones(_ context.Context, userID string) (Milestones, error) {
	if m, ok := o.s.milestones[userID]; ok {
		return m, nil
	}
	return Milestones{UserID: userID}, nil
}

func (o *memOps) SaveMilestones(_ context.Context, m Milestones) error {
	o.s.milestones[m.UserID] = m
	return nil
}

// Reporting reads.

func (s *MemStore) AccountByID(_ context.Context, id string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (s *MemStore) Accounts(_ context.Context) ([]Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemStore) AccountEntries(_ context.Context, accountID string, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for i := len(s.entryOrder) - 1; i >= 0 && len(out) < limit; i-- {
		if e := s.entries[s.entryOrder[i]]; e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemStore) RecentEntries(_ context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for i := len(s.entryOrder) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.entries[s.entryOrder[i]])
	}
	return out, nil
}

func (s *MemStore) PendingWithdrawals(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, id := range s.entryOrder {
		e := s.entries[id]
		if e.Kind == KindWithdrawal && e.Status == StatusPending {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemStore) ObligationsByStatus(_ context.Context, status ObligationStatus) ([]Obligation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Obligation
	for _, ob := range s.obligations {
		if ob.Status == status {
			out = append(out, ob)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
