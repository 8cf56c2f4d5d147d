package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/NasaVasa/pairalert/internal/domain"
)

var errStoreDown = errors.New("store down")

// memStore is an in-memory AlertStore whose records expire on a manual clock.
type memStore struct {
	mu      sync.Mutex
	now     time.Time
	records map[string]time.Time
	fail    error
	deletes int
}

func newMemStore() *memStore {
	return &memStore{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), records: make(map[string]time.Time)}
}

func (s *memStore) advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = s.now.Add(d)
}

func (s *memStore) live(name string) bool {
	expires, ok := s.records[name]
	return ok && s.now.Before(expires)
}

func (s *memStore) Exists(_ context.Context, key domain.AlertKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return false, s.fail
	}
	return s.live(key.String()), nil
}

func (s *memStore) Put(_ context.Context, key domain.AlertKey, ttlMinutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.records[key.String()] = s.now.Add(time.Duration(ttlMinutes) * time.Minute)
	return nil
}

func (s *memStore) PutIfAbsent(_ context.Context, key domain.AlertKey, ttlMinutes int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return false, s.fail
	}
	if s.live(key.String()) {
		return false, nil
	}
	s.records[key.String()] = s.now.Add(time.Duration(ttlMinutes) * time.Minute)
	return true, nil
}

func (s *memStore) Delete(_ context.Context, key domain.AlertKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.deletes++
	delete(s.records, key.String())
	return nil
}

func (s *memStore) ListKeys(_ context.Context, userID string) ([]domain.AlertKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return nil, s.fail
	}
	var keys []domain.AlertKey
	for name := range s.records {
		if !s.live(name) {
			continue
		}
		key, err := domain.ParseAlertKey(name)
		if err != nil || key.UserID != userID {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *memStore) DeleteAll(ctx context.Context, userID, pairAddress string) (int, error) {
	keys, err := s.ListKeys(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, key := range keys {
		if pairAddress != "" && key.PairAddress != pairAddress {
			continue
		}
		delete(s.records, key.String())
		n++
	}
	return n, nil
}

// fakeMarket returns canned search results and a scripted metric sequence.
type fakeMarket struct {
	mu        sync.Mutex
	pairs     []domain.Pair
	searchErr error
	values    []float64
	errs      []error
	fetches   int
	searches  int
}

func (m *fakeMarket) SearchPairs(_ context.Context, _ string) ([]domain.Pair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches++
	return m.pairs, m.searchErr
}

// FetchMetric replays values/errs by call index, repeating the last entry.
func (m *fakeMarket) FetchMetric(_ context.Context, _ string, _ domain.Metric) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.fetches
	m.fetches++
	var err error
	if len(m.errs) > 0 {
		err = m.errs[min(i, len(m.errs)-1)]
	}
	if err != nil {
		return 0, err
	}
	if len(m.values) == 0 {
		return 0, domain.ErrMetricUnavailable
	}
	return m.values[min(i, len(m.values)-1)], nil
}

func (m *fakeMarket) Render(p domain.Pair) string {
	return "render:" + p.PairAddress
}

func (m *fakeMarket) fetchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}

// fakeConversation replays scripted replies; an exhausted script times out.
type fakeConversation struct {
	mu      sync.Mutex
	replies []string
	sent    []string
	awaits  int
	sendErr error
}

func newConversation(replies ...string) *fakeConversation {
	return &fakeConversation{replies: replies}
}

func (c *fakeConversation) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return c.sendErr
}

func (c *fakeConversation) AwaitReply(ctx context.Context, _ time.Duration) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.awaits++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(c.replies) == 0 {
		return "", domain.ErrReplyTimeout
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return reply, nil
}

func (c *fakeConversation) Mention() string { return "@tester" }

func (c *fakeConversation) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func (c *fakeConversation) last() string {
	msgs := c.messages()
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

// recordingSleeper counts sleeps and runs an optional hook on each.
type recordingSleeper struct {
	mu     sync.Mutex
	calls  []time.Duration
	onCall func(n int)
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	s.calls = append(s.calls, d)
	n := len(s.calls)
	hook := s.onCall
	s.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return nil
}

func (s *recordingSleeper) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func keyNames(keys []domain.AlertKey) []string {
	names := make([]string, 0, len(keys))
	for _, key := range keys {
		names = append(names, key.String())
	}
	sort.Strings(names)
	return names
}

func testPair(address, base, quote string) domain.Pair {
	return domain.Pair{
		ChainID:     "solana",
		DexID:       "raydium",
		PairAddress: address,
		BaseToken:   domain.Token{Symbol: base},
		QuoteToken:  domain.Token{Symbol: quote},
	}
}
