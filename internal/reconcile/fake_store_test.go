package reconcile

import (
	"context"
	"sync"

	"github.com/imrishuroy/go-payzen-notify/internal/orders"
)

// fakeStore is an in-memory OrderStore with the same compare-and-swap rule
// as orders.Store.
type fakeStore struct {
	mu      sync.Mutex
	orders  map[string]orders.Order
	settles int
	fails   int
	getErr  error
	// beforeWrite runs once, just before the first conditional write.
	beforeWrite func(s *fakeStore)
}

func newFakeStore(os ...orders.Order) *fakeStore {
	s := &fakeStore{orders: map[string]orders.Order{}}
	for _, o := range os {
		s.orders[o.OrderID] = o
	}
	return s
}

func (s *fakeStore) Get(ctx context.Context, id string) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	o.Notes = append([]string(nil), o.Notes...)
	return &o, nil
}

func (s *fakeStore) Settle(ctx context.Context, id string, expect orders.Expectation, p orders.Payment, status, note string) error {
	return s.write(id, expect, p, status, note, true)
}

func (s *fakeStore) Fail(ctx context.Context, id string, expect orders.Expectation, p orders.Payment, note string) error {
	return s.write(id, expect, p, orders.StatusFailed, note, false)
}

func (s *fakeStore) write(id string, expect orders.Expectation, p orders.Payment, status, note string, paid bool) error {
	s.mu.Lock()
	if hook := s.beforeWrite; hook != nil {
		s.beforeWrite = nil
		s.mu.Unlock()
		hook(s)
		s.mu.Lock()
	}
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok || o.Status != expect.Status || o.TransactionID != expect.TransactionID {
		return orders.ErrStatusMismatch
	}
	o.Status = status
	o.TransactionID = p.TransactionID
	o.CardNumber = p.CardNumber
	o.CardBrand = p.CardBrand
	o.CardExpiry = p.CardExpiry
	o.Notes = append(o.Notes, note)
	if paid {
		s.settles++
	} else {
		s.fails++
	}
	s.orders[id] = o
	return nil
}

func (s *fakeStore) order(id string) orders.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id]
}
