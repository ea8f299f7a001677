package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/pkg/e"
)

// memStore — in-memory хранилище для тестов use case'ов.
type memStore struct {
	mu sync.Mutex

	products map[int64]domain.Product
	orders   map[int64]domain.Order
	lines    []domain.OrderLine
	outbox   []*OutboxEvent

	nextProductID int64
	nextOrderID   int64
	nextLineID    int64
	nextEventID   int64

	// failCreateOrder имитирует сбой вставки заказа
	failCreateOrder error
	// decrements — productId в порядке вызовов DecrementStock, откатом не затрагивается
	decrements []int64
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[int64]domain.Product),
		orders:   make(map[int64]domain.Order),
	}
}

type memSnapshot struct {
	products map[int64]domain.Product
	orders   map[int64]domain.Order
	lines    []domain.OrderLine
	outbox   []*OutboxEvent
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := memSnapshot{
		products: make(map[int64]domain.Product, len(s.products)),
		orders:   make(map[int64]domain.Order, len(s.orders)),
		lines:    append([]domain.OrderLine(nil), s.lines...),
		outbox:   append([]*OutboxEvent(nil), s.outbox...),
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.orders {
		snap.orders[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.products = snap.products
	s.orders = snap.orders
	s.lines = snap.lines
	s.outbox = snap.outbox
}

func (s *memStore) seedProduct(name, price string, stock int) domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextProductID++
	p := domain.Product{
		ID:        s.nextProductID,
		Name:      name,
		Price:     mustDecimal(price),
		Stock:     stock,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.products[p.ID] = p
	return p
}

func (s *memStore) product(id int64) domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id]
}

func (s *memStore) decrementLog() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.decrements...)
}

func (s *memStore) counts() (orders, lines, events int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders), len(s.lines), len(s.outbox)
}

// fakeTxManager сериализует транзакции и откатывает состояние при ошибке.
type fakeTxManager struct {
	mu    sync.Mutex
	store *memStore
}

func (m *fakeTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.store.snapshot()
	if err := fn(ctx); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

type fakeProductRepo struct{ s *memStore }

func (r *fakeProductRepo) List(context.Context) ([]domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeProductRepo) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *fakeProductRepo) Create(_ context.Context, product *domain.Product) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextProductID++
	p := *product
	p.ID = r.s.nextProductID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.s.products[p.ID] = p
	return &p, nil
}

func (r *fakeProductRepo) Update(_ context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	p.UpdatedAt = time.Now()
	r.s.products[id] = p
	return &p, nil
}

func (r *fakeProductRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return false, nil
	}
	delete(r.s.products, id)
	return true, nil
}

func (r *fakeProductRepo) DecrementStock(_ context.Context, id int64, quantity int) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.decrements = append(r.s.decrements, id)

	p, ok := r.s.products[id]
	if !ok {
		return nil, e.NotFound("product %d not found", id)
	}
	if p.Stock < quantity {
		return nil, e.InsufficientStock("insufficient stock for product %d", id)
	}
	p.Stock -= quantity
	p.UpdatedAt = time.Now()
	r.s.products[id] = p
	return &p, nil
}

type fakeOrderRepo struct{ s *memStore }

func (r *fakeOrderRepo) List(context.Context) ([]domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]domain.Order, 0, len(r.s.orders))
	for _, o := range r.s.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *fakeOrderRepo) GetLines(_ context.Context, orderID int64) ([]domain.OrderLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.OrderLine
	for _, l := range r.s.lines {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) CreateWithLines(_ context.Context, order *domain.Order, lines []domain.OrderLine) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.failCreateOrder != nil {
		return nil, r.s.failCreateOrder
	}

	r.s.nextOrderID++
	o := *order
	o.ID = r.s.nextOrderID
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	r.s.orders[o.ID] = o

	for _, l := range lines {
		r.s.nextLineID++
		l.ID = r.s.nextLineID
		l.OrderID = o.ID
		r.s.lines = append(r.s.lines, l)
	}
	return &o, nil
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	r.s.orders[id] = o
	return &o, nil
}

func (r *fakeOrderRepo) GetWithLines(ctx context.Context, id int64) (*domain.OrderWithLines, error) {
	order, err := r.GetByID(ctx, id)
	if err != nil || order == nil {
		return nil, err
	}
	lines, err := r.GetLines(ctx, id)
	if err != nil {
		return nil, err
	}
	return &domain.OrderWithLines{Order: order, Lines: lines}, nil
}

type fakeOutboxRepo struct{ s *memStore }

func (r *fakeOutboxRepo) Create(_ context.Context, event *OutboxEvent) (*OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextEventID++
	ev := *event
	ev.ID = r.s.nextEventID
	ev.CreatedAt = time.Now()
	r.s.outbox = append(r.s.outbox, &ev)
	return &ev, nil
}

func (r *fakeOutboxRepo) GetAndMarkAsProcessing(context.Context, int) ([]*OutboxEvent, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) MarkAsProcessed(context.Context, int64) error { return nil }

func (r *fakeOutboxRepo) Reschedule(context.Context, int64, time.Time, string) error { return nil }

func (r *fakeOutboxRepo) MarkAsFailed(context.Context, int64, string) error { return nil }

// fakeIdempotency повторяет семантику SETNX + GET.
type fakeIdempotency struct {
	mu     sync.Mutex
	locks  map[string]bool
	orders map[string]int64
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{locks: map[string]bool{}, orders: map[string]int64{}}
}

func (f *fakeIdempotency) TryLock(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.locks[key] {
		return false, nil
	}
	f.locks[key] = true
	return true, nil
}

func (f *fakeIdempotency) Unlock(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.locks, key)
	return nil
}

func (f *fakeIdempotency) Remember(_ context.Context, key string, orderID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[key] = orderID
	return nil
}

func (f *fakeIdempotency) Recall(_ context.Context, key string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.orders[key]
	return id, ok, nil
}
