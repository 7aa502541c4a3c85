package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vitos/crypto_scalp_sim/internal/domain"
)

// MockMarket implements domain.MarketData
type MockMarket struct {
	mu         sync.Mutex
	Candles    map[string][]domain.Candle
	CandleErr  map[string]error
	Prices     map[string]float64
	PricesErr  error
	PriceCalls int
	LastPairs  []string
}

func (m *MockMarket) GetCandles(ctx context.Context, pair, interval string, limit int) ([]domain.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.CandleErr[pair]; err != nil {
		return nil, err
	}
	c, ok := m.Candles[pair]
	if !ok {
		return nil, errors.New("unknown symbol")
	}
	return append([]domain.Candle(nil), c...), nil
}

func (m *MockMarket) GetPrice(ctx context.Context, pair string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Prices[pair], nil
}

func (m *MockMarket) GetPrices(ctx context.Context, pairs []string) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PriceCalls++
	m.LastPairs = append([]string(nil), pairs...)
	if m.PricesErr != nil {
		return nil, m.PricesErr
	}
	out := make(map[string]float64)
	for _, p := range pairs {
		if v, ok := m.Prices[p]; ok {
			out[p] = v
		}
	}
	return out, nil
}

func (m *MockMarket) Ping(ctx context.Context) error { return nil }

// MockRepo implements domain.PositionRepository in memory
type MockRepo struct {
	mu          sync.Mutex
	positions   map[string]*domain.Position
	order       []string
	nextID      int
	InsertErr   map[string]error // by pair
	FetchErr    error
	UpdateErr   error
	StopLossErr error
}

func NewMockRepo(open ...*domain.Position) *MockRepo {
	r := &MockRepo{positions: make(map[string]*domain.Position)}
	for _, p := range open {
		cp := *p
		r.positions[cp.ID] = &cp
		r.order = append(r.order, cp.ID)
	}
	return r
}

func (r *MockRepo) InsertPosition(ctx context.Context, pos *domain.Position) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.InsertErr[pos.Pair]; err != nil {
		return "", err
	}
	r.nextID++
	cp := *pos
	cp.ID = fmt.Sprintf("pos-%d", r.nextID)
	r.positions[cp.ID] = &cp
	r.order = append(r.order, cp.ID)
	return cp.ID, nil
}

func (r *MockRepo) FetchOpenPositions(ctx context.Context) ([]*domain.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FetchErr != nil {
		return nil, r.FetchErr
	}
	var out []*domain.Position
	for _, id := range r.order {
		if p := r.positions[id]; p.State == domain.StateOpen {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MockRepo) UpdatePosition(ctx context.Context, id string, f domain.CloseFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpdateErr != nil {
		return r.UpdateErr
	}
	p, ok := r.positions[id]
	if !ok || p.State != domain.StateOpen {
		return fmt.Errorf("position %s is not open", id)
	}
	p.State = f.State
	p.ExitTime = &f.ExitTime
	p.ExitPrice = &f.ExitPrice
	p.Profit = &f.Profit
	return nil
}

func (r *MockRepo) UpdateStopLoss(ctx context.Context, id string, stopLoss float64, breakeven bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.StopLossErr != nil {
		return r.StopLossErr
	}
	p, ok := r.positions[id]
	if !ok {
		return fmt.Errorf("position %s not found", id)
	}
	p.StopLoss = stopLoss
	p.BreakevenActive = breakeven
	return nil
}

func (r *MockRepo) ListPositions(ctx context.Context, limit int) ([]*domain.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Position
	for _, id := range r.order {
		cp := *r.positions[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MockRepo) Get(id string) domain.Position {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.positions[id]
}

func (r *MockRepo) ByPair(pair string) []domain.Position {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Position
	for _, id := range r.order {
		if p := r.positions[id]; p.Pair == pair {
			out = append(out, *p)
		}
	}
	return out
}

// MockNotifier records alerts
type MockNotifier struct {
	mu     sync.Mutex
	Alerts []domain.Alert
	Err    error
}

func (n *MockNotifier) Notify(ctx context.Context, alert domain.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Alerts = append(n.Alerts, alert)
	return n.Err
}

func (n *MockNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Alerts)
}
