package cart

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/RaikyD/storefront-orders/internal/domain"
	"github.com/RaikyD/storefront-orders/internal/logger"
	"github.com/RaikyD/storefront-orders/internal/storefront/storage"
)

// Line is one (product, size) entry of the cart.
type Line struct {
	ProductID string  `json:"productId"`
	Size      string  `json:"size,omitempty"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image,omitempty"`
}

// normalizeSize maps every spelling of "no size" to "".
func normalizeSize(s string) string {
	return strings.TrimSpace(s)
}

func (l Line) matches(productID, size string) bool {
	return l.ProductID == productID && normalizeSize(l.Size) == normalizeSize(size)
}

// Store owns the shopper's cart and writes the full line list to storage after
// every change. It is safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	st    storage.Storage
	lines []Line
}

// Load restores the cart from st. A missing or unreadable payload yields an
// empty cart.
func Load(st storage.Storage) *Store {
	s := &Store{st: st}
	raw, ok, err := st.Get(storage.CartKey)
	if err != nil {
		logger.Warn("cart load failed, starting empty", "err", err)
		return s
	}
	if !ok {
		return s
	}
	var lines []Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		logger.Warn("cart payload corrupt, starting empty", "err", err)
		return s
	}
	for _, l := range lines {
		if strings.TrimSpace(l.ProductID) == "" || l.Quantity <= 0 {
			continue
		}
		s.merge(l, l.Quantity)
	}
	return s
}

func (s *Store) merge(line Line, quantity int) {
	line.Size = normalizeSize(line.Size)
	for i := range s.lines {
		if s.lines[i].matches(line.ProductID, line.Size) {
			s.lines[i].Quantity += quantity
			return
		}
	}
	line.Quantity = quantity
	s.lines = append(s.lines, line)
}

// AddItem increments the matching line or appends a new one. A quantity below
// one adds a single unit.
func (s *Store) AddItem(line Line, quantity int) error {
	if strings.TrimSpace(line.ProductID) == "" {
		return fmt.Errorf("add item: empty product id")
	}
	if line.UnitPrice < 0 {
		return fmt.Errorf("add item %s: negative price", line.ProductID)
	}
	if quantity < 1 {
		quantity = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.merge(line, quantity)
	return s.persist()
}

// UpdateQuantity sets the quantity of a line; zero or less removes it.
func (s *Store) UpdateQuantity(productID, size string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.lines[:0:0]
	for _, l := range s.lines {
		if l.matches(productID, size) {
			l.Quantity = quantity
		}
		if l.Quantity > 0 {
			out = append(out, l)
		}
	}
	s.lines = out
	return s.persist()
}

func (s *Store) RemoveItem(productID, size string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.lines {
		if l.matches(productID, size) {
			s.lines = append(s.lines[:i:i], s.lines[i+1:]...)
			return s.persist()
		}
	}
	return nil
}

func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	return s.persist()
}

func (s *Store) persist() error {
	lines := s.lines
	if lines == nil {
		lines = []Line{}
	}
	b, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	if err := s.st.Set(storage.CartKey, b); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

// Lines returns a copy of the cart in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Line(nil), s.lines...)
}

// Count is the total number of units in the cart.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

func (s *Store) Subtotal() float64 {
	return domain.Subtotal(Items(s.Lines()))
}

// Items converts cart lines into the order item snapshot sent at checkout.
func Items(lines []Line) []domain.Item {
	items := make([]domain.Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, domain.Item{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     l.UnitPrice,
			Quantity:  l.Quantity,
			Size:      l.Size,
			Image:     l.Image,
		})
	}
	return items
}
