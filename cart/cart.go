package cart

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/delivery/models"
)

const (
	CartKey        = "deliveryApp_cart"
	LastAddressKey = "deliveryApp_lastAddress"
)

var (
	ErrMixedBusiness = errors.New("cart already holds items from another business")
	ErrInvalidItem   = errors.New("cart item needs a product and a business")
)

// Store is the client's draft cart and last used delivery address.
type Store struct {
	mu      sync.Mutex
	storage Storage
}

func New(storage Storage) *Store {
	return &Store{storage: storage}
}

func (s *Store) Get(clientID uuid.UUID) models.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(clientID)
}

// Add puts an item in the cart, or raises its quantity when the product is
// already there.
func (s *Store) Add(clientID uuid.UUID, item models.CartItem) (models.Cart, error) {
	if item.ProductID == uuid.Nil || item.BusinessID == uuid.Nil {
		return models.Cart{}, ErrInvalidItem
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.load(clientID)
	if !c.IsEmpty() && c.BusinessID() != item.BusinessID {
		return c, ErrMixedBusiness
	}
	found := false
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity += item.Quantity
			found = true
			break
		}
	}
	if !found {
		c.Items = append(c.Items, item)
	}
	s.save(clientID, c)
	return c, nil
}

// UpdateQuantity changes an item's quantity by delta. Dropping to zero or
// below removes the item.
func (s *Store) UpdateQuantity(clientID, productID uuid.UUID, delta int) models.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.load(clientID)
	items := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID == productID {
			it.Quantity += delta
			if it.Quantity <= 0 {
				continue
			}
		}
		items = append(items, it)
	}
	c.Items = items
	s.save(clientID, c)
	return c
}

func (s *Store) Remove(clientID, productID uuid.UUID) models.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.load(clientID)
	items := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID != productID {
			items = append(items, it)
		}
	}
	c.Items = items
	s.save(clientID, c)
	return c
}

func (s *Store) Clear(clientID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.storage.Delete(clientID.String(), CartKey)
}

// ClearOrdered takes the items of an ordered cart out of the stored one.
// Anything added after the order was priced stays behind.
func (s *Store) ClearOrdered(clientID uuid.UUID, ordered models.Cart) models.Cart {
	taken := make(map[uuid.UUID]int, len(ordered.Items))
	for _, it := range ordered.Items {
		taken[it.ProductID] += it.Quantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.load(clientID)
	items := c.Items[:0]
	for _, it := range c.Items {
		it.Quantity -= taken[it.ProductID]
		if it.Quantity > 0 {
			items = append(items, it)
		}
	}
	c.Items = items
	s.save(clientID, c)
	return c
}

func (s *Store) LastAddress(clientID uuid.UUID) (models.Address, bool) {
	raw, ok := s.storage.Get(clientID.String(), LastAddressKey)
	if !ok {
		return models.Address{}, false
	}
	var addr models.Address
	if err := json.Unmarshal([]byte(raw), &addr); err != nil {
		logrus.WithError(err).Warn("discarding unreadable last address")
		return models.Address{}, false
	}
	return addr, true
}

func (s *Store) SaveLastAddress(clientID uuid.UUID, addr models.Address) {
	b, err := json.Marshal(addr)
	if err != nil {
		logrus.WithError(err).Error("failed to encode last address")
		return
	}
	s.storage.Set(clientID.String(), LastAddressKey, string(b))
}

func (s *Store) load(clientID uuid.UUID) models.Cart {
	c := models.Cart{Items: make([]models.CartItem, 0)}
	raw, ok := s.storage.Get(clientID.String(), CartKey)
	if !ok {
		return c
	}
	if err := json.Unmarshal([]byte(raw), &c.Items); err != nil {
		logrus.WithError(err).Warn("discarding unreadable cart")
		return models.Cart{Items: make([]models.CartItem, 0)}
	}
	return c
}

func (s *Store) save(clientID uuid.UUID, c models.Cart) {
	if c.IsEmpty() {
		s.storage.Delete(clientID.String(), CartKey)
		return
	}
	b, err := json.Marshal(c.Items)
	if err != nil {
		logrus.WithError(err).Error("failed to encode cart")
		return
	}
	s.storage.Set(clientID.String(), CartKey, string(b))
}
