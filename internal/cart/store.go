package cart

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/liabooks/cartsync/pkg/config"
	"github.com/liabooks/cartsync/pkg/logger"
	"github.com/liabooks/cartsync/pkg/types"
)

// Persistence is the durable key/blob surface backing the store.
type Persistence interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
}

// persistedCart is the blob written under the cart key. CartID identifies
// this device-local cart across restarts, independent of any account.
type persistedCart struct {
	CartID string           `json:"cartId"`
	Lines  []types.CartLine `json:"lines"`
}

type removedEntry struct {
	ItemID    string    `json:"itemId"`
	RemovedAt time.Time `json:"removedAt"`
}

// Store holds the in-memory cart, mirrors every mutation to persistence,
// and fans snapshots out to subscribers. Persistence is best effort, like
// the browser storage it stands in for: a failed write is logged and the
// in-memory state stays authoritative.
type Store struct {
	mu          sync.Mutex
	persistence Persistence
	cfg         config.StorageConfig
	logg        *logger.Logger
	now         func() time.Time

	cartID   string
	cart     types.Cart
	removed  []removedEntry
	watchers []chan types.Cart
}

type StoreOption func(*Store)

// WithClock overrides the ledger clock.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore hydrates the cart and the removed-item ledger from persistence.
// A corrupt blob hydrates as empty rather than failing construction.
func NewStore(ctx context.Context, persistence Persistence, cfg config.StorageConfig, logg *logger.Logger, opts ...StoreOption) (*Store, error) {
	store := &Store{
		persistence: persistence,
		cfg:         cfg,
		logg:        logg,
		now:         time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	store.hydrate(ctx)
	if store.cartID == "" {
		store.cartID = uuid.NewString()
		store.persistCart(ctx)
	}

	return store, nil
}

func (s *Store) hydrate(ctx context.Context) {
	blob, err := s.persistence.Load(ctx, s.cfg.CartKey)
	if err != nil {
		s.logg.Warn(ctx, "cart hydration failed, starting empty: "+err.Error())
	} else if len(blob) > 0 {
		var state persistedCart
		if err := json.Unmarshal(blob, &state); err != nil {
			s.logg.Warn(ctx, "stored cart is corrupt, starting empty")
		} else {
			s.cartID = state.CartID
			s.cart = types.Cart{Lines: state.Lines}
		}
	}

	blob, err = s.persistence.Load(ctx, s.cfg.RemovedKey)
	if err != nil {
		s.logg.Warn(ctx, "removed ledger hydration failed, starting empty: "+err.Error())
		return
	}
	if len(blob) == 0 {
		return
	}
	var removed []removedEntry
	if err := json.Unmarshal(blob, &removed); err != nil {
		s.logg.Warn(ctx, "stored removed ledger is corrupt, starting empty")
		return
	}
	s.removed = removed
	s.pruneRemovedLocked()
}

// CartID identifies this device-local cart in logs and diagnostics.
func (s *Store) CartID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartID
}

// Snapshot returns a deep copy of the current cart.
func (s *Store) Snapshot() types.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// Changes returns a channel that yields the latest cart snapshot and a
// cancel func that unsubscribes and closes it. A new subscriber
// immediately receives the current state; intermediate states may be
// dropped in favor of the most recent one.
func (s *Store) Changes() (<-chan types.Cart, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan types.Cart, 1)
	ch <- s.cart.Clone()
	s.watchers = append(s.watchers, ch)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, watcher := range s.watchers {
				if watcher == ch {
					s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
					break
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) notifyLocked() {
	for _, ch := range s.watchers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s.cart.Clone():
		default:
		}
	}
}

// ApplyLocal merges one line into the cart: an existing line (by item id)
// gains the incoming quantity and refreshed display fields, a new line is
// appended.
func (s *Store) ApplyLocal(ctx context.Context, line types.CartLine) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := false
	for i := range s.cart.Lines {
		if s.cart.Lines[i].ItemID != line.ItemID {
			continue
		}
		existing := &s.cart.Lines[i]
		existing.Quantity += line.Quantity
		if line.Title != "" {
			existing.Title = line.Title
		}
		if line.AuthorDisplay != "" {
			existing.AuthorDisplay = line.AuthorDisplay
		}
		if line.UnitPrice.IsPositive() {
			existing.UnitPrice = line.UnitPrice
		}
		if line.ImageURL != "" {
			existing.ImageURL = line.ImageURL
		}
		if line.SKUID != nil {
			existing.SKUID = line.SKUID
		}
		if line.AvailableStock != nil {
			existing.AvailableStock = line.AvailableStock
		}
		if line.RemoteLineID != nil {
			existing.RemoteLineID = line.RemoteLineID
		}
		merged = true
		break
	}
	if !merged {
		s.cart.Lines = append(s.cart.Lines, line.Clone())
	}

	s.persistCartLocked(ctx)
	s.notifyLocked()
}

// SetQuantity overwrites the quantity of an existing line. It reports
// whether the line was found.
func (s *Store) SetQuantity(ctx context.Context, itemID string, quantity int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.cart.Lines {
		if s.cart.Lines[i].ItemID != itemID {
			continue
		}
		s.cart.Lines[i].Quantity = quantity
		s.persistCartLocked(ctx)
		s.notifyLocked()
		return true
	}
	return false
}

// RemoveLocal deletes a line and records it in the removed-item ledger so
// the next server refresh does not resurrect it. Removing an absent item
// is a no-op.
func (s *Store) RemoveLocal(ctx context.Context, itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.cart.Lines {
		if s.cart.Lines[i].ItemID != itemID {
			continue
		}
		s.cart.Lines = append(s.cart.Lines[:i], s.cart.Lines[i+1:]...)
		s.removed = append(s.removed, removedEntry{ItemID: itemID, RemovedAt: s.now()})
		s.pruneRemovedLocked()
		s.persistCartLocked(ctx)
		s.persistRemovedLocked(ctx)
		s.notifyLocked()
		return true
	}
	return false
}

// ReplaceAll swaps the whole cart for the given lines, deduplicated by
// item id (first occurrence wins).
func (s *Store) ReplaceAll(ctx context.Context, lines []types.CartLine) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(lines))
	deduped := make([]types.CartLine, 0, len(lines))
	for _, line := range lines {
		if line.ItemID == "" || seen[line.ItemID] {
			continue
		}
		seen[line.ItemID] = true
		deduped = append(deduped, line.Clone())
	}
	s.cart = types.Cart{Lines: deduped}

	s.persistCartLocked(ctx)
	s.notifyLocked()
}

// Restore puts back a previously taken snapshot.
func (s *Store) Restore(ctx context.Context, snapshot types.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart = snapshot.Clone()
	s.persistCartLocked(ctx)
	s.notifyLocked()
}

// Clear empties the cart and the removed-item ledger.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart = types.Cart{}
	s.removed = nil
	s.persistCartLocked(ctx)
	s.persistRemovedLocked(ctx)
	s.notifyLocked()
}

// WasRecentlyRemoved reports whether the item sits in the ledger within
// its retention window.
func (s *Store) WasRecentlyRemoved(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneRemovedLocked()
	for _, entry := range s.removed {
		if entry.ItemID == itemID {
			return true
		}
	}
	return false
}

func (s *Store) pruneRemovedLocked() {
	cutoff := s.now().Add(-s.cfg.RemovedRetention)
	kept := s.removed[:0]
	for _, entry := range s.removed {
		if entry.RemovedAt.After(cutoff) {
			kept = append(kept, entry)
		}
	}
	s.removed = kept

	if s.cfg.RemovedMax > 0 && len(s.removed) > s.cfg.RemovedMax {
		s.removed = s.removed[len(s.removed)-s.cfg.RemovedMax:]
	}
}

func (s *Store) persistCart(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persistCartLocked(ctx)
}

func (s *Store) persistCartLocked(ctx context.Context) {
	blob, err := json.Marshal(persistedCart{CartID: s.cartID, Lines: s.cart.Lines})
	if err != nil {
		s.logg.Error(ctx, "marshal cart for persistence", err)
		return
	}
	if err := s.persistence.Save(ctx, s.cfg.CartKey, blob); err != nil {
		s.logg.Warn(ctx, "cart persistence failed: "+err.Error())
	}
}

func (s *Store) persistRemovedLocked(ctx context.Context) {
	blob, err := json.Marshal(s.removed)
	if err != nil {
		s.logg.Error(ctx, "marshal removed ledger for persistence", err)
		return
	}
	if err := s.persistence.Save(ctx, s.cfg.RemovedKey, blob); err != nil {
		s.logg.Warn(ctx, "removed ledger persistence failed: "+err.Error())
	}
}
