package cart

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/liabooks/cartsync/internal/catalog"
	"github.com/liabooks/cartsync/internal/stock"
	pkgerrors "github.com/liabooks/cartsync/pkg/errors"
	"github.com/liabooks/cartsync/pkg/logger"
	"github.com/liabooks/cartsync/pkg/metrics"
	"github.com/liabooks/cartsync/pkg/types"
	"github.com/shopspring/decimal"
)

// RemoteAPI is the backend surface the service mirrors mutations to.
type RemoteAPI interface {
	FetchCart(ctx context.Context) ([]byte, error)
	AddItem(ctx context.Context, stockID int64, quantity int) error
	ClearCart(ctx context.Context) error
}

// StockChecker answers availability questions before a mutation commits.
type StockChecker interface {
	CheckAvailability(ctx context.Context, skuID int64, requested int) (stock.Availability, error)
}

// Authenticator reports whether a usable credential exists right now.
type Authenticator interface {
	Authenticated() bool
}

// AddItemInput carries everything needed to add a line, including the
// display fields used when the addition has to stay local-only.
type AddItemInput struct {
	ItemID         string `validate:"required"`
	Title          string
	Author         string
	UnitPrice      decimal.Decimal
	Quantity       int `validate:"gte=1"`
	ImageURL       string
	SKUID          *int64
	AvailableStock *int
}

// MutationResult reports the cart after a mutation and whether the server
// saw it. Synced=false means the change is local-only for now.
type MutationResult struct {
	Cart   types.Cart
	Synced bool
}

// Service coordinates local mutations with remote reconciliation. Local
// state commits first; the remote mirror is best effort except where the
// operation's contract says otherwise.
type Service struct {
	store    *Store
	api      RemoteAPI
	stock    StockChecker
	session  Authenticator
	validate *validator.Validate
	logg     *logger.Logger
	metrics  *metrics.EngineMetrics
}

func NewService(store *Store, api RemoteAPI, checker StockChecker, session Authenticator, logg *logger.Logger, m *metrics.EngineMetrics) *Service {
	return &Service{
		store:    store,
		api:      api,
		stock:    checker,
		session:  session,
		validate: validator.New(),
		logg:     logg,
		metrics:  m,
	}
}

// Snapshot returns the current local cart.
func (s *Service) Snapshot() types.Cart {
	return s.store.Snapshot()
}

// Changes exposes the store's replay-latest subscription channel along
// with its cancel func.
func (s *Service) Changes() (<-chan types.Cart, func()) {
	return s.store.Changes()
}

// AddItem validates the input, checks availability, and adds the line
// locally plus remotely. Without a usable credential the addition stays
// local-only and the result reports Synced=false.
func (s *Service) AddItem(ctx context.Context, input AddItemInput) (MutationResult, error) {
	ctx = s.logg.WithItemID(ctx, input.ItemID)

	if err := s.validate.Struct(input); err != nil {
		return MutationResult{Cart: s.store.Snapshot()}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid add item input")
	}

	if input.SKUID != nil {
		availability, err := s.stock.CheckAvailability(ctx, *input.SKUID, input.Quantity)
		if err != nil {
			// availability is advisory; an unanswerable question never
			// blocks the customer
			s.logg.Warn(ctx, "availability check failed, proceeding: "+err.Error())
		} else if !availability.Sufficient {
			return MutationResult{Cart: s.store.Snapshot()}, pkgerrors.StockInsufficient(availability.Available)
		}
	}

	if !s.session.Authenticated() {
		s.store.ApplyLocal(ctx, lineFromInput(input))
		s.logg.Info(ctx, "item added locally, no active session")
		return MutationResult{Cart: s.store.Snapshot()}, nil
	}

	if input.SKUID == nil {
		// nothing to address the line with server-side
		s.store.ApplyLocal(ctx, lineFromInput(input))
		return MutationResult{Cart: s.store.Snapshot()}, nil
	}

	if err := s.api.AddItem(ctx, *input.SKUID, input.Quantity); err != nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeAuthRequired) {
			s.store.ApplyLocal(ctx, lineFromInput(input))
			s.logg.Warn(ctx, "session rejected, item added locally")
			return MutationResult{Cart: s.store.Snapshot()}, nil
		}
		s.metrics.IncSyncFailure("add_item")
		return MutationResult{Cart: s.store.Snapshot()}, err
	}

	s.metrics.IncSyncSuccess("add_item")
	cart, _ := s.Refresh(ctx)
	if _, found := cart.Find(input.ItemID); !found {
		// refresh raced or the server answered empty; keep the local view
		s.store.ApplyLocal(ctx, lineFromInput(input))
		cart = s.store.Snapshot()
	}
	return MutationResult{Cart: cart, Synced: true}, nil
}

// UpdateQuantity overwrites a line's quantity. A target of zero or less
// routes to Remove. The local change commits first; when the remote push
// fails the pre-mutation snapshot is restored and the error reported.
func (s *Service) UpdateQuantity(ctx context.Context, itemID string, quantity int) (MutationResult, error) {
	ctx = s.logg.WithItemID(ctx, itemID)

	if quantity <= 0 {
		return s.Remove(ctx, itemID)
	}

	snapshot := s.store.Snapshot()
	line, found := snapshot.Find(itemID)
	if !found {
		return MutationResult{Cart: snapshot}, pkgerrors.New(pkgerrors.CodeItemNotFound, "cart line not found")
	}
	if line.AvailableStock != nil && quantity > *line.AvailableStock {
		return MutationResult{Cart: snapshot}, pkgerrors.StockInsufficient(*line.AvailableStock)
	}

	s.store.SetQuantity(ctx, itemID, quantity)

	if !s.session.Authenticated() {
		return MutationResult{Cart: s.store.Snapshot()}, nil
	}

	if err := s.pushRemote(ctx); err != nil {
		s.store.Restore(ctx, snapshot)
		s.metrics.IncSyncFailure("update_quantity")
		s.logg.Warn(ctx, "quantity push failed, local change rolled back")
		return MutationResult{Cart: s.store.Snapshot()}, err
	}

	s.metrics.IncSyncSuccess("update_quantity")
	return MutationResult{Cart: s.store.Snapshot(), Synced: true}, nil
}

// Remove deletes a line locally and mirrors the deletion remotely. The
// local deletion always sticks; a failed mirror only downgrades the
// result to Synced=false.
func (s *Service) Remove(ctx context.Context, itemID string) (MutationResult, error) {
	ctx = s.logg.WithItemID(ctx, itemID)

	if !s.store.RemoveLocal(ctx, itemID) {
		return MutationResult{Cart: s.store.Snapshot()}, pkgerrors.New(pkgerrors.CodeItemNotFound, "cart line not found")
	}

	if !s.session.Authenticated() {
		return MutationResult{Cart: s.store.Snapshot()}, nil
	}

	if err := s.pushRemote(ctx); err != nil {
		s.metrics.IncSyncFailure("remove")
		s.logg.Warn(ctx, "removal push failed, server will re-sync later: "+err.Error())
		return MutationResult{Cart: s.store.Snapshot()}, nil
	}

	s.metrics.IncSyncSuccess("remove")
	return MutationResult{Cart: s.store.Snapshot(), Synced: true}, nil
}

// Refresh folds the server cart into local state. Anonymous sessions and
// remote failures resolve to the local snapshot; an empty server cart
// never wipes a non-empty local one.
func (s *Service) Refresh(ctx context.Context) (types.Cart, error) {
	if !s.session.Authenticated() {
		return s.store.Snapshot(), nil
	}

	body, err := s.api.FetchCart(ctx)
	if err != nil {
		s.metrics.IncSyncFailure("refresh")
		s.logg.Warn(ctx, "cart refresh failed, keeping local state: "+err.Error())
		return s.store.Snapshot(), nil
	}

	raw, err := catalog.DecodeCartPayload(body)
	if err != nil {
		s.metrics.IncSyncFailure("refresh")
		s.logg.Warn(ctx, "cart refresh payload undecodable, keeping local state")
		return s.store.Snapshot(), nil
	}

	lines := catalog.NormalizeLines(raw)
	local := s.store.Snapshot()
	if len(lines) == 0 && !local.IsEmpty() {
		s.logg.Info(ctx, "server cart empty, preserving local cart")
		return local, nil
	}

	kept := make([]types.CartLine, 0, len(lines))
	for _, line := range lines {
		if s.store.WasRecentlyRemoved(line.ItemID) {
			continue
		}
		kept = append(kept, line)
	}

	s.store.ReplaceAll(ctx, kept)
	s.metrics.IncSyncSuccess("refresh")
	return s.store.Snapshot(), nil
}

// Clear empties the cart locally and, when a session exists, remotely.
func (s *Service) Clear(ctx context.Context) error {
	s.store.Clear(ctx)

	if !s.session.Authenticated() {
		return nil
	}
	if err := s.api.ClearCart(ctx); err != nil {
		s.metrics.IncSyncFailure("clear")
		return err
	}
	s.metrics.IncSyncSuccess("clear")
	return nil
}

// pushRemote rebuilds the server cart from local state. The API only
// exposes read, add and clear, so an update is a clear followed by a
// replay of every line that has a stock id. A failure mid-replay leaves
// the server holding a partial cart, which a later refresh would fold in
// over the full local one; clearing again puts the server back on the
// empty path, where refresh preserves local state.
func (s *Service) pushRemote(ctx context.Context) error {
	if err := s.api.ClearCart(ctx); err != nil {
		return err
	}
	for _, line := range s.store.Snapshot().Lines {
		if line.SKUID == nil {
			continue
		}
		if err := s.api.AddItem(ctx, *line.SKUID, line.Quantity); err != nil {
			if clearErr := s.api.ClearCart(ctx); clearErr != nil {
				s.logg.Warn(ctx, "clearing partial server cart failed: "+clearErr.Error())
			}
			return err
		}
	}
	return nil
}

func lineFromInput(input AddItemInput) types.CartLine {
	author := input.Author
	if author == "" {
		if fallback, ok := catalog.FallbackAuthor(input.Title); ok {
			author = fallback
		} else {
			author = catalog.AuthorUnknown
		}
	}
	return types.CartLine{
		ItemID:         input.ItemID,
		Title:          input.Title,
		AuthorDisplay:  author,
		UnitPrice:      input.UnitPrice,
		Quantity:       input.Quantity,
		ImageURL:       input.ImageURL,
		SKUID:          input.SKUID,
		AvailableStock: input.AvailableStock,
	}
}
