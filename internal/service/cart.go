package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/utafrali/rocketshoes/internal/domain"
	"github.com/utafrali/rocketshoes/internal/repository"
	apperrors "github.com/utafrali/rocketshoes/pkg/errors"
)

// Catalog is the read-only product catalog.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
	GetStock(ctx context.Context, id int64) (domain.Stock, error)
}

// EventPublisher receives the cart after every successful mutation.
type EventPublisher interface {
	PublishCartUpdated(ctx context.Context, sessionID string, op Operation, cart domain.Cart) error
}

// AmountUpdate is the input of UpdateProductAmount.
type AmountUpdate struct {
	ProductID int64 `json:"product_id"`
	Amount    int   `json:"amount"`
}

// Dependencies are the collaborators of a CartStore. KV and Catalog are
// required; Publisher may be nil; Notifier defaults to LogNotifier.
type Dependencies struct {
	KV        repository.KV
	Catalog   Catalog
	Publisher EventPublisher
	Notifier  Notifier
	Logger    *slog.Logger
}

// CartStore holds one shopper's cart in memory and rewrites it to the KV
// store after every successful mutation. Mutations are serialized: each one
// holds the store's lock from its catalog lookup through the write, so none
// computes from a stale cart.
type CartStore struct {
	sessionID string
	kv        repository.KV
	catalog   Catalog
	publisher EventPublisher
	notifier  Notifier
	logger    *slog.Logger

	mu   sync.Mutex
	cart domain.Cart
}

// Load builds a CartStore from the cart persisted in deps.KV. A missing cart
// starts empty. So does a stored value that cannot be decoded; it is logged
// and left in place until the next successful mutation overwrites it.
func Load(ctx context.Context, sessionID string, deps Dependencies) (*CartStore, error) {
	if deps.KV == nil || deps.Catalog == nil {
		return nil, errors.New("cart store requires a kv store and a catalog")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}

	s := &CartStore{
		sessionID: sessionID,
		kv:        deps.KV,
		catalog:   deps.Catalog,
		publisher: deps.Publisher,
		notifier:  notifier,
		logger:    logger,
		cart:      domain.Cart{},
	}

	blob, found, err := s.kv.Get(ctx, repository.CartKey)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if !found {
		return s, nil
	}

	cart, err := domain.DecodeCart(blob)
	if err != nil {
		s.logger.WarnContext(ctx, "stored cart is unreadable, starting empty",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
		return s, nil
	}

	cart, dropped := normalize(cart)
	if dropped > 0 {
		s.logger.WarnContext(ctx, "dropped invalid entries from stored cart",
			slog.String("session_id", sessionID),
			slog.Int("dropped", dropped),
		)
	}
	s.cart = cart
	return s, nil
}

// normalize drops entries with a non-positive amount and repeated product IDs.
func normalize(c domain.Cart) (domain.Cart, int) {
	out := make(domain.Cart, 0, len(c))
	seen := make(map[int64]struct{}, len(c))
	for _, e := range c {
		if e.Amount < 1 {
			continue
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out, len(c) - len(out)
}

// SessionID returns the session the store belongs to.
func (s *CartStore) SessionID() string {
	return s.sessionID
}

// Cart returns a copy of the current cart.
func (s *CartStore) Cart() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Clone()
}

// AddProduct adds one unit of productID. A product not yet in the cart is
// fetched from the catalog and appended with amount 1; otherwise its amount
// is incremented if stock allows.
func (s *CartStore) AddProduct(ctx context.Context, productID int64) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cart.Clone()
	if i := next.Index(productID); i >= 0 {
		stock, err := s.catalog.GetStock(ctx, productID)
		if err != nil {
			return s.fail(ctx, OpAddProduct, productID, lookupKind(err), MsgAddFailed, err)
		}
		if next[i].Amount >= stock.Amount {
			return s.fail(ctx, OpAddProduct, productID, KindOutOfStock, MsgOutOfStock,
				fmt.Errorf("amount %d already at stock %d", next[i].Amount, stock.Amount))
		}
		next[i].Amount++
	} else {
		product, err := s.catalog.GetProduct(ctx, productID)
		if err != nil {
			return s.fail(ctx, OpAddProduct, productID, lookupKind(err), MsgAddFailed, err)
		}
		product.ID = productID
		next = append(next, domain.NewEntry(product, 1))
	}

	if err := s.persist(ctx, next); err != nil {
		return s.fail(ctx, OpAddProduct, productID, KindStorageFailure, MsgAddFailed, err)
	}
	return s.commit(ctx, OpAddProduct, productID, next), nil
}

// RemoveProduct deletes productID from the cart.
func (s *CartStore) RemoveProduct(ctx context.Context, productID int64) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.cart.Index(productID)
	if i < 0 {
		return s.fail(ctx, OpRemoveProduct, productID, KindNotFound, MsgRemoveFailed,
			apperrors.NotFound("cart entry", strconv.FormatInt(productID, 10)))
	}

	next := slices.Delete(s.cart.Clone(), i, i+1)
	if err := s.persist(ctx, next); err != nil {
		return s.fail(ctx, OpRemoveProduct, productID, KindStorageFailure, MsgRemoveFailed, err)
	}
	return s.commit(ctx, OpRemoveProduct, productID, next), nil
}

// UpdateProductAmount sets the amount of a product already in the cart. An
// amount of zero or less is ignored.
func (s *CartStore) UpdateProductAmount(ctx context.Context, in AmountUpdate) (domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.cart.Index(in.ProductID)
	if i < 0 {
		return s.fail(ctx, OpUpdateProductAmount, in.ProductID, KindNotFound, MsgUpdateFailed,
			apperrors.NotFound("cart entry", strconv.FormatInt(in.ProductID, 10)))
	}
	if in.Amount <= 0 {
		observe(OpUpdateProductAmount, outcomeNoop)
		return s.cart.Clone(), nil
	}

	stock, err := s.catalog.GetStock(ctx, in.ProductID)
	if err != nil {
		return s.fail(ctx, OpUpdateProductAmount, in.ProductID, lookupKind(err), MsgUpdateFailed, err)
	}
	if in.Amount > stock.Amount {
		return s.fail(ctx, OpUpdateProductAmount, in.ProductID, KindOutOfStock, MsgOutOfStock,
			fmt.Errorf("requested %d exceeds stock %d", in.Amount, stock.Amount))
	}

	next := s.cart.Clone()
	next[i].Amount = in.Amount
	if err := s.persist(ctx, next); err != nil {
		return s.fail(ctx, OpUpdateProductAmount, in.ProductID, KindStorageFailure, MsgUpdateFailed, err)
	}
	return s.commit(ctx, OpUpdateProductAmount, in.ProductID, next), nil
}

func (s *CartStore) persist(ctx context.Context, next domain.Cart) error {
	blob, err := next.Encode()
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, repository.CartKey, blob); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

// commit installs next as the current cart. Must be called with s.mu held.
func (s *CartStore) commit(ctx context.Context, op Operation, productID int64, next domain.Cart) domain.Cart {
	s.cart = next
	observe(op, outcomeSuccess)

	if s.publisher != nil {
		if err := s.publisher.PublishCartUpdated(ctx, s.sessionID, op, next.Clone()); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
				slog.String("session_id", s.sessionID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "cart updated",
		slog.String("session_id", s.sessionID),
		slog.String("operation", string(op)),
		slog.Int64("product_id", productID),
		slog.Int("item_count", next.ItemCount()),
	)
	return next.Clone()
}

// fail notifies the shopper and returns the unchanged cart with a CartError.
func (s *CartStore) fail(ctx context.Context, op Operation, productID int64, kind ErrorKind, message string, cause error) (domain.Cart, error) {
	observe(op, string(kind))

	level := slog.LevelWarn
	if kind == KindOutOfStock || kind == KindNotFound {
		level = slog.LevelInfo
	}
	s.logger.Log(ctx, level, "cart operation failed",
		slog.String("session_id", s.sessionID),
		slog.String("operation", string(op)),
		slog.Int64("product_id", productID),
		slog.String("kind", string(kind)),
		slog.String("error", cause.Error()),
	)

	s.notifier.Notify(ctx, Notice{Kind: kind, Op: op, ProductID: productID, Message: message})
	return s.cart.Clone(), &CartError{Kind: kind, Op: op, ProductID: productID, Message: message, Err: cause}
}

// lookupKind classifies a catalog error. A product or stock record the
// catalog does not have is NotFound; anything else is a lookup failure.
func lookupKind(err error) ErrorKind {
	if errors.Is(err, apperrors.ErrNotFound) {
		return KindNotFound
	}
	return KindRemoteLookupFailure
}
