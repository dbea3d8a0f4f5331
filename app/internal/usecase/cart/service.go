package cart

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domcart "example.com/cartstore/app/internal/domain/cart"
)

const tracerName = "example.com/cartstore/usecase/cart"

type SlotRepository interface {
	domcart.SlotRepository
}

// Charges are added on top of the item total. The zero value adds nothing.
type Charges struct {
	Tax      float64
	Delivery float64
}

// Service keeps the cart in a single slot of a SlotRepository. Every call is
// an unlocked read-modify-write of that slot.
type Service struct {
	slots  SlotRepository
	key    string
	log    logrus.FieldLogger
	tracer trace.Tracer
}

type Option func(*Service)

// WithNamespace scopes the slot key, giving "<namespace>:cart".
func WithNamespace(namespace string) Option {
	return func(s *Service) {
		if namespace != "" {
			s.key = namespace + ":" + domcart.SlotKey
		}
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func NewService(slots SlotRepository, opts ...Option) *Service {
	s := &Service{
		slots:  slots,
		key:    domcart.SlotKey,
		log:    logrus.StandardLogger(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the slot key the service reads and writes.
func (s *Service) Key() string {
	return s.key
}

// readCart loads the slot. A missing or empty slot is an empty, non-nil cart.
func (s *Service) readCart(ctx context.Context) (domcart.Cart, error) {
	value, found, err := s.slots.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("read slot %q: %w", s.key, err)
	}
	if !found || value == "" {
		return domcart.Cart{}, nil
	}
	c, err := domcart.Decode(value)
	if err != nil {
		return nil, fmt.Errorf("read slot %q: %w", s.key, err)
	}
	return c, nil
}

func (s *Service) writeCart(ctx context.Context, c domcart.Cart) error {
	value, err := c.Encode()
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.slots.Set(ctx, s.key, value); err != nil {
		return fmt.Errorf("write slot %q: %w", s.key, err)
	}
	return nil
}

// AddToCart appends item unless an item with the same id is already present.
func (s *Service) AddToCart(ctx context.Context, item domcart.Item, id domcart.Identifier) (outcome domcart.AddOutcome, err error) {
	ctx, span := s.tracer.Start(ctx, "cart.AddToCart", trace.WithAttributes(attribute.String("cart.item_id", id.String())))
	defer func() { endSpan(span, outcome.String(), err) }()

	c, err := s.readCart(ctx)
	if err != nil {
		return domcart.AlreadyExists, err
	}

	if c.Contains(id) {
		s.log.WithField("item_id", id.String()).Info("item already exists")
		return domcart.AlreadyExists, nil
	}

	c = append(c, item)
	if err := s.writeCart(ctx, c); err != nil {
		return domcart.AlreadyExists, err
	}
	return domcart.Added, nil
}

// RemoveFromCart drops every item with the given id. The slot is rewritten
// even when nothing matched.
func (s *Service) RemoveFromCart(ctx context.Context, id domcart.Identifier) (outcome domcart.RemoveOutcome, err error) {
	ctx, span := s.tracer.Start(ctx, "cart.RemoveFromCart", trace.WithAttributes(attribute.String("cart.item_id", id.String())))
	defer func() { endSpan(span, outcome.String(), err) }()

	c, err := s.readCart(ctx)
	if err != nil {
		return domcart.NothingMatched, err
	}

	kept := c.Without(id)
	if err := s.writeCart(ctx, kept); err != nil {
		return domcart.NothingMatched, err
	}
	if len(kept) == len(c) {
		return domcart.NothingMatched, nil
	}
	return domcart.Removed, nil
}

// GetCart returns the stored items, or nil when the cart is empty or absent.
func (s *Service) GetCart(ctx context.Context) (c domcart.Cart, err error) {
	ctx, span := s.tracer.Start(ctx, "cart.GetCart")
	defer func() { endSpan(span, "", err) }()

	c, err = s.readCart(ctx)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("cart.items", len(c)))
	if len(c) == 0 {
		return nil, nil
	}
	return c, nil
}

// UpdateQuantity overwrites the quantity of the first item with the given id.
func (s *Service) UpdateQuantity(ctx context.Context, id domcart.Identifier, quantity float64) (outcome domcart.UpdateOutcome, err error) {
	ctx, span := s.tracer.Start(ctx, "cart.UpdateQuantity", trace.WithAttributes(
		attribute.String("cart.item_id", id.String()),
		attribute.Float64("cart.quantity", quantity),
	))
	defer func() { endSpan(span, outcome.String(), err) }()

	c, err := s.readCart(ctx)
	if err != nil {
		return domcart.NotFound, err
	}

	index := c.IndexOf(id)
	if index == -1 {
		s.log.WithField("item_id", id.String()).Info("item does not exist, quantity can't be updated")
		return domcart.NotFound, nil
	}

	c[index].SetQuantity(quantity)
	if err := s.writeCart(ctx, c); err != nil {
		return domcart.NotFound, err
	}
	return domcart.Updated, nil
}

// GetPrice returns the sum of price times quantity over all items, plus the
// charges. A non-numeric price makes the result NaN.
func (s *Service) GetPrice(ctx context.Context, charges Charges) (total float64, err error) {
	ctx, span := s.tracer.Start(ctx, "cart.GetPrice")
	defer func() { endSpan(span, "", err) }()

	c, err := s.readCart(ctx)
	if err != nil {
		return 0, err
	}
	return c.Total() + charges.Tax + charges.Delivery, nil
}

// ClearCart deletes the slot.
func (s *Service) ClearCart(ctx context.Context) (err error) {
	ctx, span := s.tracer.Start(ctx, "cart.ClearCart")
	defer func() { endSpan(span, "", err) }()

	if err := s.slots.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("delete slot %q: %w", s.key, err)
	}
	return nil
}

// Ping checks the repository when it supports liveness checks.
func (s *Service) Ping(ctx context.Context) error {
	if p, ok := s.slots.(domcart.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func endSpan(span trace.Span, outcome string, err error) {
	if outcome != "" && err == nil {
		span.SetAttributes(attribute.String("cart.outcome", outcome))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
