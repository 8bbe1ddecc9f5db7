package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/utafrali/rocketshoes/internal/domain"
	"github.com/utafrali/rocketshoes/internal/service"
	pkgkafka "github.com/utafrali/rocketshoes/pkg/kafka"
	"github.com/utafrali/rocketshoes/pkg/logger"
)

// TopicCartUpdated carries a snapshot of the cart after each mutation.
const TopicCartUpdated = "rocketshoes.cart.updated"

const (
	EventTypeCartUpdated = "cart.updated"
	AggregateTypeCart    = "cart"
	SourceCartService    = "rocketshoes-cart"
)

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	SessionID string          `json:"session_id"`
	Operation string          `json:"operation"`
	Items     []CartItemData  `json:"items"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

// CartItemData is the item payload within cart events.
type CartItemData struct {
	ProductID int64           `json:"product_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Amount    int             `json:"amount"`
}

// Publisher is the subset of pkg/kafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes cart domain events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the cart service.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartUpdated publishes a cart.updated event keyed by session.
func (p *Producer) PublishCartUpdated(ctx context.Context, sessionID string, op service.Operation, cart domain.Cart) error {
	items := make([]CartItemData, len(cart))
	for i, e := range cart {
		items[i] = CartItemData{
			ProductID: e.ID,
			Title:     e.Title,
			Price:     decimal.NewFromFloat(e.Price),
			Amount:    e.Amount,
		}
	}

	data := CartUpdatedData{
		SessionID: sessionID,
		Operation: string(op),
		Items:     items,
		ItemCount: cart.ItemCount(),
		Total:     cart.Total(),
	}

	agg := pkgkafka.Aggregate{Type: AggregateTypeCart, ID: sessionID}
	event, err := pkgkafka.NewEvent(EventTypeCartUpdated, agg, SourceCartService, data)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}
	event.WithCorrelationID(logger.CorrelationIDFromContext(ctx)).
		WithMetadata("operation", string(op))

	if err := p.kafka.Publish(ctx, TopicCartUpdated, event); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("session_id", sessionID),
		slog.Int("item_count", data.ItemCount),
	)

	return nil
}
