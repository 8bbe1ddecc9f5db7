// Package catalog reads products and stock levels from the storefront's
// catalog API.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/rocketshoes/internal/domain"
	"github.com/utafrali/rocketshoes/pkg/httpclient"
	"github.com/utafrali/rocketshoes/pkg/logger"
	"github.com/utafrali/rocketshoes/pkg/middleware"
	"github.com/utafrali/rocketshoes/pkg/tracing"
)

const maxBody = 1 << 20

// HTTPDoer abstracts the HTTP client used for catalog calls.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Client implements the product catalog lookups the cart needs.
type Client struct {
	doer    HTTPDoer
	baseURL string
	tracer  trace.Tracer
}

// NewClient creates a catalog client rooted at baseURL.
func NewClient(baseURL string, doer HTTPDoer) *Client {
	return &Client{
		doer:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		tracer:  tracing.Tracer("github.com/utafrali/rocketshoes/internal/catalog"),
	}
}

// GetProduct fetches GET /products/{id}.
func (c *Client) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	var p domain.Product
	if err := c.get(ctx, "catalog.GetProduct", "product", "/products/", id, &p); err != nil {
		return domain.Product{}, err
	}
	if p.ID == 0 {
		p.ID = id
	}
	return p, nil
}

// GetStock fetches GET /stock/{id}.
func (c *Client) GetStock(ctx context.Context, id int64) (domain.Stock, error) {
	var s domain.Stock
	if err := c.get(ctx, "catalog.GetStock", "stock", "/stock/", id, &s); err != nil {
		return domain.Stock{}, err
	}
	if s.ID == 0 {
		s.ID = id
	}
	return s, nil
}

func (c *Client) get(ctx context.Context, spanName, resource, path string, id int64, dst any) (err error) {
	ctx, span := c.tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("catalog.resource", resource),
			attribute.Int64("catalog.id", id),
		),
	)
	defer func() {
		_ = tracing.RecordError(span, err)
		span.End()
	}()

	idStr := strconv.FormatInt(id, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+idStr, http.NoBody)
	if err != nil {
		return fmt.Errorf("create %s request: %w", resource, err)
	}
	req.Header.Set("Accept", "application/json")
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		req.Header.Set(middleware.CorrelationIDHeader, cid)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("call catalog %s %s: %w", resource, idStr, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpclient.ParseResponseError(resp, resource, idStr)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode %s %s: %w", resource, idStr, err)
	}
	return nil
}
