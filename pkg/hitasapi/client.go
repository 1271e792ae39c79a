// Package hitasapi is the HTTP client for the Hitas backend. It serves
// related-model searches for pickers and submits form payloads, turning
// validation rejections into *model.ServerError values the forms reconcile.
//
// Every call runs through a circuit breaker and an OpenTelemetry client span:
//
//	Circuit Breaker → OTEL Span → resty (timeout, retries, auth) → HTTP
package hitasapi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-hitasforms/pkg/logging"
	"github.com/goliatone/go-hitasforms/pkg/model"
)

const (
	TextCodeUnavailable = "HITAS_API_UNAVAILABLE"
	TextCodeRejected    = "HITAS_API_REJECTED"
	TextCodeNotFound    = "HITAS_API_NOT_FOUND"

	tracerName = "github.com/goliatone/go-hitasforms/pkg/hitasapi"
)

// BreakerConfig tunes the circuit breaker guarding the backend.
type BreakerConfig struct {
	MaxFailures   int
	Timeout       time.Duration
	HalfOpenLimit int
}

// Config holds the connection settings of a Client.
type Config struct {
	Name    string
	BaseURL string
	Token   string
	Timeout time.Duration
	Retries int
	Breaker BreakerConfig
}

// Option customises a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		c.logger = logging.Or(logger)
	}
}

// WithHTTPClient replaces the transport client, mostly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = resty.NewWithClient(client)
		}
	}
}

// Client talks to the Hitas REST API.
type Client struct {
	cfg     Config
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker[*resty.Response]
	logger  logging.Logger
}

// New constructs a Client for cfg.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Name == "" {
		cfg.Name = "hitas-api"
	}
	if cfg.Breaker.MaxFailures <= 0 {
		cfg.Breaker.MaxFailures = 5
	}
	c := &Client{
		cfg:    cfg,
		http:   resty.New(),
		logger: logging.NoOp(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	c.http.
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.Retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second)
	if cfg.Timeout > 0 {
		c.http.SetTimeout(cfg.Timeout)
	}
	if cfg.Token != "" {
		c.http.SetAuthScheme("Bearer").SetAuthToken(cfg.Token)
	}

	c.breaker = gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: toUint32(cfg.Breaker.HalfOpenLimit),
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= cfg.Breaker.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
	return c
}

// Name returns the downstream service identifier.
func (c *Client) Name() string { return c.cfg.Name }

// HealthCheck reports availability from the breaker state without a network
// call.
func (c *Client) HealthCheck(context.Context) error {
	switch state := c.breaker.State(); state {
	case gobreaker.StateClosed:
		return nil
	case gobreaker.StateHalfOpen:
		return fmt.Errorf("%s: degraded (circuit breaker half-open)", c.cfg.Name)
	default:
		return fmt.Errorf("%s: failing (circuit breaker %s)", c.cfg.Name, state)
	}
}

type pageInfo struct {
	Size       int `json:"size"`
	TotalItems int `json:"total_items"`
}

type listResponse struct {
	Contents []model.Entity `json:"contents"`
	Page     pageInfo       `json:"page"`
}

// Search implements model.Searcher against GET /{resource}.
func (c *Client) Search(ctx context.Context, filter model.SearchFilter) (model.SearchPage, error) {
	resource := strings.Trim(filter.Resource, "/")
	if resource == "" {
		return model.SearchPage{}, goerrors.Wrap(errors.New("resource is required"), goerrors.CategoryInternal, "hitas api search")
	}
	params := make(map[string]string, len(filter.Params)+2)
	for key, value := range filter.Params {
		params[key] = value
	}
	queryParam := filter.QueryParam
	if queryParam == "" {
		queryParam = "q"
	}
	params[queryParam] = filter.Query
	if filter.Limit > 0 {
		params["limit"] = strconv.Itoa(filter.Limit)
	}

	var out listResponse
	_, err := c.do(ctx, http.MethodGet, "/"+resource, func(req *resty.Request) {
		req.SetQueryParams(params).SetResult(&out)
	})
	if err != nil {
		return model.SearchPage{}, err
	}
	page := model.SearchPage{
		Contents:   out.Contents,
		Size:       out.Page.Size,
		TotalItems: out.Page.TotalItems,
	}
	if page.Size == 0 {
		page.Size = len(page.Contents)
	}
	if page.TotalItems == 0 {
		page.TotalItems = len(page.Contents)
	}
	return page, nil
}

// Get fetches a single resource, for example to seed a draft.
func (c *Client) Get(ctx context.Context, resource, id string) (map[string]any, error) {
	var out map[string]any
	_, err := c.do(ctx, http.MethodGet, resourcePath(resource, id), func(req *resty.Request) {
		req.SetResult(&out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Save creates (empty id) or replaces a resource. A 400 response carrying
// field errors is returned as a validation error wrapping *model.ServerError.
func (c *Client) Save(ctx context.Context, resource, id string, payload map[string]any) (map[string]any, error) {
	method := http.MethodPost
	if id != "" {
		method = http.MethodPut
	}
	var out map[string]any
	_, err := c.do(ctx, method, resourcePath(resource, id), func(req *resty.Request) {
		req.SetHeader("Content-Type", "application/json").SetBody(payload).SetResult(&out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, build func(*resty.Request)) (*resty.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := c.logger.WithContext(ctx)
	var serverErr model.ServerErrorData

	resp, err := c.breaker.Execute(func() (*resty.Response, error) {
		spanCtx, span := c.startSpan(ctx, method, path)
		defer span.End()

		req := c.http.R().SetContext(spanCtx).SetError(&serverErr)
		otel.GetTextMapPropagator().Inject(spanCtx, propagation.HeaderCarrier(req.Header))
		build(req)

		resp, err := req.Execute(method, path)
		if err == nil && resp.StatusCode() >= http.StatusInternalServerError {
			err = fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode())
		}
		finishSpan(span, resp, err)
		return resp, err
	})
	if err != nil {
		logger.Error("hitas api call failed", "method", method, "path", path, "error", err)
		return resp, goerrors.Wrap(err, goerrors.CategoryExternal, "hitas api unavailable").
			WithTextCode(TextCodeUnavailable)
	}

	switch status := resp.StatusCode(); {
	case status == http.StatusNotFound:
		return resp, goerrors.Wrap(fmt.Errorf("%s %s: not found", method, path), goerrors.CategoryNotFound, "hitas resource not found").
			WithTextCode(TextCodeNotFound)
	case status >= http.StatusBadRequest:
		if serverErr.Status == 0 {
			serverErr.Status = status
		}
		rejected := &model.ServerError{Data: serverErr}
		logger.Debug("hitas api rejected request", "method", method, "path", path, "status", status, "fields", len(serverErr.Fields))
		return resp, goerrors.Wrap(rejected, goerrors.CategoryValidation, "hitas api rejected the request").
			WithTextCode(TextCodeRejected)
	}
	logger.Debug("hitas api call", "method", method, "path", path, "status", resp.StatusCode())
	return resp, nil
}

func (c *Client) startSpan(ctx context.Context, method, path string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, fmt.Sprintf("HTTP %s %s", method, c.cfg.Name),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", path),
			attribute.String("peer.service", c.cfg.Name),
		),
	)
}

func finishSpan(span trace.Span, resp *resty.Response, err error) {
	if resp != nil {
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode()))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// ServerError extracts the rejected-submission payload from err.
func ServerError(err error) (*model.ServerError, bool) {
	var target *model.ServerError
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

func resourcePath(resource, id string) string {
	path := "/" + strings.Trim(resource, "/")
	if id != "" {
		path += "/" + url.PathEscape(id)
	}
	return path
}

func toUint32(v int) uint32 {
	if v <= 0 {
		return 0
	}
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}
