package execclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gorilla/websocket"

	"execengine/internal/execclient/venueauth"
	"execengine/pkg/model"
)

const (
	pingInterval     = 50 * time.Second
	readTimeout      = 90 * time.Second
	maxReconnectWait = 30 * time.Second
	writeTimeout     = 10 * time.Second
	eventBufferSize  = 256
)

// SimClient is the reference Execution Client adapter (§4.E): a REST leg
// for outbound calls (submit/amend/cancel/account_inquiry), grounded on
// the teacher's exchange.Client (resty, base URL, retry, timeout), and a
// WebSocket leg for asynchronous venue events, grounded on the teacher's
// exchange.WSFeed (reconnect with exponential backoff, ping keepalive,
// read deadline). Unlike the teacher, which speaks the Polymarket CLOB
// wire format, this adapter's wire format is a minimal envelope carrying
// the domain Event kinds directly — SIM is a venue simulator, not a real
// exchange, so there is no external protocol to translate.
type SimClient struct {
	venue  model.Venue
	http   *resty.Client
	wsURL  string
	signer *venueauth.Signer // nil: unauthenticated connect
	logger *slog.Logger

	events chan model.Event

	connMu sync.Mutex
	conn   *websocket.Conn

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSimClient constructs a SIM adapter. restBaseURL and wsURL point at
// the simulated venue's REST and WebSocket endpoints; signer may be nil
// for deployments that don't require wallet-based connect auth.
func NewSimClient(venue model.Venue, restBaseURL, wsURL string, callTimeout time.Duration, signer *venueauth.Signer, logger *slog.Logger) *SimClient {
	httpClient := resty.New().
		SetBaseURL(restBaseURL).
		SetTimeout(callTimeout).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	return &SimClient{
		venue:  venue,
		http:   httpClient,
		wsURL:  wsURL,
		signer: signer,
		logger: logger.With("component", "execclient.sim", "venue", venue.String()),
		events: make(chan model.Event, eventBufferSize),
	}
}

// Events implements Client.
func (c *SimClient) Events() <-chan model.Event { return c.events }

// Connect implements Client. Idempotent: a second call while already
// running is a no-op.
func (c *SimClient) Connect(ctx context.Context) error {
	c.connMu.Lock()
	if c.ctx != nil {
		c.connMu.Unlock()
		return nil
	}
	runCtx, cancel := context.WithCancel(context.Background())
	c.ctx = runCtx
	c.cancel = cancel
	c.connMu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runWS(runCtx)
	}()

	c.logger.Info("connect requested")
	return nil
}

// Disconnect implements Client. Idempotent.
func (c *SimClient) Disconnect(ctx context.Context) error {
	c.connMu.Lock()
	cancel := c.cancel
	c.ctx, c.cancel = nil, nil
	c.connMu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	c.wg.Wait()

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	c.logger.Info("disconnected")
	return nil
}

// SubmitOrder implements Client: fires the REST call and returns. The
// venue's accept/reject arrives asynchronously on Events.
func (c *SimClient) SubmitOrder(ctx context.Context, o *model.Order) error {
	body := submitOrderWire{
		OrderID:    o.OrderID.String(),
		Symbol:     o.Symbol,
		Side:       string(o.Side),
		Type:       string(o.Type),
		Quantity:   o.Quantity.String(),
		StrategyID: o.StrategyID.String(),
	}
	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post("/orders")
	if err != nil {
		return fmt.Errorf("execclient: submit order: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("execclient: submit order: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// AmendOrder implements Client.
func (c *SimClient) AmendOrder(ctx context.Context, orderID model.OrderID, newQty model.Quantity, newPrice model.Price) error {
	body := amendOrderWire{
		OrderID:  orderID.String(),
		NewQty:   newQty.String(),
		NewPrice: newPrice.String(),
	}
	resp, err := c.http.R().SetContext(ctx).SetBody(body).Post("/orders/amend")
	if err != nil {
		return fmt.Errorf("execclient: amend order: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("execclient: amend order: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// CancelOrder implements Client.
func (c *SimClient) CancelOrder(ctx context.Context, orderID model.OrderID) error {
	resp, err := c.http.R().SetContext(ctx).
		SetBody(cancelOrderWire{OrderID: orderID.String()}).
		Post("/orders/cancel")
	if err != nil {
		return fmt.Errorf("execclient: cancel order: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("execclient: cancel order: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// AccountInquiry implements Client.
func (c *SimClient) AccountInquiry(ctx context.Context, accountID model.AccountID) error {
	resp, err := c.http.R().SetContext(ctx).
		SetQueryParam("account_id", accountID.String()).
		Get("/account")
	if err != nil {
		return fmt.Errorf("execclient: account inquiry: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("execclient: account inquiry: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

func (c *SimClient) emit(evt model.Event) {
	select {
	case c.events <- evt:
	default:
		c.logger.Warn("event channel full, dropping venue event", "type", fmt.Sprintf("%T", evt))
	}
}

// runWS maintains the WebSocket connection with auto-reconnect, exactly
// the shape of the teacher's WSFeed.Run.
func (c *SimClient) runWS(ctx context.Context) {
	backoff := time.Second
	for {
		err := c.connectAndRead(ctx)
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("sim venue websocket disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

func (c *SimClient) connectAndRead(ctx context.Context) error {
	var header http.Header
	if c.signer != nil {
		headers, err := c.signer.ConnectHeaders(0)
		if err != nil {
			return fmt.Errorf("connect headers: %w", err)
		}
		header = http.Header{}
		for k, v := range headers {
			header.Set(k, v)
		}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, header)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	defer func() {
		c.connMu.Lock()
		conn.Close()
		c.conn = nil
		c.connMu.Unlock()
	}()

	c.logger.Info("sim venue websocket connected")

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go c.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		c.dispatchMessage(msg)
	}
}

func (c *SimClient) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.connMu.Lock()
			conn := c.conn
			c.connMu.Unlock()
			if conn == nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}

func (c *SimClient) dispatchMessage(data []byte) {
	evt, err := decodeWireEvent(data)
	if err != nil {
		c.logger.Error("decode venue event", "error", err)
		return
	}
	if evt != nil {
		c.emit(evt)
	}
}
