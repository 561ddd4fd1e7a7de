// Package fxcm implements MarketDataSource against a ForexConnect
// gateway speaking JSON frames over WebSocket. History timestamps on
// the wire are OLE day-count floats.
package fxcm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"fxpull/internal/domain/models"
	"fxpull/pkg/oletime"
)

// Config holds the gateway session settings.
type Config struct {
	GatewayURL     string
	Username       string
	Password       string
	Environment    string // demo or real
	RequestTimeout time.Duration
}

// Client is a synchronous request/response session with the gateway.
// One request is in flight at a time; the orchestrator parallelizes
// across instruments above this layer, each unit owning its own fetch
// sequence.
type Client struct {
	cfg Config

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	nextID    int64
}

// New creates an unconnected gateway client.
func New(cfg Config) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &Client{cfg: cfg}
}

type request struct {
	ID     int64          `json:"id"`
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

type response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error,omitempty"`
}

// wireBar mirrors one history row from the gateway.
type wireBar struct {
	Date     float64         `json:"date"` // OLE day count
	BidOpen  decimal.Decimal `json:"bidopen"`
	BidHigh  decimal.Decimal `json:"bidhigh"`
	BidLow   decimal.Decimal `json:"bidlow"`
	BidClose decimal.Decimal `json:"bidclose"`
	AskOpen  decimal.Decimal `json:"askopen"`
	AskHigh  decimal.Decimal `json:"askhigh"`
	AskLow   decimal.Decimal `json:"asklow"`
	AskClose decimal.Decimal `json:"askclose"`
	Volume   int64           `json:"volume"`
}

// Connect dials the gateway and performs the login exchange. Dial and
// IO failures are transient; a login rejection is not.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.GatewayURL, nil)
	if err != nil {
		return fmt.Errorf("%w: dial gateway: %v", models.ErrTransientConnection, err)
	}
	c.conn = conn

	res, err := c.callLocked(ctx, "login", map[string]any{
		"username":    c.cfg.Username,
		"password":    c.cfg.Password,
		"environment": c.cfg.Environment,
	})
	if err != nil {
		_ = conn.Close()
		c.conn = nil
		return err
	}
	var ok bool
	if err := json.Unmarshal(res, &ok); err != nil || !ok {
		_ = conn.Close()
		c.conn = nil
		return fmt.Errorf("gateway login rejected for %s", c.cfg.Username)
	}

	c.connected = true
	return nil
}

// IsConnected reports the session state without touching the wire.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close tears the session down.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	err := c.conn.Close()
	c.conn = nil
	return err
}

// Fetch requests history for [from, to]. Zero from/to asks the gateway
// for its first full-history page. The gateway pages newest-first with
// a bounded batch size; callers own validation and ordering.
func (c *Client) Fetch(ctx context.Context, instrument string, from, to time.Time, tf models.Timeframe) ([]models.Bar, error) {
	if !models.IsValidTimeframe(tf) {
		return nil, fmt.Errorf("unsupported timeframe: %s", tf)
	}
	var oleFrom, oleTo float64
	if !from.IsZero() {
		oleFrom = oletime.ToOLE(from)
	}
	if !to.IsZero() {
		oleTo = oletime.ToOLE(to)
	}

	res, err := c.call(ctx, "history", map[string]any{
		"offer":     instrument,
		"timeframe": string(tf),
		"from":      oleFrom,
		"to":        oleTo,
	})
	if err != nil {
		return nil, err
	}

	var rows []wireBar
	if err := json.Unmarshal(res, &rows); err != nil {
		return nil, fmt.Errorf("decode history for %s: %w", instrument, err)
	}
	bars := make([]models.Bar, len(rows))
	for i, r := range rows {
		bars[i] = models.Bar{
			Date:     oletime.FromOLE(r.Date),
			BidOpen:  r.BidOpen,
			BidHigh:  r.BidHigh,
			BidLow:   r.BidLow,
			BidClose: r.BidClose,
			AskOpen:  r.AskOpen,
			AskHigh:  r.AskHigh,
			AskLow:   r.AskLow,
			AskClose: r.AskClose,
			Volume:   r.Volume,
		}
	}
	return bars, nil
}

// Quote returns the current bid/ask pair. Values may be non-positive
// around market open and close; the caller decides whether to retry.
func (c *Client) Quote(ctx context.Context, instrument string) (float64, float64, error) {
	res, err := c.call(ctx, "quote", map[string]any{"offer": instrument})
	if err != nil {
		return 0, 0, err
	}
	var q struct {
		Bid float64 `json:"bid"`
		Ask float64 `json:"ask"`
	}
	if err := json.Unmarshal(res, &q); err != nil {
		return 0, 0, fmt.Errorf("decode quote for %s: %w", instrument, err)
	}
	return q.Bid, q.Ask, nil
}

// Offers lists the instruments the gateway can serve.
func (c *Client) Offers(ctx context.Context) ([]string, error) {
	res, err := c.call(ctx, "offers", nil)
	if err != nil {
		return nil, err
	}
	var offers []string
	if err := json.Unmarshal(res, &offers); err != nil {
		return nil, fmt.Errorf("decode offers: %w", err)
	}
	return offers, nil
}

func (c *Client) call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.conn == nil {
		return nil, fmt.Errorf("%w: gateway session not established", models.ErrTransientConnection)
	}
	return c.callLocked(ctx, method, params)
}

// callLocked performs one request/response exchange. IO failures drop
// the session and surface as transient so the session manager can
// reconnect.
func (c *Client) callLocked(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	c.nextID++
	req := request{ID: c.nextID, Method: method, Params: params}

	deadline := time.Now().Add(c.cfg.RequestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetWriteDeadline(deadline)
	if err := c.conn.WriteJSON(req); err != nil {
		c.dropLocked()
		return nil, fmt.Errorf("%w: %s write: %v", models.ErrTransientConnection, method, err)
	}

	_ = c.conn.SetReadDeadline(deadline)
	for {
		var res response
		if err := c.conn.ReadJSON(&res); err != nil {
			c.dropLocked()
			return nil, fmt.Errorf("%w: %s read: %v", models.ErrTransientConnection, method, err)
		}
		if res.ID != req.ID {
			// Stale reply from an aborted exchange; skip it.
			continue
		}
		if res.Error != "" {
			return nil, fmt.Errorf("gateway %s: %s", method, res.Error)
		}
		return res.Result, nil
	}
}

func (c *Client) dropLocked() {
	c.connected = false
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}
