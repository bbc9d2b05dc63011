// Package inet implements the backend transport over HTTP. Outbound telemetry
// is POSTed one sample per request; inbound haptic instructions arrive over a
// long-poll loop. The two directions never block one another.
package inet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hapticlink/watch-relay/internal/log"
	"github.com/hapticlink/watch-relay/pkg/connector"
	"github.com/hapticlink/watch-relay/pkg/protocol"
	"github.com/hapticlink/watch-relay/pkg/telemetry"
)

// Wire endpoints, relative to the configured server URL.
const (
	telemetryPath      = "api/v1/telemetry"
	instructionsPath   = "api/v1/instructions"
	monitoringTypePath = "api/v1/monitoring-type"
)

// maxResponseLength caps response bodies; instruction payloads are tiny.
const maxResponseLength = 65536

// tokenLifetime bounds the validity of minted device tokens. Tokens are
// refreshed shortly before expiry rather than per request.
const tokenLifetime = 5 * time.Minute

// HTTPError is a non-2xx response from the backend.
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Code)
	}
	return e.Message
}

func (e *HTTPError) MayHaveSucceeded() bool {
	if e.Code >= 400 && e.Code < 500 {
		return false
	}
	return e.Code != http.StatusServiceUnavailable
}

func (e *HTTPError) Temporary() bool {
	return e.Code == http.StatusServiceUnavailable ||
		e.Code == http.StatusGatewayTimeout ||
		e.Code == http.StatusRequestTimeout ||
		e.Code == http.StatusTooManyRequests
}

// Connection implements connector.Backend against an HTTP endpoint.
type Connection struct {
	UserAgent string

	serverURL string
	deviceID  string
	secret    []byte
	client    *http.Client

	tokenLock   sync.Mutex
	token       string
	tokenExpiry time.Time

	mu     sync.Mutex
	closed bool
	inbox  chan connector.Instruction
}

// NewConnection creates a backend link. The secret, when non-empty, is used
// to mint HS256 device tokens carried in the Authorization header.
func NewConnection(serverURL, deviceID string, secret []byte) *Connection {
	return &Connection{
		UserAgent: "watch-relay",
		serverURL: strings.TrimSuffix(serverURL, "/"),
		deviceID:  deviceID,
		secret:    secret,
		client:    &http.Client{},
		inbox:     make(chan connector.Instruction, connector.BufferSize),
	}
}

func (c *Connection) RetryInterval() time.Duration {
	return time.Second
}

func (c *Connection) Instructions() <-chan connector.Instruction {
	return c.inbox
}

// Close ends the instruction stream. Idempotent.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.inbox)
		c.client.CloseIdleConnections()
	}
}

// authHeader returns a cached bearer token, minting a fresh one when the
// cached token is within a minute of expiry.
func (c *Connection) authHeader() (string, error) {
	if len(c.secret) == 0 {
		return "", nil
	}
	c.tokenLock.Lock()
	defer c.tokenLock.Unlock()
	if c.token != "" && time.Until(c.tokenExpiry) > time.Minute {
		return "Bearer " + c.token, nil
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    c.deviceID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("inet: failed to sign device token: %w", err)
	}
	c.token = token
	c.tokenExpiry = now.Add(tokenLifetime)
	return "Bearer " + c.token, nil
}

func (c *Connection) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	url := fmt.Sprintf("%s/%s", c.serverURL, path)
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	request, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, &protocol.CommandError{Err: err, PossibleTemporary: false}
	}
	request.Header.Set("User-Agent", c.UserAgent)
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	auth, err := c.authHeader()
	if err != nil {
		return 0, nil, err
	}
	if auth != "" {
		request.Header.Set("Authorization", auth)
	}

	result, err := c.client.Do(request)
	if err != nil {
		return 0, nil, &protocol.CommandError{Err: err, PossibleSuccess: true, PossibleTemporary: true}
	}
	defer result.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(result.Body, maxResponseLength+1))
	if err != nil {
		return result.StatusCode, nil, &protocol.CommandError{Err: err, PossibleSuccess: true, PossibleTemporary: true}
	}
	if len(payload) > maxResponseLength {
		return result.StatusCode, nil, protocol.NewError("inet: response exceeds maximum length", true, true)
	}
	return result.StatusCode, payload, nil
}

// Deliver POSTs one serialized telemetry sample.
func (c *Connection) Deliver(ctx context.Context, sample telemetry.Sample) error {
	body, err := json.Marshal(sample)
	if err != nil {
		return err
	}
	log.Debug("inet: delivering sample: %s", body)

	code, payload, err := c.do(ctx, http.MethodPost, telemetryPath, body)
	if err != nil {
		return err
	}
	if code >= 200 && code < 300 {
		return nil
	}
	log.Debug("inet: backend returned %d: %s", code, payload)
	return &HTTPError{Code: code, Message: string(payload)}
}

// FetchMonitoringType asks the backend which monitoring mode is active.
func (c *Connection) FetchMonitoringType(ctx context.Context) (string, error) {
	code, payload, err := c.do(ctx, http.MethodGet, monitoringTypePath, nil)
	if err != nil {
		return "", err
	}
	if code != http.StatusOK {
		return "", &HTTPError{Code: code, Message: string(payload)}
	}
	var response struct {
		MonitoringType string `json:"monitoringType"`
	}
	if err := json.Unmarshal(payload, &response); err != nil {
		return "", fmt.Errorf("inet: malformed monitoring type response: %w", err)
	}
	return response.MonitoringType, nil
}

// Listen runs the instruction long-poll loop until ctx is canceled. Each 200
// response carries one opaque instruction payload; 204 means none pending.
func (c *Connection) Listen(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		code, payload, err := c.poll(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			log.Warning("inet: instruction poll failed: %s", err)
		case code == http.StatusOK:
			c.push(connector.Instruction{Payload: payload})
			continue
		case code == http.StatusNoContent:
			continue
		default:
			log.Warning("inet: instruction poll returned %d", code)
		}

		select {
		case <-time.After(c.RetryInterval()):
		case <-ctx.Done():
			return
		}
	}
}

func (c *Connection) poll(ctx context.Context) (int, []byte, error) {
	return c.do(ctx, http.MethodGet, instructionsPath, nil)
}

func (c *Connection) push(instruction connector.Instruction) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	// Buffered channel; holding the lock across the send keeps Close from
	// racing the push.
	select {
	case c.inbox <- instruction:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		log.Warning("inet: instruction inbox full, dropping payload")
	}
}

// Dialer creates fresh Connections, so a relay restart never reuses a
// torn-down link. It implements connector.BackendDialer.
type Dialer struct {
	ServerURL string
	DeviceID  string
	Secret    []byte
	Timeout   time.Duration
}

func (d *Dialer) Dial(_ context.Context) (connector.Backend, error) {
	if d.ServerURL == "" {
		return nil, protocol.NewError("inet: server URL not configured", false, false)
	}
	conn := NewConnection(d.ServerURL, d.DeviceID, d.Secret)
	if d.Timeout > 0 {
		conn.client.Timeout = d.Timeout
	}
	return conn, nil
}
