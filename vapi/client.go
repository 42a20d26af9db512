// Package vapi speaks the realtime call protocol: JSON control and
// event frames as websocket text messages, raw PCM16LE microphone audio
// as binary messages.
package vapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"sama/log"
)

const (
	defaultServerURL   = "wss://call.vapi.ai/web"
	handshakeTimeout   = 15 * time.Second
	closeWriteDeadline = 2 * time.Second
)

// CallConfig describes the call to open. Zero SampleRate/Channels fall
// back to the wire defaults (16 kHz mono).
type CallConfig struct {
	AssistantID string
	SampleRate  int
	Channels    int
}

// Connector opens calls against one backend.
type Connector interface {
	Name() string
	NewCall(ctx context.Context, cfg CallConfig) (Call, error)
}

// Call is one live session. Events is closed when the stream ends;
// events are delivered losslessly in arrival order.
type Call interface {
	ID() string
	Events() <-chan Event
	Feed(pcm []byte)
	Stop()
	Close() error
}

// New builds the websocket connector. VAPI_API_KEY is required; the
// server URL comes from the argument, VAPI_SERVER_URL, or the default,
// in that order.
func New(server string) (Connector, error) {
	key := os.Getenv("VAPI_API_KEY")
	if key == "" {
		return nil, errors.New("VAPI_API_KEY environment variable not set")
	}
	if server == "" {
		server = os.Getenv("VAPI_SERVER_URL")
	}
	if server == "" {
		server = defaultServerURL
	}
	return &connector{apiKey: key, serverURL: server}, nil
}

type connector struct {
	apiKey    string
	serverURL string
}

func (c *connector) Name() string { return "vapi" }

// NewCall dials the server, sends the start frame and waits until the
// call is live. Readiness is the server's call-start frame; an error
// frame or transport fault before that resolves NewCall with an error,
// anything after surfaces on the event stream instead.
func (c *connector) NewCall(ctx context.Context, cfg CallConfig) (Call, error) {
	if cfg.AssistantID == "" {
		return nil, errors.New("assistant id required")
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.apiKey)

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, c.serverURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (http %d)", c.serverURL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", c.serverURL, err)
	}

	wc := &webCall{
		conn:   conn,
		events: make(chan Event, 64),
		done:   make(chan struct{}),
		ready:  make(chan error, 1),
	}

	start := startFrame{
		Type:        "start",
		AssistantID: cfg.AssistantID,
		SampleRate:  cfg.SampleRate,
		Channels:    cfg.Channels,
	}
	if start.SampleRate == 0 {
		start.SampleRate = 16000
	}
	if start.Channels == 0 {
		start.Channels = 1
	}
	if err := wc.sendJSON(start); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send start: %w", err)
	}

	go wc.readLoop()

	select {
	case err := <-wc.ready:
		if err != nil {
			wc.Close()
			return nil, err
		}
		return wc, nil
	case <-ctx.Done():
		wc.Close()
		return nil, ctx.Err()
	}
}

type startFrame struct {
	Type        string `json:"type"`
	AssistantID string `json:"assistantId"`
	SampleRate  int    `json:"sampleRate"`
	Channels    int    `json:"channels"`
}

type stopFrame struct {
	Type string `json:"type"`
}

type webCall struct {
	conn *websocket.Conn

	events chan Event
	done   chan struct{}

	ready     chan error // buffered; receives exactly one resolution
	readyOnce sync.Once
	started   atomic.Bool
	callID    string // written before ready resolves, stable afterwards

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
}

func (c *webCall) ID() string { return c.callID }

func (c *webCall) Events() <-chan Event { return c.events }

// Feed forwards one capture buffer as a binary frame. Write failures
// are dropped here; the read loop surfaces the terminal error.
func (c *webCall) Feed(pcm []byte) {
	if c.closed.Load() {
		return
	}
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.BinaryMessage, pcm)
	c.writeMu.Unlock()
}

// Stop asks the server to end the call. Fire and forget: the session
// settles when the call-end event comes back.
func (c *webCall) Stop() {
	_ = c.sendJSON(stopFrame{Type: "stop"})
}

func (c *webCall) sendJSON(v any) error {
	if c.closed.Load() {
		return errors.New("call is closed")
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *webCall) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeWriteDeadline))
		c.writeMu.Unlock()
		_ = c.conn.Close()
	})
	return nil
}

func (c *webCall) signalReady(err error) {
	c.readyOnce.Do(func() {
		if err == nil {
			c.started.Store(true)
		}
		c.ready <- err
	})
}

func (c *webCall) readLoop() {
	defer close(c.events)
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if !c.started.Load() {
				c.signalReady(fmt.Errorf("connection lost before call start: %w", err))
				return
			}
			if c.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			c.emit(ErrorEvent{Message: "connection lost: " + err.Error()})
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		ev, err := decodeEvent(data)
		if err != nil {
			log.Warnf("skipping undecodable frame: %v", err)
			continue
		}
		if ev == nil {
			continue
		}

		if e, ok := ev.(CallStartEvent); ok {
			c.callID = e.CallID
			c.signalReady(nil)
		}
		if e, ok := ev.(ErrorEvent); ok && !c.started.Load() {
			// start rejected; resolves NewCall, never reaches the stream
			c.signalReady(errors.New(e.Message))
			continue
		}

		c.emit(ev)
	}
}

// emit blocks rather than drops: losing a final transcript or call-end
// would corrupt the session state downstream. The done guard keeps the
// read loop from hanging once the call is closed.
func (c *webCall) emit(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}
