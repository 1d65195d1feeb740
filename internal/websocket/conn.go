// Package websocket provides the receive-only WebSocket connection used by the probe.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	perrors "github.com/PentesterFlow/wsprobe/internal/errors"
	"github.com/PentesterFlow/wsprobe/internal/logger"
)

const controlWriteWait = time.Second

// pastDeadline unblocks a pending read immediately.
var pastDeadline = time.Unix(1, 0)

// Conn is an established connection owned by a single probe run.
type Conn struct {
	ws       *websocket.Conn
	url      string
	opts     Options
	log      *logger.Logger
	seq      int
	consumed atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

// Dial performs the handshake. Failures are returned as *errors.ProbeError.
// The returned response is the upgrade response, if one was received.
func Dial(ctx context.Context, rawURL string, opts Options, log *logger.Logger) (*Conn, *http.Response, error) {
	if log == nil {
		log = logger.Nop()
	}

	target, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, nil, perrors.New(perrors.HandshakeFailure, rawURL, err)
	}

	dialer, err := NewDialer(opts)
	if err != nil {
		return nil, nil, perrors.New(perrors.HandshakeFailure, target, err)
	}

	start := time.Now()
	ws, resp, err := dialer.DialContext(ctx, target, nil)
	if opts.Trace {
		log.HandshakeEvent(target, resp, time.Since(start))
	}
	if err != nil {
		status := 0
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			status = resp.StatusCode
		}
		return nil, resp, perrors.CategorizeDial(ctx, target, err, status)
	}

	c := &Conn{
		ws:   ws,
		url:  target,
		opts: opts,
		log:  log,
	}
	c.installControlHandlers()

	return c, resp, nil
}

// installControlHandlers keeps the library's default control replies and
// traces each control frame.
func (c *Conn) installControlHandlers() {
	c.ws.SetPingHandler(func(appData string) error {
		if c.opts.Trace {
			c.log.ControlEvent("ping", appData)
		}
		err := c.ws.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(controlWriteWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil
		}
		return err
	})

	c.ws.SetPongHandler(func(appData string) error {
		if c.opts.Trace {
			c.log.ControlEvent("pong", appData)
		}
		return nil
	})

	c.ws.SetCloseHandler(func(code int, text string) error {
		if c.opts.Trace {
			c.log.ControlEvent("close", fmt.Sprintf("%d %s", code, text))
		}
		msg := websocket.FormatCloseMessage(code, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(controlWriteWait))
		return nil
	})
}

// URL returns the normalized endpoint of the connection.
func (c *Conn) URL() string {
	return c.url
}

// Subprotocol returns the negotiated subprotocol, if any.
func (c *Conn) Subprotocol() string {
	return c.ws.Subprotocol()
}

// Receive blocks until a data frame arrives, the connection fails, or ctx is done.
// Failures are returned as *errors.ProbeError.
func (c *Conn) Receive(ctx context.Context) (Message, error) {
	if c.opts.ReadTimeout > 0 {
		c.ws.SetReadDeadline(time.Now().Add(c.opts.ReadTimeout))
	}

	stop := context.AfterFunc(ctx, func() {
		c.ws.SetReadDeadline(pastDeadline)
	})
	defer stop()

	msgType, data, err := c.ws.ReadMessage()
	if err != nil {
		return Message{}, perrors.CategorizeRead(ctx, c.url, err)
	}

	c.seq++
	msg := Message{
		Seq:        c.seq,
		Kind:       kindName(msgType),
		Data:       data,
		ReceivedAt: time.Now(),
	}

	if c.opts.Trace {
		c.log.FrameEvent(msg.Kind, msg.Seq, len(data))
	}

	return msg, nil
}

// Messages returns the connection's inbound messages as a lazy sequence.
// The sequence never ends on its own: it yields each message in receive
// order, then the terminal error once, then stops. It can be ranged over
// only once; later iterations yield ErrSequenceConsumed.
func (c *Conn) Messages(ctx context.Context) iter.Seq2[Message, error] {
	return func(yield func(Message, error) bool) {
		if !c.consumed.CompareAndSwap(false, true) {
			yield(Message{}, ErrSequenceConsumed)
			return
		}

		for {
			msg, err := c.Receive(ctx)
			if err != nil {
				yield(Message{}, err)
				return
			}
			if !yield(msg, nil) {
				return
			}
		}
	}
}

// Close releases the underlying socket. It is safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}
