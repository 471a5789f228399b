// File: internal/handlers/sse.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/vyomb/go-chatrelay/internal/services/chat"
)

// sseChannel adapts an HTTP response into a ClientChannel delivering
// server-sent events. Disconnect detection rides the request context, which
// the server cancels the moment the peer goes away, so IsConnected flips
// promptly instead of on the next write.
type sseChannel struct {
	w       http.ResponseWriter
	flusher http.Flusher

	mu           sync.Mutex
	closed       bool
	disconnected bool
	callback     func()
	callbackRun  bool
}

func newSSEChannel(w http.ResponseWriter, r *http.Request) (*sseChannel, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support streaming")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := &sseChannel{w: w, flusher: flusher}

	go func() {
		<-r.Context().Done()
		ch.markDisconnected()
	}()

	return ch, nil
}

func (c *sseChannel) Send(ev chat.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.New("channel closed")
	}
	if c.disconnected {
		return errors.New("client disconnected")
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	c.flusher.Flush()
	return nil
}

func (c *sseChannel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.disconnected && !c.closed
}

func (c *sseChannel) OnDisconnect(fn func()) {
	c.mu.Lock()
	c.callback = fn
	fireNow := c.disconnected && !c.callbackRun
	if fireNow {
		c.callbackRun = true
	}
	c.mu.Unlock()

	if fireNow && fn != nil {
		fn()
	}
}

func (c *sseChannel) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *sseChannel) markDisconnected() {
	c.mu.Lock()
	c.disconnected = true
	fn := c.callback
	fireNow := fn != nil && !c.callbackRun
	if fireNow {
		c.callbackRun = true
	}
	c.mu.Unlock()

	if fireNow {
		fn()
	}
}
