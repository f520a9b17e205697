// Copyright 2024 The sprt Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package messaging

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/symbolicsp/sprt"
)

const (
	writeWait      = 1 * time.Second
	maxMessageSize = 8192
	pingPeriod     = 20 * time.Second
	pubResolution  = 100 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  maxMessageSize,
	WriteBufferSize: maxMessageSize,
}

// StateSource is the subset of *runner.Runner this adapter depends on:
// the latest broadcast state plus a channel that closes on every
// change. Taking an interface here, rather than importing the runner
// package directly, keeps messaging usable against anything that
// exposes the same watch-channel shape (including a test double).
type StateSource interface {
	State() *sprt.State
	Watch() <-chan struct{}
}

// Sink receives externally observed partial state updates, destined for
// the Merger task. *ticker.Merger satisfies this via its Push method.
type Sink interface {
	Push(update map[sprt.Path]sprt.Value)
}

// Handler upgrades incoming requests to a WebSocket and, per connection,
// pushes the runner's broadcast state outbound as JSON wireFrames while
// decoding inbound wireFrames into Sink.Push calls — the messaging
// adapter of SPEC_FULL §7, grounded on the publish loop in
// server/fastview's serveWebsocket (niceyeti-tabular).
type Handler struct {
	Source StateSource
	Sink   Sink
}

// ServeHTTP upgrades the connection and runs the adapter loop until the
// client disconnects or the request's context is cancelled.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("messaging: upgrade failed: %v\n", err)
		return
	}
	defer h.closeConn(conn)
	h.pump(r.Context(), conn)
}

func (h *Handler) pump(ctx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error { return nil })

	go h.readPump(ctx, cancel, conn)

	last := time.Now()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	state := h.Source.State()
	changed := h.Source.Watch()
	if err := h.publish(conn, state, nil); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-changed:
			next := h.Source.State()
			changed = h.Source.Watch()
			if time.Since(last) < pubResolution {
				state = next
				continue
			}
			last = time.Now()
			if err := h.publish(conn, next, state); err != nil {
				return
			}
			state = next
		}
	}
}

// publish writes next's assignments that differ from prev (or every
// assignment, if prev is nil: the connection's initial snapshot) as one
// wireFrame.
func (h *Handler) publish(conn *websocket.Conn, next, prev *sprt.State) error {
	var assignments map[sprt.Path]sprt.Value
	if prev == nil {
		assignments = next.FilterByPaths(next.Paths())
	} else {
		assignments = diff(prev, next)
		if len(assignments) == 0 {
			return nil
		}
	}
	frame, err := encodeFrame(assignments)
	if err != nil {
		log.Printf("messaging: encoding outbound frame: %v\n", err)
		return nil
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(frame)
}

func diff(prev, next *sprt.State) map[sprt.Path]sprt.Value {
	out := make(map[sprt.Path]sprt.Value)
	for _, p := range next.Paths() {
		nv, _ := next.Get(p)
		if pv, ok := prev.Get(p); !ok || !pv.Equal(nv) {
			out[p] = nv
		}
	}
	return out
}

// readPump drains inbound control frames (ping/pong/close) and decodes
// data frames into Sink.Push calls; any read error is treated as
// permanent, per the gorilla/websocket chat example's read-pump
// convention.
func (h *Handler) readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		var frame wireFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("messaging: read pump: %v\n", err)
			}
			return
		}
		assignments, err := decodeFrame(frame)
		if err != nil {
			log.Printf("messaging: decoding inbound frame: %v\n", err)
			continue
		}
		h.Sink.Push(assignments)
	}
}

func (h *Handler) closeConn(conn *websocket.Conn) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
}
