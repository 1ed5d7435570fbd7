package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/andrewpaige1/flashcardhero-api/models"
	"github.com/andrewpaige1/flashcardhero-api/store"
)

// maxBackoff caps the reconnect delay of live streams.
const maxBackoff = 30 * time.Second

// RemoteError is an error frame pushed by the server on a live stream.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// SubscribeQuery streams the caller's own collections or the public
// catalogue. A dropped connection is reported to onError; with
// WithReconnect it is redialed with backoff until the subscription is
// canceled, and the server sends a full snapshot on every connect.
func (r *Remote) SubscribeQuery(filter store.Filter, onSnapshot func([]models.Collection), onError func(error)) (store.Unsubscribe, error) {
	path, err := r.listPath(filter)
	if err != nil {
		return nil, err
	}
	path = "/api/ws" + path[len("/api"):]

	return r.stream(path, func(f models.Frame) {
		if onSnapshot != nil {
			onSnapshot(limit(filter, f.Collections))
		}
	}, onError), nil
}

// SubscribeDoc streams one collection. A private collection of another user
// arrives as an error wrapping store.ErrForbidden.
func (r *Remote) SubscribeDoc(id string, onSnapshot func(*models.Collection), onError func(error)) (store.Unsubscribe, error) {
	if id == "" {
		return nil, store.ErrNotFound
	}
	return r.stream("/api/ws/collections/"+url.PathEscape(id), func(f models.Frame) {
		if onSnapshot != nil {
			onSnapshot(f.Collection)
		}
	}, onError), nil
}

// stream runs one WebSocket reader, redialing when reconnect is set.
// onData receives snapshot and document frames; error frames and
// connection failures go to onError.
func (r *Remote) stream(path string, onData func(models.Frame), onError func(error)) store.Unsubscribe {
	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once

	go func() {
		failures := 0
		for {
			err := r.session(ctx, path, func(f models.Frame) {
				if ctx.Err() != nil {
					return
				}
				failures = 0
				if f.Type == models.FrameError {
					notify(onError, frameError(f.Error))
					return
				}
				onData(f)
			})
			if ctx.Err() != nil {
				return
			}
			log.Printf("Remote.stream: path=%s connection lost: %v", path, err)
			notify(onError, &store.StoreError{Op: "subscribe", Err: err})
			if !r.reconnect {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(calculateBackoff(failures, r.retry)):
			}
			failures++
		}
	}()

	return func() { once.Do(cancel) }
}

// session dials path and reads frames until the connection fails or ctx ends.
func (r *Remote) session(ctx context.Context, path string, onFrame func(models.Frame)) error {
	conn, resp, err := r.dialer.DialContext(ctx, r.wsURL(path), http.Header{"User-Agent": {r.userAgent}})
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		if errors.Is(err, websocket.ErrBadHandshake) && resp != nil {
			return readHTTPError(resp)
		}
		return fmt.Errorf("dial %s: %w", path, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		var f models.Frame
		if err := conn.ReadJSON(&f); err != nil {
			return err
		}
		onFrame(f)
	}
}

// wsURL carries the token as the access_token query parameter.
func (r *Remote) wsURL(path string) string {
	u := *r.baseURL
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = path
	if r.token != "" {
		u.RawQuery = url.Values{"access_token": {r.token}}.Encode()
	}
	return u.String()
}

func frameError(message string) error {
	if message == store.ErrForbidden.Error() {
		return &store.StoreError{Op: "subscribe", Err: store.ErrForbidden}
	}
	return &store.StoreError{Op: "subscribe", Err: &RemoteError{Message: message}}
}

func notify(onError func(error), err error) {
	if onError != nil {
		onError(err)
	}
}

// calculateBackoff doubles base per consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return min(base, maxBackoff)
	}
	if failures > 16 {
		return maxBackoff
	}
	return min(base<<failures, maxBackoff)
}
