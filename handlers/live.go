package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/andrewpaige1/flashcardhero-api/collectionsync"
	"github.com/andrewpaige1/flashcardhero-api/models"
	"github.com/andrewpaige1/flashcardhero-api/store"
	"github.com/andrewpaige1/flashcardhero-api/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GET /api/ws/collections/mine
func (db *DBHandler) WatchMyCollections(w http.ResponseWriter, r *http.Request) {
	auth0ID, ok := utils.GetAuth0ID(r)
	if !ok {
		log.Printf("WatchMyCollections: Unauthorized request")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	db.watchQuery(w, r, "WatchMyCollections", store.ByOwner(auth0ID), nil)
}

// GET /api/ws/collections/public?sample=N
//
// With sample set the stream carries a random subset of at most 12 that is
// held stable across snapshots.
func (db *DBHandler) WatchPublicCollections(w http.ResponseWriter, r *http.Request) {
	var sampler *collectionsync.Sampler
	if v := r.URL.Query().Get("sample"); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			err = db.validate.Var(n, "gte=0")
		}
		if err != nil {
			http.Error(w, "sample must be a non-negative integer", http.StatusBadRequest)
			return
		}
		if n > 0 {
			sampler = collectionsync.NewSampler(min(n, collectionsync.DefaultSampleSize))
		}
	}
	db.watchQuery(w, r, "WatchPublicCollections", store.Public(), sampler)
}

func (db *DBHandler) watchQuery(w http.ResponseWriter, r *http.Request, op string, filter store.Filter, sampler *collectionsync.Sampler) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("%s: failed to upgrade the websocket: %v", op, err)
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	frames := make(chan models.Frame, 8)

	sub, err := db.Sync.SubscribeContext(ctx, filter,
		func(list []models.Collection) {
			if sampler != nil {
				list = sampler.Apply(list)
			}
			send(ctx, frames, models.Frame{Type: models.FrameSnapshot, Collections: list})
		},
		func(err error) {
			send(ctx, frames, models.Frame{Type: models.FrameError, Error: err.Error()})
		},
	)
	if err != nil {
		log.Printf("%s: subscribe failed filter=%s: %v", op, filter.Kind(), err)
		writeFrame(ws, models.Frame{Type: models.FrameError, Error: err.Error()})
		return
	}
	defer sub.Cancel()

	log.Printf("%s: client connected filter=%s", op, filter.Kind())
	pump(ctx, cancel, ws, frames)
	log.Printf("%s: client disconnected filter=%s", op, filter.Kind())
}

// GET /api/ws/collections/{collectionID}
//
// Private collections are only streamed to their owner; anyone else gets an
// error frame for as long as the collection stays private.
func (db *DBHandler) WatchCollection(w http.ResponseWriter, r *http.Request) {
	collectionID := r.PathValue("collectionID")
	auth0ID, _ := utils.GetAuth0ID(r)

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WatchCollection: failed to upgrade the websocket: %v", err)
		return
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	frames := make(chan models.Frame, 8)

	watch, err := db.Sync.WatchContext(ctx, collectionID,
		func(c *models.Collection) {
			if c != nil && !c.IsPublic() && c.OwnerID != auth0ID {
				send(ctx, frames, models.Frame{Type: models.FrameError, Error: "This collection is private"})
				return
			}
			send(ctx, frames, models.Frame{Type: models.FrameDocument, Collection: c})
		},
		func(err error) {
			send(ctx, frames, models.Frame{Type: models.FrameError, Error: err.Error()})
		},
	)
	if err != nil {
		log.Printf("WatchCollection: watch failed id=%s: %v", collectionID, err)
		writeFrame(ws, models.Frame{Type: models.FrameError, Error: err.Error()})
		return
	}
	defer watch.Cancel()

	pump(ctx, cancel, ws, frames)
}

// send queues a frame unless the connection is going away.
func send(ctx context.Context, frames chan<- models.Frame, f models.Frame) {
	select {
	case frames <- f:
	case <-ctx.Done():
	}
}

func writeFrame(ws *websocket.Conn, f models.Frame) error {
	ws.SetWriteDeadline(time.Now().Add(writeWait))
	err := ws.WriteJSON(f)
	if err != nil {
		log.Printf("writeFrame: failed to write websocket frame type=%s: %v", f.Type, err)
	}
	return err
}

// pump writes frames until ctx ends or the client goes away. Clients never
// send anything; the read loop only notices closes and answers pings.
func pump(ctx context.Context, cancel context.CancelFunc, ws *websocket.Conn, frames <-chan models.Frame) {
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case f := <-frames:
			if err := writeFrame(ws, f); err != nil {
				return
			}
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
