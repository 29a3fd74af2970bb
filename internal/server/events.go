package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"

	"github.com/piwi3910/bakery/internal/engine"
)

const writeTimeout = 3 * time.Second

// streamEvents upgrades to a websocket and sends the run's events as JSON
// text messages until the run has finished. A run that is already done
// gets a single all_finished event.
func (s *Server) streamEvents(c *gin.Context) {
	r, ok := s.run(c)
	if !ok {
		return
	}

	// Subscribe before the upgrade so no event is missed in between.
	events, cancel := s.o.Subscribe()
	defer cancel()

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{OriginPatterns: s.origins})
	if err != nil {
		s.log.V(1).Info("Websocket upgrade failed", "error", err.Error())
		return
	}
	defer conn.CloseNow()

	log := s.log.WithValues("run", r.ID())
	log.V(1).Info("Event stream opened")

	// Reads are only needed to notice the client going away.
	ctx := conn.CloseRead(c.Request.Context())

	if isDone(r) {
		_ = send(ctx, conn, engine.Event{Kind: engine.EventAllFinished, RunID: r.ID()})
		conn.Close(websocket.StatusNormalClosure, "run finished")
		return
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if ev.RunID != r.ID() {
				continue
			}
			if err := send(ctx, conn, ev); err != nil {
				log.V(1).Info("Event stream write failed", "error", err.Error())
				return
			}
			if ev.Kind == engine.EventAllFinished {
				conn.Close(websocket.StatusNormalClosure, "run finished")
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func send(ctx context.Context, conn *websocket.Conn, ev engine.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
