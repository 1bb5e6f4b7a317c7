package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"quizgen/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// LeaderboardSource subscribes to live leaderboard snapshots.
type LeaderboardSource interface {
	Subscribe(ctx context.Context) (<-chan domain.Leaderboard, func(), error)
}

// LeaderboardQuerier computes a leaderboard on demand.
type LeaderboardQuerier interface {
	Leaderboard(ctx context.Context, q domain.LeaderboardQuery) (domain.Leaderboard, error)
}

// LeaderboardFeed streams the leaderboard over websockets. Clients receive
// the current snapshot on connect and a fresh one after every graded
// submission; they may also ask for a filtered board.
type LeaderboardFeed struct {
	source   LeaderboardSource
	querier  LeaderboardQuerier
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewLeaderboardFeed(source LeaderboardSource, querier LeaderboardQuerier, allowedOrigins []string, log *slog.Logger) *LeaderboardFeed {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &LeaderboardFeed{
		source:  source,
		querier: querier,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type queryPayload struct {
	Category string `json:"category"`
	Limit    int    `json:"limit"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// Serve upgrades the request and pumps leaderboard updates until the client
// disconnects.
func (h *LeaderboardFeed) Serve(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := c.Request.Context()
	updates, cancel, err := h.source.Subscribe(ctx)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: "leaderboard unavailable"}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// a single writer goroutine owns conn writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", "error", err)
				_ = conn.Close()
				return
			}
		}
	}()
	reply := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}
	replyError := func(message string) {
		reply(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: message}})
	}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "leaderboard", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "query":
			var q queryPayload
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &q); err != nil {
					replyError("invalid query payload")
					continue
				}
			}
			lb, err := h.querier.Leaderboard(ctx, domain.LeaderboardQuery{Category: q.Category, Limit: q.Limit})
			if err != nil {
				replyError("leaderboard unavailable")
				continue
			}
			reply(outboundMessage[any]{Type: "leaderboard", Payload: lb})
		default:
			replyError("unsupported message type")
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}
