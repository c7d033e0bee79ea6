package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"pimine.team/miner/log"
	"pimine.team/miner/miner"
)

// timeout for a single snapshot write to a socket
const writeTimeout = 5 * time.Second

// StatsSocketHandler returns a http.HandlerFunc that upgrades to a WebSocket and
// pushes a JSON statistics snapshot on every tick of the feed, starting with
// an immediate one, until the peer disconnects. Incoming messages are ignored.
func StatsSocketHandler(feed *miner.Feed, source miner.StatsSource, allowedOrigins []string) http.HandlerFunc {
	opts := &websocket.AcceptOptions{OriginPatterns: OriginPatterns(allowedOrigins)}

	return func(w http.ResponseWriter, r *http.Request) {
		addr := ProxiedAddr(r)

		conn, err := websocket.Accept(w, r, opts)
		if err != nil {
			log.API.Warnf("[%s] Stats socket: upgrade failed: %s", addr, err)
			return
		}
		defer conn.Close(websocket.StatusInternalError, "unexpected close")
		log.API.Infof("[%s] Stats socket opened", addr)
		defer log.API.Infof("[%s] Stats socket closed", addr)

		// CloseRead discards incoming messages and cancels ctx when the peer leaves
		ctx := conn.CloseRead(r.Context())

		updates, unsubscribe := feed.Subscribe(addr)
		defer unsubscribe()

		if err := writeSnapshot(ctx, conn, source.Stats()); err != nil {
			return
		}
		for {
			select {
			case <-ctx.Done():
				conn.Close(websocket.StatusNormalClosure, "")
				return
			case stats := <-updates:
				if err := writeSnapshot(ctx, conn, stats); err != nil {
					log.API.Debugf("[%s] Stats socket write failed: %s", addr, err)
					return
				}
			}
		}
	}
}

func writeSnapshot(ctx context.Context, conn *websocket.Conn, stats miner.Stats) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, stats)
}

// OriginPatterns converts configured origins like "https://host:port" into
// the host patterns expected by websocket.AcceptOptions.
func OriginPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if strings.Contains(origin, "://") {
			if u, err := url.Parse(origin); err == nil && u.Host != "" {
				origin = u.Host
			}
		}
		patterns = append(patterns, origin)
	}
	return patterns
}
