package main

import (
	"context"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"pimine.team/miner/miner"
)

// streamStats reads snapshots from the stats socket until ctx is done or
// the connection fails.
func streamStats(ctx context.Context, url string, fn func(miner.Stats)) error {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.CloseNow()

	for {
		var stats miner.Stats
		if err := wsjson.Read(ctx, conn, &stats); err != nil {
			return err
		}
		fn(stats)
	}
}
