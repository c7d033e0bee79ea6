package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"pimine.team/miner/api"
	"pimine.team/miner/miner"
)

var ( // config flags
	minerUrl = "http://localhost:3000" // default miner base URL
	header   = ""                      // block header, server default if empty
	verbose  = false                   // print raw JSON
)

var ( // command flags, pick one
	cmdMine    = -1    // start a session with this difficulty
	cmdStop    = false // stop the running session
	cmdStats   = false // print one stats snapshot
	cmdWatch   = false // print streamed stats
	cmdMonitor = false // interactive stats monitor
)

func init() {
	// get the miner URL from env
	if url, ok := os.LookupEnv("PIMINE_URL"); ok {
		minerUrl = strings.TrimRight(url, "/")
	}
}

func main() {

	// commandline parser
	flag.StringVar(&minerUrl, "url", minerUrl, "URL of the miner to use")
	flag.IntVar(&cmdMine, "mine", -1, "Start mining with this difficulty in leading zero bits and wait for the result")
	flag.StringVar(&header, "header", "", "Block header for -mine, uses the server default if empty")
	flag.BoolVar(&cmdStop, "stop", false, "Stop the running session")
	flag.BoolVar(&cmdStats, "stats", false, "Print the current statistics")
	flag.BoolVar(&cmdWatch, "watch", false, "Print statistics as they are pushed by the miner")
	flag.BoolVar(&cmdMonitor, "monitor", false, "Show a live statistics monitor in the terminal")
	flag.BoolVar(&verbose, "verbose", verbose, "Print raw JSON messages")
	flag.Parse()
	minerUrl = strings.TrimRight(minerUrl, "/")

	// stop waiting on ^C; a pending -mine also stops the remote session
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	switch true {

	case cmdMine >= 0:
		Mine(ctx, uint32(cmdMine), header)

	case cmdStop:
		Stop(ctx)

	case cmdStats:
		PrintStats(ctx)

	case cmdWatch:
		Watch(ctx)

	case cmdMonitor:
		Monitor(ctx)

	// no command specified
	default:
		fmt.Fprintln(os.Stderr, "ERR: one of -mine, -stop, -stats, -watch, -monitor must be used")
		flag.Usage()
		os.Exit(2)
	}

}

// open connectrpc client connection
func ConnectRpcClient() *api.MinerServiceClient {
	return api.NewMinerServiceClient(http.DefaultClient, minerUrl+"/api/rpc")
}

// websocket URL of the stats feed
func socketUrl() string {
	if rest, ok := strings.CutPrefix(minerUrl, "https://"); ok {
		return "wss://" + rest + "/ws"
	}
	return "ws://" + strings.TrimPrefix(minerUrl, "http://") + "/ws"
}

// run a session and print its result
func Mine(ctx context.Context, difficulty uint32, header string) {
	client := ConnectRpcClient()

	// forward an interrupt to the miner, the pending call then returns the cancelled result
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-finished:
		case <-ctx.Done():
			if _, err := client.Stop(context.Background()); err != nil {
				log.Printf("ERR: stopping session: %s", err)
			}
		}
	}()

	result, err := client.Start(context.WithoutCancel(ctx), &api.StartRequest{
		TargetDifficulty: difficulty,
		BlockHeader:      header,
	})
	if errors.Is(err, miner.ErrSessionRunning) {
		log.Fatal("a session is already running, use -stop first")
	}
	if err != nil {
		log.Fatal("mining failed: ", err)
	}
	printJSONOr(result, func() { fmt.Println(formatResult(result)) })
	if !result.Solved() {
		os.Exit(1)
	}
}

// stop the running session
func Stop(ctx context.Context) {
	res, err := ConnectRpcClient().Stop(ctx)
	if err != nil {
		log.Fatal("stopping failed: ", err)
	}
	printJSONOr(res, func() { fmt.Println(res.Status) })
}

// print a single stats snapshot
func PrintStats(ctx context.Context) {
	stats, err := ConnectRpcClient().Stats(ctx)
	if err != nil {
		log.Fatal("fetching stats failed: ", err)
	}
	printJSONOr(stats, func() { fmt.Println(formatStats(*stats)) })
}

// print a line for every pushed snapshot until interrupted
func Watch(ctx context.Context) {
	err := streamStats(ctx, socketUrl(), func(s miner.Stats) {
		printJSONOr(s, func() { fmt.Println(formatStats(s)) })
	})
	if err != nil && ctx.Err() == nil {
		log.Fatal("stats stream: ", err)
	}
}

func printJSONOr(v any, plain func()) {
	if !verbose {
		plain()
		return
	}
	if err := json.NewEncoder(os.Stdout).Encode(v); err != nil {
		log.Fatal(err)
	}
}
