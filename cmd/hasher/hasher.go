package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/btcsuite/btclog"
	"pimine.team/miner/hashengine"
	pimlog "pimine.team/miner/log"
	"pimine.team/miner/miner"
)

func main() {
	// parse commandline flags, accepts -h / --help to print usage
	zeros := flag.Int("zeros", 0, "how many leading zero bits to look for")
	header := flag.String("header", "Hello, World!", "the block header to hash")
	algorithm := flag.String("algorithm", string(hashengine.SHA256d), fmt.Sprintf("double hash to use, one of %v", hashengine.Algorithms()))
	progress := flag.Duration("progress", time.Second, "interval of progress lines on stderr, 0 disables them")
	verbose := flag.Bool("verbose", false, "log session events to stderr")
	flag.Parse()

	// verify we've passed useful values
	if *zeros < 0 || *zeros > hashengine.DigestBits {
		log.Fatalf("use an integer between 0 and %d for -zeros", hashengine.DigestBits)
	}
	algo, err := hashengine.ParseAlgorithm(*algorithm)
	if err != nil {
		log.Fatalln(err)
	}

	// session events only with -verbose
	level := btclog.LevelOff
	if *verbose {
		level = btclog.LevelInfo
	}
	m := miner.New(miner.Options{
		Algorithm: algo,
		Logger:    pimlog.NewWriterLogger(os.Stderr, "HASH", level),
	})

	// ^C cancels the search
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	fmt.Fprintf(os.Stderr, "Searching %s for %q with %d leading zero bits ...\n", algo, *header, *zeros)
	if *progress > 0 {
		go printProgress(ctx, m, *progress)
	}

	result, err := m.Start(ctx, *header, uint32(*zeros))
	if err != nil {
		log.Fatalln(err)
	}

	switch result.Status {
	case miner.Found:
		fmt.Fprintf(os.Stderr, "%d!\n", result.Nonce)
		fmt.Printf("%s%d => %s\n", result.BlockHeader, result.Nonce, result.Hash)
	default:
		fmt.Fprintf(os.Stderr, "%s after %d iterations\n", result.Status, result.Iterations)
		os.Exit(1)
	}
}

// printProgress writes the running totals until the session is over
func printProgress(ctx context.Context, m *miner.Miner, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := m.Stats()
			if !s.IsMining {
				return
			}
			fmt.Fprintf(os.Stderr, "%d hashes, %.0f H/s .. \n", s.TotalHashes, s.HashRate)
		}
	}
}
