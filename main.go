package main

import (
	"context"
	"net/http"
	"os"

	"pimine.team/miner/api"
	"pimine.team/miner/config"
	"pimine.team/miner/hashengine"
	"pimine.team/miner/log"
	"pimine.team/miner/miner"
	"pimine.team/miner/net/server"
	"pimine.team/miner/system"
)

func main() {
	printBanner()
	printVersion()

	// use configuration from environment variables
	conf := config.GetConfiguration()
	log.SetLogLevels(conf.LogLevel)
	if conf.LogFile != "" {
		if err := log.InitLogRotator(conf.LogFile); err != nil {
			log.Config.Criticalf("failed to open log file: %s", err)
			os.Exit(1)
		}
		defer log.CloseLogRotator()
	}
	log.Config.Debugf("%#v", &conf)

	// create a new http server
	mux := http.NewServeMux()
	srv, err := server.NewServer(server.CORS(conf.AllowedOrigins, mux), conf.HttpListen, conf.HttpCert, conf.HttpKey)
	if err != nil {
		log.Server.Criticalf("failed to start server: %s", err)
		os.Exit(1)
	}

	// the miner owning the shared statistics; the algorithm was validated with the config
	algorithm, _ := hashengine.ParseAlgorithm(conf.Algorithm)
	m := miner.New(miner.Options{
		Algorithm: algorithm,
		BatchSize: conf.BatchSize,
	})
	log.Miner.Infof("Double hash %s, batches of %d", m.Algorithm(), conf.BatchSize)

	// periodic statistics for the websocket subscribers
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	feed := miner.NewFeed(m)
	go feed.Run(ctx, conf.StatsInterval)

	// -- plain http
	mux.HandleFunc("POST /api/mine", api.MineHandler(m, conf.DefaultHeader))
	mux.HandleFunc("POST /api/stop", api.StopHandler(m))
	mux.HandleFunc("GET /api/stats", api.StatsHandler(m))
	mux.HandleFunc("GET /api/system", api.SystemHandler())
	log.Server.Infof("Mining API: %s/api/{mine,stop,stats,system}", srv.Addr())
	// -- websocket
	mux.HandleFunc("GET /ws", api.StatsSocketHandler(feed, m, conf.AllowedOrigins))
	log.Server.Infof("Stats socket: %s/ws", srv.Addr())
	// -- connectrpc
	rpc := &api.ConnectRpcServer{Miner: m, DefaultHeader: conf.DefaultHeader}
	path, handler := api.NewMinerServiceHandler(rpc)
	mux.Handle("/api/rpc"+path, http.StripPrefix("/api/rpc", handler))
	log.Server.Infof("Miner RPC: %s%s", srv.Addr(), "/api/rpc"+path)

	// health and version message
	mux.HandleFunc("GET /healthz", server.Healthz())
	mux.HandleFunc("GET /api/version", server.Version())

	// pprof endpoint for debugging
	if conf.Debug {
		mux.Handle("GET /debug/pprof/", server.Profiling())
		log.Server.Infof("DEBUG: miner PID is %d", os.Getpid())
		log.Server.Infof("DEBUG: pprof profiles at %s/debug/pprof", srv.Addr())
	}

	// prometheus metrics
	if conf.Metrics {
		system.InitializePrometheusMetrics()
		mux.Handle("/metrics", server.Prometheus())
		log.Server.Infof("Prometheus metrics: %s/metrics", srv.Addr())
	}

	// start listening http server; a signal stops the running session first
	log.Server.Infof("Miner listening on %s", srv.Addr())
	if err := srv.ListenAndServe(m.Stop); err != nil {
		log.Server.Warnf("shutdown: %s", err)
	}

}
