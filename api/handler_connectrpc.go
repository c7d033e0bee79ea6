package api

import (
	"context"
	"errors"
	"net/http"

	"connectrpc.com/connect"
	"pimine.team/miner/log"
	"pimine.team/miner/miner"
)

// Names of the MinerService and its procedures.
const (
	MinerServiceName = "pimine.v1.MinerService"

	MinerServiceStartProcedure = "/" + MinerServiceName + "/Start"
	MinerServiceStopProcedure  = "/" + MinerServiceName + "/Stop"
	MinerServiceStatsProcedure = "/" + MinerServiceName + "/Stats"
)

// StartRequest asks for a new session; an empty BlockHeader selects the default.
type StartRequest struct {
	TargetDifficulty uint32 `json:"target_difficulty"`
	BlockHeader      string `json:"block_header,omitempty"`
}

type StopRequest struct{}

type StatsRequest struct{}

// This ConnectRPC server implements the MinerService on top of a Miner. Start
// blocks for the whole session, each request is served in its own goroutine.
type ConnectRpcServer struct {
	Miner         *miner.Miner
	DefaultHeader string
}

func (s *ConnectRpcServer) Start(
	ctx context.Context,
	req *connect.Request[StartRequest],
) (
	*connect.Response[miner.Result],
	error,
) {
	header := req.Msg.BlockHeader
	if header == "" {
		header = s.DefaultHeader
	}
	log.API.Infof("[%s] RPC Start: difficulty=%d", req.Peer().Addr, req.Msg.TargetDifficulty)

	result, err := s.Miner.Start(ctx, header, req.Msg.TargetDifficulty)
	if err != nil {
		if errors.Is(err, miner.ErrSessionRunning) {
			return nil, connect.NewError(connect.CodeFailedPrecondition, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(result), nil
}

func (s *ConnectRpcServer) Stop(
	ctx context.Context,
	req *connect.Request[StopRequest],
) (
	*connect.Response[StopResponse],
	error,
) {
	s.Miner.Stop()
	log.API.Infof("[%s] RPC Stop", req.Peer().Addr)
	return connect.NewResponse(&StopResponse{Status: "stopped"}), nil
}

func (s *ConnectRpcServer) Stats(
	ctx context.Context,
	req *connect.Request[StatsRequest],
) (
	*connect.Response[miner.Stats],
	error,
) {
	stats := s.Miner.Stats()
	return connect.NewResponse(&stats), nil
}

// NewMinerServiceHandler builds the routes for all procedures of the service.
// The returned path is the prefix to mount the handler at.
func NewMinerServiceHandler(svc *ConnectRpcServer, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)
	mux := http.NewServeMux()
	mux.Handle(MinerServiceStartProcedure, connect.NewUnaryHandler(MinerServiceStartProcedure, svc.Start, opts...))
	mux.Handle(MinerServiceStopProcedure, connect.NewUnaryHandler(MinerServiceStopProcedure, svc.Stop, opts...))
	mux.Handle(MinerServiceStatsProcedure, connect.NewUnaryHandler(MinerServiceStatsProcedure, svc.Stats, opts...))
	return "/" + MinerServiceName + "/", mux
}

// MinerServiceClient calls a remote MinerService.
type MinerServiceClient struct {
	start *connect.Client[StartRequest, miner.Result]
	stop  *connect.Client[StopRequest, StopResponse]
	stats *connect.Client[StatsRequest, miner.Stats]
}

// NewMinerServiceClient creates a client for the service mounted under baseURL,
// e.g. "http://localhost:3000/api/rpc".
func NewMinerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *MinerServiceClient {
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &MinerServiceClient{
		start: connect.NewClient[StartRequest, miner.Result](httpClient, baseURL+MinerServiceStartProcedure, opts...),
		stop:  connect.NewClient[StopRequest, StopResponse](httpClient, baseURL+MinerServiceStopProcedure, opts...),
		stats: connect.NewClient[StatsRequest, miner.Stats](httpClient, baseURL+MinerServiceStatsProcedure, opts...),
	}
}

// Start runs a remote session and waits for its result. A session that is
// already running on the server yields miner.ErrSessionRunning.
func (c *MinerServiceClient) Start(ctx context.Context, req *StartRequest) (*miner.Result, error) {
	res, err := c.start.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		if connect.CodeOf(err) == connect.CodeFailedPrecondition {
			return nil, miner.ErrSessionRunning
		}
		return nil, err
	}
	return res.Msg, nil
}

func (c *MinerServiceClient) Stop(ctx context.Context) (*StopResponse, error) {
	res, err := c.stop.CallUnary(ctx, connect.NewRequest(&StopRequest{}))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}

func (c *MinerServiceClient) Stats(ctx context.Context) (*miner.Stats, error) {
	res, err := c.stats.CallUnary(ctx, connect.NewRequest(&StatsRequest{}))
	if err != nil {
		return nil, err
	}
	return res.Msg, nil
}
