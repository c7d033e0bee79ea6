package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"pimine.team/miner/log"
	"pimine.team/miner/miner"
	"pimine.team/miner/system"
)

// MineRequest is the body of POST /api/mine. Without a block_header the
// configured default header is used.
type MineRequest struct {
	TargetDifficulty *uint32 `json:"target_difficulty"`
	BlockHeader      *string `json:"block_header,omitempty"`
}

// StopResponse acknowledges POST /api/stop.
type StopResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// maximum accepted request body, headers are short text
const maxRequestBody = 64 << 10

// MineHandler starts a session and replies with its Result once it terminated.
// The session is stopped if the client goes away before that.
func MineHandler(m *miner.Miner, defaultHeader string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		addr := ProxiedAddr(r)

		var req MineRequest
		body := http.MaxBytesReader(w, r.Body, maxRequestBody)
		if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
			return
		}
		if req.TargetDifficulty == nil {
			writeError(w, http.StatusBadRequest, "target_difficulty is required")
			return
		}
		header := defaultHeader
		if req.BlockHeader != nil {
			header = *req.BlockHeader
		}

		log.API.Infof("[%s] Mine request: difficulty=%d", addr, *req.TargetDifficulty)
		result, err := m.Start(r.Context(), header, *req.TargetDifficulty)
		if err != nil {
			log.API.Warnf("[%s] Mine request rejected: %s", addr, err)
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// StopHandler clears the active flag of the running session, if any.
func StopHandler(m *miner.Miner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.Stop()
		log.API.Infof("[%s] Stop requested", ProxiedAddr(r))
		writeJSON(w, http.StatusOK, StopResponse{Status: "stopped"})
	}
}

// StatsHandler replies with a snapshot of the mining statistics.
func StatsHandler(source miner.StatsSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, source.Stats())
	}
}

// SystemHandler replies with a snapshot of the host resources. Partial
// readings are returned as they are.
func SystemHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := system.Read()
		if err != nil {
			log.API.Debugf("system snapshot incomplete: %s", err)
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// statusFor maps miner errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, miner.ErrSessionRunning):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.API.Errorf("ERR: writing response: %s", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// ProxiedAddr returns the client address, preferring X-Forwarded-For set by a proxy.
func ProxiedAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
