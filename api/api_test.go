package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pimine.team/miner/hashengine"
	"pimine.team/miner/log"
	"pimine.team/miner/miner"
)

const testHeader = "00000000000000000000000000000000"

func newTestMiner() *miner.Miner {
	return miner.New(miner.Options{
		BatchSize: 1000,
		Logger:    log.NewWriterLogger(io.Discard, "TEST", btclog.LevelOff),
	})
}

func newTestServer(t *testing.T, m *miner.Miner) *httptest.Server {
	t.Helper()
	log.SetLogLevels("off")

	feed := miner.NewFeed(m)
	ctx, cancel := context.WithCancel(context.Background())
	go feed.Run(ctx, 20*time.Millisecond)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/mine", MineHandler(m, testHeader))
	mux.HandleFunc("POST /api/stop", StopHandler(m))
	mux.HandleFunc("GET /api/stats", StatsHandler(m))
	mux.HandleFunc("GET /api/system", SystemHandler())
	mux.HandleFunc("GET /ws", StatsSocketHandler(feed, m, []string{"*"}))
	path, handler := NewMinerServiceHandler(&ConnectRpcServer{Miner: m, DefaultHeader: testHeader})
	mux.Handle("/api/rpc"+path, http.StripPrefix("/api/rpc", handler))

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		m.Stop()
		cancel()
		srv.Close()
	})
	return srv
}

// runForever starts a session that cannot be solved and waits until it is mining.
func runForever(t *testing.T, m *miner.Miner) <-chan *miner.Result {
	t.Helper()
	done := make(chan *miner.Result, 1)
	go func() {
		r, _ := m.Start(context.Background(), "forever", hashengine.DigestBits)
		done <- r
	}()
	deadline := time.Now().Add(5 * time.Second)
	for !m.Stats().IsMining {
		require.True(t, time.Now().Before(deadline), "session did not start")
		runtime.Gosched()
	}
	return done
}

func post(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	res, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, data
}

func TestMineWithDefaultHeader(t *testing.T) {
	srv := newTestServer(t, newTestMiner())

	res, body := post(t, srv.URL+"/api/mine", `{"target_difficulty": 8}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("content-type"))

	var result miner.Result
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, miner.Found, result.Status)
	assert.Equal(t, testHeader, result.BlockHeader)
	assert.Equal(t, result.Nonce, result.Iterations)

	digest, err := hashengine.ParseDigest(result.Hash)
	require.NoError(t, err)
	assert.True(t, hashengine.MeetsDifficulty(digest, 8))
}

func TestMineWithCustomHeader(t *testing.T) {
	srv := newTestServer(t, newTestMiner())

	res, body := post(t, srv.URL+"/api/mine", `{"target_difficulty": 0, "block_header": "abc"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var result miner.Result
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, "abc", result.BlockHeader)
	assert.Equal(t, uint64(0), result.Nonce)
	assert.Equal(t, hashengine.DoubleHash([]byte("abc0")).Hex(), result.Hash)
}

func TestMineBadRequests(t *testing.T) {
	srv := newTestServer(t, newTestMiner())

	for name, body := range map[string]string{
		"malformed":  `{"target_difficulty": `,
		"negative":   `{"target_difficulty": -1}`,
		"missing":    `{"block_header": "abc"}`,
		"empty body": ``,
	} {
		t.Run(name, func(t *testing.T) {
			res, data := post(t, srv.URL+"/api/mine", body)
			assert.Equal(t, http.StatusBadRequest, res.StatusCode)
			assert.Contains(t, string(data), `"error"`)
		})
	}
}

func TestMineConflict(t *testing.T) {
	m := newTestMiner()
	srv := newTestServer(t, m)
	done := runForever(t, m)

	res, data := post(t, srv.URL+"/api/mine", `{"target_difficulty": 1}`)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Contains(t, string(data), miner.ErrSessionRunning.Error())

	m.Stop()
	assert.Equal(t, miner.Cancelled, (<-done).Status)
}

func TestStopAndStats(t *testing.T) {
	m := newTestMiner()
	srv := newTestServer(t, m)
	done := runForever(t, m)

	res, err := http.Get(srv.URL + "/api/stats")
	require.NoError(t, err)
	var stats miner.Stats
	require.NoError(t, json.NewDecoder(res.Body).Decode(&stats))
	res.Body.Close()
	assert.True(t, stats.IsMining)
	assert.Equal(t, uint32(hashengine.DigestBits), stats.CurrentDifficulty)

	res, body := post(t, srv.URL+"/api/stop", "")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"status":"stopped"}`, string(body))
	assert.Equal(t, miner.Cancelled, (<-done).Status)

	res, err = http.Get(srv.URL + "/api/stats")
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(res.Body).Decode(&stats))
	res.Body.Close()
	assert.False(t, stats.IsMining)
}

func TestStopWhileIdle(t *testing.T) {
	srv := newTestServer(t, newTestMiner())
	res, body := post(t, srv.URL+"/api/stop", "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"status":"stopped"}`, string(body))
}

func TestSystemSnapshot(t *testing.T) {
	srv := newTestServer(t, newTestMiner())
	res, err := http.Get(srv.URL + "/api/system")
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var snap map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&snap))
	assert.Contains(t, snap, "num_cpu")
	assert.Contains(t, snap, "cpu_percent")
}

func TestStatsSocket(t *testing.T) {
	m := newTestMiner()
	srv := newTestServer(t, m)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	// immediate snapshot while idle
	var stats miner.Stats
	require.NoError(t, wsjson.Read(ctx, conn, &stats))
	assert.False(t, stats.IsMining)

	done := runForever(t, m)
	for !stats.IsMining || stats.TotalHashes == 0 {
		require.NoError(t, wsjson.Read(ctx, conn, &stats))
	}
	assert.Equal(t, uint32(hashengine.DigestBits), stats.CurrentDifficulty)

	m.Stop()
	<-done
	for stats.IsMining {
		require.NoError(t, wsjson.Read(ctx, conn, &stats))
	}

	conn.Close(websocket.StatusNormalClosure, "")
}

func TestConnectService(t *testing.T) {
	m := newTestMiner()
	srv := newTestServer(t, m)
	client := NewMinerServiceClient(http.DefaultClient, srv.URL+"/api/rpc")
	ctx := context.Background()

	result, err := client.Start(ctx, &StartRequest{TargetDifficulty: 4})
	require.NoError(t, err)
	assert.Equal(t, miner.Found, result.Status)
	assert.Equal(t, testHeader, result.BlockHeader)

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.False(t, stats.IsMining)
	assert.Equal(t, result.Nonce+1, stats.TotalHashes)

	done := runForever(t, m)
	_, err = client.Start(ctx, &StartRequest{TargetDifficulty: 1, BlockHeader: "x"})
	assert.ErrorIs(t, err, miner.ErrSessionRunning)

	stopped, err := client.Stop(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stopped", stopped.Status)
	assert.Equal(t, miner.Cancelled, (<-done).Status)
}

func TestOriginPatterns(t *testing.T) {
	assert.Equal(t,
		[]string{"*", "example.com:8080", "dash.local"},
		OriginPatterns([]string{"*", "https://example.com:8080", " dash.local ", ""}))
}
