package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pimine.team/miner/miner"
)

func TestFormatHashRate(t *testing.T) {
	for rate, expect := range map[float64]string{
		0:         "0.00 H/s",
		999.994:   "999.99 H/s",
		1000:      "1.00 KH/s",
		45_678:    "45.68 KH/s",
		1_000_000: "1.00 MH/s",
		2_345_678: "2.35 MH/s",
	} {
		assert.Equal(t, expect, formatHashRate(rate), "rate %f", rate)
	}
}

func TestFormatCount(t *testing.T) {
	for n, expect := range map[uint64]string{
		0:                    "0",
		999:                  "999",
		1000:                 "1,000",
		123456:               "123,456",
		1234567:              "1,234,567",
		18446744073709551615: "18,446,744,073,709,551,615",
	} {
		assert.Equal(t, expect, formatCount(n))
	}
}

func TestFormatStats(t *testing.T) {
	line := formatStats(miner.Stats{HashRate: 2500, TotalHashes: 120000, CurrentDifficulty: 20, IsMining: true})
	assert.Contains(t, line, "Mining")
	assert.Contains(t, line, "2.50 KH/s")
	assert.Contains(t, line, "120,000")
	assert.Contains(t, line, "20")

	assert.Contains(t, formatStats(miner.Stats{}), "Idle")
}

func TestFormatResult(t *testing.T) {
	found := formatResult(&miner.Result{Status: miner.Found, Nonce: 1234, Hash: "0000ab", Iterations: 1234, ElapsedMs: 1500})
	assert.Contains(t, found, "found")
	assert.Contains(t, found, "1,234 iterations")
	assert.Contains(t, found, "1.5s")
	assert.Contains(t, found, "0000ab")

	cancelled := formatResult(&miner.Result{Status: miner.Cancelled, Nonce: 77, Hash: "ffff", Iterations: 77})
	assert.Contains(t, cancelled, "cancelled")
	assert.NotContains(t, cancelled, "ffff")
}

func TestSocketUrl(t *testing.T) {
	defer func(u string) { minerUrl = u }(minerUrl)

	minerUrl = "http://pi.local:3000"
	assert.Equal(t, "ws://pi.local:3000/ws", socketUrl())
	minerUrl = "https://pi.local"
	assert.Equal(t, "wss://pi.local/ws", socketUrl())
}
