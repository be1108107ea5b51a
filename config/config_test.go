package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "messenger.hotmail.com:1863", cfg.DispatchHost)
	assert.Equal(t, "msmsgs@msnmsgr.com", cfg.ClientID)
	assert.Equal(t, "Q1P7W2E4J9R8U3S5", cfg.ProductKey)
	assert.Equal(t, "https://login.live.com/RST.srf", cfg.PassportEndpoint)
	assert.Empty(t, cfg.ProxyAddr)
	assert.Equal(t, 60*time.Second, cfg.ReplyTimeout)
	assert.Equal(t, 120*time.Second, cfg.LoginTimeout)
	assert.Equal(t, 50*time.Second, cfg.PingInterval)
	assert.Equal(t, 2*time.Minute, cfg.InviteTTL)
	assert.Equal(t, 64, cfg.BacklogPerSub)
	assert.Equal(t, 5.0, cfg.SendRatePerSecond)
	assert.Equal(t, 10, cfg.SendBurst)
	assert.Equal(t, 30*time.Second, cfg.JoinTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
}
