package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigAddr(t *testing.T) {
	cfg := &Config{Host: "localhost", Port: "6379"}
	assert.Equal(t, "localhost:6379", cfg.Addr())

	cfg = &Config{Host: "::1", Port: "6380"}
	assert.Equal(t, "[::1]:6380", cfg.Addr())
}

func TestNewRedisCache_UnreachableHost(t *testing.T) {
	// Port 1 on loopback is never a redis server.
	_, err := NewRedisCache(&Config{Host: "127.0.0.1", Port: "1"})
	assert.Error(t, err)
}

func TestConfigOptions(t *testing.T) {
	opts, err := (&Config{URL: "redis://:secret@cache:6390/2", Host: "ignored", Port: "1"}).options()
	assert.NoError(t, err)
	assert.Equal(t, "cache:6390", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	opts, err = (&Config{Host: "localhost", Port: "6379", DB: 1}).options()
	assert.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, 1, opts.DB)

	_, err = (&Config{URL: "http://nope"}).options()
	assert.Error(t, err)
}
