package main

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/frostdev-ops/fileflows-bridge/internal/config"
)

func TestNewHTTPServer(t *testing.T) {
	cfg := &config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: 3001}}
	handler := http.NotFoundHandler()

	srv := newHTTPServer(cfg, handler)
	assert.Equal(t, "127.0.0.1:3001", srv.Addr)
	assert.NotNil(t, srv.Handler)
	assert.Greater(t, srv.WriteTimeout, 90*time.Second)
}
