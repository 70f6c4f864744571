package main

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	return e
}

func TestServeStopsWithContext(t *testing.T) {
	log, _ := test.NewNullLogger()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- serve(ctx, log, map[string]*echo.Echo{"127.0.0.1:0": newEcho()})
	}()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServeReturnsListenError(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	log, _ := test.NewNullLogger()
	other := newEcho()
	done := make(chan error, 1)
	go func() {
		done <- serve(context.Background(), log, map[string]*echo.Echo{
			busy.Addr().String(): newEcho(),
			"127.0.0.1:0":        other,
		})
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), busy.Addr().String())
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after a listen error")
	}
}
