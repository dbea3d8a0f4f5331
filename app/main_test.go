package main

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"example.com/cartstore/app/internal/config"
	"example.com/cartstore/app/internal/infra/persistence"
)

func TestRun_StorageErrorIsReturned(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cfg := &config.Config{Port: "0", Driver: "floppy"}

	err := run(context.Background(), cfg, logger)
	require.ErrorIs(t, err, persistence.ErrUnknownDriver)
}

func TestRun_StopsOnCancel(t *testing.T) {
	logger, hook := test.NewNullLogger()
	cfg := &config.Config{Port: "0", Driver: persistence.DriverMemory}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, logger) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
	var messages []string
	for _, entry := range hook.AllEntries() {
		messages = append(messages, entry.Message)
	}
	require.Contains(t, messages, "received shutdown signal, initiating graceful shutdown")
}
