package cmd

import (
	"log/slog"
	"os"
	"testing"

	"github.com/dukex/careflow/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePersistenceProvider(t *testing.T) {
	tests := []struct {
		url      string
		provider string
		location string
	}{
		{url: "file:///var/lib/careflow", provider: "file", location: "/var/lib/careflow"},
		{url: "file://./data", provider: "file", location: "./data"},
		{url: "postgres://u:p@db:5432/careflow", provider: "postgres", location: "u:p@db:5432/careflow"},
		{url: "/tmp/data", provider: "", location: "/tmp/data"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			provider, location := parsePersistenceProvider(tt.url)

			assert.Equal(t, tt.provider, provider)
			assert.Equal(t, tt.location, location)
		})
	}
}

func TestNewPersistence(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	p, err := NewPersistence(t.Context(), logger, "file://"+t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &file.Persistence{}, p)

	_, err = NewPersistence(t.Context(), logger, "mongodb://localhost")
	require.ErrorIs(t, err, ErrUnsupportedPersistence)

	_, err = NewPersistence(t.Context(), logger, "relative/path")
	require.ErrorIs(t, err, ErrUnsupportedPersistence)
}

func TestNewEventBus(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	bus, err := NewEventBus("gochannel", nil, "careflow-test", logger)
	require.NoError(t, err)
	require.NoError(t, bus.Close())

	_, err = NewEventBus("kafka", nil, "careflow-test", logger)
	require.Error(t, err)

	_, err = NewEventBus("rabbitmq", nil, "careflow-test", logger)
	require.ErrorIs(t, err, ErrUnsupportedEventBus)
}

func TestNewRedisClient(t *testing.T) {
	client, err := NewRedisClient("redis://localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, 2, client.Options().DB)
	require.NoError(t, client.Close())

	_, err = NewRedisClient("http://localhost")
	require.Error(t, err)
}

func TestNewTracer_Disabled(t *testing.T) {
	tracer, shutdown, err := NewTracer(t.Context(), false, "careflow-test")

	require.NoError(t, err)
	assert.NotNil(t, tracer)
	require.NoError(t, shutdown(t.Context()))
}
