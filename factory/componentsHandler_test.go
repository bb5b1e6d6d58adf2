package factory

import (
	"fmt"
	"testing"

	"github.com/iulianpascalau/netgazer/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() config.Config {
	return config.Config{
		Name: "netgazer-test",
		Source: config.SourceConfig{
			Kind:               SourceKindStream,
			Address:            "127.0.0.1:5555",
			IdleTimeoutSeconds: 1,
		},
		Aggregation: config.AggregationConfig{
			MaxHistory:       64,
			RateWindowMicros: 250000,
		},
		Api: config.ApiConfig{
			ListenAddress: "127.0.0.1:0",
		},
	}
}

func TestNewComponentsHandler(t *testing.T) {
	t.Parallel()

	t.Run("unknown source kind should error", func(t *testing.T) {
		cfg := testConfig()
		cfg.Source.Kind = "carrier-pigeon"

		handler, err := NewComponentsHandler("service-key", cfg)

		assert.Nil(t, handler)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown source kind")
	})
	t.Run("invalid aggregation settings should error", func(t *testing.T) {
		cfg := testConfig()
		cfg.Aggregation.MaxHistory = -1

		handler, err := NewComponentsHandler("service-key", cfg)

		assert.Nil(t, handler)
		assert.Error(t, err)
	})
	t.Run("empty source address should error", func(t *testing.T) {
		cfg := testConfig()
		cfg.Source.Address = ""

		handler, err := NewComponentsHandler("service-key", cfg)

		assert.Nil(t, handler)
		assert.Error(t, err)
	})
	t.Run("should work with a stream source", func(t *testing.T) {
		handler, err := NewComponentsHandler("service-key", testConfig())

		require.Nil(t, err)
		assert.NotNil(t, handler)

		handler.Close()
	})
	t.Run("should work with a prometheus source", func(t *testing.T) {
		cfg := testConfig()
		cfg.Source.Kind = SourceKindPrometheus
		cfg.Source.Address = "http://127.0.0.1:9100/metrics"
		cfg.Source.PollIntervalMillis = 250

		handler, err := NewComponentsHandler("service-key", cfg)

		require.Nil(t, err)
		assert.NotNil(t, handler)

		handler.Close()
	})
}

func TestComponentsHandlerMethods(t *testing.T) {
	t.Parallel()

	handler, err := NewComponentsHandler("service-key", testConfig())
	require.Nil(t, err)

	monitorBackend := handler.GetBackend()
	assert.Equal(t, "*backend.Backend", fmt.Sprintf("%T", monitorBackend))

	serv := handler.GetServer()
	assert.Equal(t, "*api.server", fmt.Sprintf("%T", serv))

	handler.Close()
}
