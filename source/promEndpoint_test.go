package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/iulianpascalau/netgazer/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testExposition = `# HELP net_rx_bytes_total Total received bytes.
# TYPE net_rx_bytes_total counter
net_rx_bytes_total 12345
# HELP net_rx_packets Received packets.
# TYPE net_rx_packets gauge
net_rx_packets{iface="eth0"} 10
net_rx_packets{iface="eth1"} 20
# HELP cpu_load Load average.
# TYPE cpu_load gauge
cpu_load 0.5
# HELP req_duration_seconds Request duration.
# TYPE req_duration_seconds histogram
req_duration_seconds_bucket{le="0.1"} 1
req_duration_seconds_sum 0.05
req_duration_seconds_count 1
`

func startExpositionServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(testExposition))
	}))
	t.Cleanup(server.Close)

	return server
}

func TestNewPrometheusEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("empty address should error", func(t *testing.T) {
		endpoint, err := NewPrometheusEndpoint("", time.Second)

		assert.Nil(t, endpoint)
		assert.True(t, endpoint.IsInterfaceNil())
		assert.Equal(t, ErrInvalidAddress, err)
	})
	t.Run("non-positive poll interval falls back to the default", func(t *testing.T) {
		endpoint, err := NewPrometheusEndpoint("http://localhost:9100/metrics", 0)

		require.Nil(t, err)
		assert.False(t, endpoint.IsInterfaceNil())
		assert.Equal(t, 250*time.Millisecond, endpoint.pollInterval)
	})
}

func TestPromEndpointConnect(t *testing.T) {
	t.Parallel()

	t.Run("should work", func(t *testing.T) {
		server := startExpositionServer(t)

		endpoint, _ := NewPrometheusEndpoint(server.URL, time.Millisecond)
		assert.Nil(t, endpoint.Connect(context.Background()))
	})
	t.Run("non-2xx status should error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(server.Close)

		endpoint, _ := NewPrometheusEndpoint(server.URL, time.Millisecond)

		err := endpoint.Connect(context.Background())
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "non-2xx")
	})
	t.Run("unreachable server should error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		address := server.URL
		server.Close()

		endpoint, _ := NewPrometheusEndpoint(address, time.Millisecond)
		assert.NotNil(t, endpoint.Connect(context.Background()))
	})
}

func TestPromEndpointReceive(t *testing.T) {
	t.Parallel()

	t.Run("parses a scrape into one batch", func(t *testing.T) {
		server := startExpositionServer(t)

		endpoint, _ := NewPrometheusEndpoint(server.URL, time.Millisecond)

		before := uint64(time.Now().UnixMicro())
		batch, err := endpoint.Receive(context.Background())
		require.Nil(t, err)

		assert.Equal(t, server.URL, batch.Source)
		assert.GreaterOrEqual(t, batch.TimestampMicro, before)

		// families come back sorted by name, histogram series are skipped
		require.Len(t, batch.Metrics, 4)

		assert.Equal(t, "cpu_load", batch.Metrics[0].Label())
		assert.Equal(t, core.NumberValue(0.5), batch.Metrics[0].Value())
		assert.Equal(t, core.NeutralUnit(), batch.Metrics[0].Unit())

		assert.Equal(t, "net_rx_bytes_total", batch.Metrics[1].Label())
		assert.Equal(t, core.IntegerValue(12345), batch.Metrics[1].Value())
		assert.Equal(t,
			core.NewMetricUnit(core.UnitBytes, core.UnitNone, core.MagnitudeOne),
			batch.Metrics[1].Unit())

		assert.Equal(t, `net_rx_packets{iface="eth0"}`, batch.Metrics[2].Label())
		assert.Equal(t, `net_rx_packets{iface="eth1"}`, batch.Metrics[3].Label())
		assert.Equal(t, core.IntegerValue(20), batch.Metrics[3].Value())
		assert.Equal(t,
			core.NewMetricUnit(core.UnitPackets, core.UnitNone, core.MagnitudeOne),
			batch.Metrics[2].Unit())
	})
	t.Run("cancelled context aborts the poll wait", func(t *testing.T) {
		server := startExpositionServer(t)

		endpoint, _ := NewPrometheusEndpoint(server.URL, time.Minute)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		batch, err := endpoint.Receive(ctx)
		assert.Nil(t, batch)
		assert.Equal(t, context.Canceled, err)
	})
}

func TestPromEndpointReconnect(t *testing.T) {
	t.Parallel()

	server := startExpositionServer(t)

	endpoint, _ := NewPrometheusEndpoint(server.URL, time.Millisecond)
	require.Nil(t, endpoint.Connect(context.Background()))
	assert.Nil(t, endpoint.Reconnect(context.Background()))
	assert.Nil(t, endpoint.Close())

	server.Close()
	assert.NotNil(t, endpoint.Reconnect(context.Background()))
}

func TestUnitFromExposition(t *testing.T) {
	t.Parallel()

	unit := unitFromExposition("net_tx_total", "Transmitted packets since boot.")
	assert.Equal(t, core.UnitPackets, unit.Numerator)

	unit = unitFromExposition("link_speed_bits", "")
	assert.Equal(t, core.UnitBits, unit.Numerator)

	unit = unitFromExposition("uptime_seconds", "")
	assert.Equal(t, core.UnitSeconds, unit.Numerator)

	unit = unitFromExposition("open_fds", "Number of open file descriptors.")
	assert.Equal(t, core.NeutralUnit(), unit)
}
