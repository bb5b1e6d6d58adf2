package e2e_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/iulianpascalau/netgazer/config"
	"github.com/iulianpascalau/netgazer/factory"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/stretchr/testify/require"
)

var log = logger.GetOrCreate("e2e-test")

func TestE2EFlow(t *testing.T) {
	log.Info("======== 1. Start a mock exporter that the monitor will scrape")
	var numScrapes int64
	mockExporter := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scrape := atomic.AddInt64(&numScrapes, 1)
		exposition := fmt.Sprintf(`# HELP net_rx_bytes_total Total received bytes.
# TYPE net_rx_bytes_total counter
net_rx_bytes_total %d
`, scrape*100000)
		_, _ = w.Write([]byte(exposition))
	}))
	defer mockExporter.Close()

	log.Info("======== 2. Start the monitor via componentsHandler")
	cfg := config.Config{
		Name: "e2e-monitor",
		Source: config.SourceConfig{
			Kind:               factory.SourceKindPrometheus,
			Address:            mockExporter.URL,
			PollIntervalMillis: 100,
			IdleTimeoutSeconds: 5,
		},
		Aggregation: config.AggregationConfig{
			MaxHistory:       128,
			RateWindowMicros: 250000,
		},
		Api: config.ApiConfig{
			ListenAddress: "127.0.0.1:0",
		},
	}

	handler, err := factory.NewComponentsHandler("test-service-key", cfg)
	require.NoError(t, err)

	require.NoError(t, handler.Start())
	defer handler.Close()

	_, port, err := net.SplitHostPort(handler.GetServer().Address())
	require.NoError(t, err)
	apiURL := fmt.Sprintf("http://127.0.0.1:%s", port)

	log.Info("======== 3. Wait until the counter and its derived rate show up")
	require.Eventually(t, func() bool {
		_, found := handler.GetBackend().GetMetric("net_rx_bytes_total-ps")
		return found
	}, 5*time.Second, 100*time.Millisecond)

	log.Info("======== 4. Read the metric back through the HTTP API")
	body := getJSON(t, apiURL+"/api/metrics/net_rx_bytes_total-ps")

	var metricResp struct {
		Label       string `json:"label"`
		Unit        string `json:"unit"`
		DerivedFrom string `json:"derivedFrom"`
	}
	require.NoError(t, json.Unmarshal(body, &metricResp))
	require.Equal(t, "net_rx_bytes_total-ps", metricResp.Label)
	require.Equal(t, "kbytes/sec", metricResp.Unit)
	require.Equal(t, "net_rx_bytes_total", metricResp.DerivedFrom)

	log.Info("======== 5. Read the counter's history window")
	body = getJSON(t, apiURL+"/api/metrics/net_rx_bytes_total/history?maxLen=16")

	var historyResp struct {
		Min    float64 `json:"min"`
		Max    float64 `json:"max"`
		Points []struct {
			T     float64 `json:"t"`
			Value float64 `json:"value"`
		} `json:"points"`
	}
	require.NoError(t, json.Unmarshal(body, &historyResp))
	require.NotEmpty(t, historyResp.Points)
	require.LessOrEqual(t, len(historyResp.Points), 16)
	require.GreaterOrEqual(t, historyResp.Max, historyResp.Min)

	// points come back oldest to newest
	for i := 1; i < len(historyResp.Points); i++ {
		require.GreaterOrEqual(t, historyResp.Points[i].T, historyResp.Points[i-1].T)
	}

	log.Info("======== 6. Status reflects the ingestion")
	body = getJSON(t, apiURL+"/api/status")

	var statusResp struct {
		LastTimestamp uint64 `json:"lastTimestamp"`
		NumMetrics    int    `json:"numMetrics"`
	}
	require.NoError(t, json.Unmarshal(body, &statusResp))
	require.NotZero(t, statusResp.LastTimestamp)
	require.GreaterOrEqual(t, statusResp.NumMetrics, 2)
}

func getJSON(t *testing.T, url string) []byte {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Header.Set("X-Api-Key", "test-service-key")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return body
}
