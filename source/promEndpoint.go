package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/iulianpascalau/netgazer/core"
	logger "github.com/multiversx/mx-chain-logger-go"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

var log = logger.GetOrCreate("source")

// promEndpoint polls a Prometheus text-format exposition endpoint and converts
// each scrape into one metric batch, pacing itself between requests
type promEndpoint struct {
	address      string
	pollInterval time.Duration
	client       *http.Client
}

// NewPrometheusEndpoint creates a polling endpoint for the given scrape URL
func NewPrometheusEndpoint(address string, pollInterval time.Duration) (*promEndpoint, error) {
	if len(address) == 0 {
		return nil, ErrInvalidAddress
	}
	if pollInterval <= 0 {
		pollInterval = 250 * time.Millisecond
	}

	return &promEndpoint{
		address:      address,
		pollInterval: pollInterval,
		client:       &http.Client{},
	}, nil
}

// Connect probes the scrape URL once so a bad address fails before the
// ingestion loop starts
func (endpoint *promEndpoint) Connect(ctx context.Context) error {
	_, err := endpoint.scrape(ctx)

	return err
}

// Receive waits one poll interval, scrapes the endpoint and returns the parsed batch
func (endpoint *promEndpoint) Receive(ctx context.Context) (*core.MetricBatch, error) {
	timer := time.NewTimer(endpoint.pollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	body, err := endpoint.scrape(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := uint64(time.Now().UnixMicro())
	metrics := parseExposition(body)

	return core.NewMetricBatch(endpoint.address, timestamp, metrics), nil
}

func (endpoint *promEndpoint) scrape(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.address, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAddress, err.Error())
	}

	resp, err := endpoint.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errStatusNotOK(resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// Reconnect drops any kept-alive connections; the next scrape redials
func (endpoint *promEndpoint) Reconnect(ctx context.Context) error {
	endpoint.client.CloseIdleConnections()

	_, err := endpoint.scrape(ctx)

	return err
}

// Close releases the HTTP client's pooled connections
func (endpoint *promEndpoint) Close() error {
	endpoint.client.CloseIdleConnections()

	return nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (endpoint *promEndpoint) IsInterfaceNil() bool {
	return endpoint == nil
}

// parseExposition converts the text exposition format into metrics. Families
// the parser rejects fail the whole scrape at the caller; individual series
// of unsupported kinds (histograms, summaries) are skipped.
func parseExposition(body []byte) []core.Metric {
	var parser expfmt.TextParser

	families, err := parser.TextToMetricFamilies(bytes.NewReader(body))
	if err != nil {
		log.Warn("partial exposition parse", "error", err)
	}

	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}
	sort.Strings(names)

	metrics := make([]core.Metric, 0, len(families))
	for _, name := range names {
		family := families[name]
		unit := unitFromExposition(family.GetName(), family.GetHelp())

		for _, m := range family.GetMetric() {
			value, ok := sampleValue(family.GetType(), m)
			if !ok {
				continue
			}

			metrics = append(metrics, core.NewMetric(seriesLabel(family.GetName(), m), unit, value))
		}
	}

	return metrics
}

// unitFromExposition infers the counted quantity from the metric name and its
// HELP text; exporters rarely tag units any other way
func unitFromExposition(name string, help string) core.MetricUnit {
	text := strings.ToLower(name + " " + help)

	switch {
	case strings.Contains(text, "packets"):
		return core.NewMetricUnit(core.UnitPackets, core.UnitNone, core.MagnitudeOne)
	case strings.Contains(text, "bytes"):
		return core.NewMetricUnit(core.UnitBytes, core.UnitNone, core.MagnitudeOne)
	case strings.Contains(text, "bits"):
		return core.NewMetricUnit(core.UnitBits, core.UnitNone, core.MagnitudeOne)
	case strings.Contains(text, "seconds"):
		return core.NewMetricUnit(core.UnitSeconds, core.UnitNone, core.MagnitudeOne)
	default:
		return core.NeutralUnit()
	}
}

// seriesLabel keeps series of the same family unique by appending their label pairs
func seriesLabel(name string, m *dto.Metric) string {
	pairs := m.GetLabel()
	if len(pairs) == 0 {
		return name
	}

	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('{')
	for i, pair := range pairs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(pair.GetName())
		sb.WriteString(`="`)
		sb.WriteString(pair.GetValue())
		sb.WriteByte('"')
	}
	sb.WriteByte('}')

	return sb.String()
}

func sampleValue(kind dto.MetricType, m *dto.Metric) (core.MetricValue, bool) {
	var value float64

	switch kind {
	case dto.MetricType_COUNTER:
		value = m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		value = m.GetGauge().GetValue()
	case dto.MetricType_UNTYPED:
		value = m.GetUntyped().GetValue()
	default:
		return core.EmptyValue(), false
	}

	if value == math.Trunc(value) && math.Abs(value) < float64(math.MaxInt64) {
		return core.IntegerValue(int64(value)), true
	}

	return core.NumberValue(value), true
}
