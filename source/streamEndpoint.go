package source

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/iulianpascalau/netgazer/core"
	"github.com/tidwall/gjson"
)

const maxFrameSize = 1024 * 1024

// streamEndpoint subscribes to a TCP feed of newline-delimited JSON frames,
// each frame one whole batch: {"timestamp": <µs>, "values": [{label, unit,
// value:{type,value}}, ...]}. Malformed entries inside a frame are dropped
// individually; an unparsable frame is a receive error.
type streamEndpoint struct {
	address     string
	dialTimeout time.Duration

	mutConn sync.Mutex
	conn    net.Conn
	reader  *bufio.Reader
}

// NewStreamEndpoint creates a TCP subscription endpoint
func NewStreamEndpoint(address string, dialTimeout time.Duration) (*streamEndpoint, error) {
	if len(address) == 0 {
		return nil, ErrInvalidAddress
	}
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	return &streamEndpoint{
		address:     address,
		dialTimeout: dialTimeout,
	}, nil
}

// Connect dials the feed
func (endpoint *streamEndpoint) Connect(ctx context.Context) error {
	dialer := net.Dialer{Timeout: endpoint.dialTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", endpoint.address)
	if err != nil {
		return err
	}

	endpoint.mutConn.Lock()
	endpoint.conn = conn
	endpoint.reader = bufio.NewReaderSize(conn, maxFrameSize)
	endpoint.mutConn.Unlock()

	return nil
}

// Receive blocks until one whole frame arrives or the context is cancelled
func (endpoint *streamEndpoint) Receive(ctx context.Context) (*core.MetricBatch, error) {
	endpoint.mutConn.Lock()
	conn := endpoint.conn
	reader := endpoint.reader
	endpoint.mutConn.Unlock()

	if conn == nil {
		return nil, ErrNotConnected
	}

	// cancellation unblocks the read by expiring its deadline
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	line, err := reader.ReadBytes('\n')
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		return nil, err
	}
	_ = conn.SetReadDeadline(time.Time{})

	return parseFrame(endpoint.address, line)
}

// Reconnect drops the current connection and redials
func (endpoint *streamEndpoint) Reconnect(ctx context.Context) error {
	endpoint.mutConn.Lock()
	if endpoint.conn != nil {
		_ = endpoint.conn.Close()
		endpoint.conn = nil
		endpoint.reader = nil
	}
	endpoint.mutConn.Unlock()

	return endpoint.Connect(ctx)
}

// Close shuts the connection down
func (endpoint *streamEndpoint) Close() error {
	endpoint.mutConn.Lock()
	defer endpoint.mutConn.Unlock()

	if endpoint.conn == nil {
		return nil
	}

	err := endpoint.conn.Close()
	endpoint.conn = nil
	endpoint.reader = nil

	return err
}

// IsInterfaceNil returns true if the value under the interface is nil
func (endpoint *streamEndpoint) IsInterfaceNil() bool {
	return endpoint == nil
}

func parseFrame(source string, frame []byte) (*core.MetricBatch, error) {
	if !gjson.ValidBytes(frame) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidFrame)
	}

	root := gjson.ParseBytes(frame)

	values := root.Get("values")
	if !values.IsArray() {
		return nil, fmt.Errorf("%w: missing values array", ErrInvalidFrame)
	}

	metrics := make([]core.Metric, 0, len(values.Array()))
	values.ForEach(func(_ gjson.Result, entry gjson.Result) bool {
		metric, err := core.ParseMetric(entry)
		if err != nil {
			log.Debug("dropping malformed metric entry", "error", err)
			return true
		}

		metrics = append(metrics, metric)
		return true
	})

	return core.NewMetricBatch(source, root.Get("timestamp").Uint(), metrics), nil
}
