package testsCommon

import (
	"context"

	"github.com/iulianpascalau/netgazer/core"
)

// EndpointStub -
type EndpointStub struct {
	ConnectHandler   func(ctx context.Context) error
	ReceiveHandler   func(ctx context.Context) (*core.MetricBatch, error)
	ReconnectHandler func(ctx context.Context) error
	CloseHandler     func() error
}

// Connect -
func (stub *EndpointStub) Connect(ctx context.Context) error {
	if stub.ConnectHandler != nil {
		return stub.ConnectHandler(ctx)
	}

	return nil
}

// Receive -
func (stub *EndpointStub) Receive(ctx context.Context) (*core.MetricBatch, error) {
	if stub.ReceiveHandler != nil {
		return stub.ReceiveHandler(ctx)
	}

	<-ctx.Done()

	return nil, ctx.Err()
}

// Reconnect -
func (stub *EndpointStub) Reconnect(ctx context.Context) error {
	if stub.ReconnectHandler != nil {
		return stub.ReconnectHandler(ctx)
	}

	return nil
}

// Close -
func (stub *EndpointStub) Close() error {
	if stub.CloseHandler != nil {
		return stub.CloseHandler()
	}

	return nil
}

// IsInterfaceNil -
func (stub *EndpointStub) IsInterfaceNil() bool {
	return stub == nil
}
