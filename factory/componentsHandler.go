package factory

import (
	"fmt"
	"time"

	"github.com/iulianpascalau/netgazer/api"
	"github.com/iulianpascalau/netgazer/backend"
	"github.com/iulianpascalau/netgazer/config"
	"github.com/iulianpascalau/netgazer/source"
)

// source kinds accepted in the config file
const (
	SourceKindPrometheus = "prometheus"
	SourceKindStream     = "stream"
)

type componentsHandler struct {
	endpoint backend.Endpoint
	backend  *backend.Backend
	server   Server
}

// NewComponentsHandler creates the endpoint, backend and web server wired together
func NewComponentsHandler(serviceKeyApi string, cfg config.Config) (*componentsHandler, error) {
	endpoint, err := createEndpoint(cfg.Source)
	if err != nil {
		return nil, err
	}

	monitorBackend, err := backend.NewBackend(backend.ArgsBackend{
		MaxHistory:          cfg.Aggregation.MaxHistory,
		RateWindowMicros:    cfg.Aggregation.RateWindowMicros,
		IdleTimeout:         time.Duration(cfg.Source.IdleTimeoutSeconds) * time.Second,
		ReconnectRetries:    cfg.Source.ReconnectRetries,
		ReconnectBackoff:    time.Duration(cfg.Source.ReconnectBackoffMillis) * time.Millisecond,
		ReconnectBackoffCap: time.Duration(cfg.Source.ReconnectBackoffCapMillis) * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}

	serverArgs := api.ArgsWebServer{
		ServiceKeyApi:  serviceKeyApi,
		ListenAddress:  cfg.Api.ListenAddress,
		Provider:       monitorBackend,
		GeneralHandler: api.CORSMiddleware,
	}

	server, err := api.NewServer(serverArgs)
	if err != nil {
		return nil, err
	}

	return &componentsHandler{
		endpoint: endpoint,
		backend:  monitorBackend,
		server:   server,
	}, nil
}

func createEndpoint(cfg config.SourceConfig) (backend.Endpoint, error) {
	switch cfg.Kind {
	case SourceKindPrometheus:
		return source.NewPrometheusEndpoint(cfg.Address, time.Duration(cfg.PollIntervalMillis)*time.Millisecond)
	case SourceKindStream:
		return source.NewStreamEndpoint(cfg.Address, time.Duration(cfg.IdleTimeoutSeconds)*time.Second)
	default:
		return nil, fmt.Errorf("unknown source kind '%s'", cfg.Kind)
	}
}

// GetBackend returns the backend component
func (ch *componentsHandler) GetBackend() *backend.Backend {
	return ch.backend
}

// GetServer returns the server component
func (ch *componentsHandler) GetServer() Server {
	return ch.server
}

// Start connects the backend to the feed and starts the web server
func (ch *componentsHandler) Start() error {
	err := ch.backend.Connect(ch.endpoint)
	if err != nil {
		return err
	}

	ch.server.Start()

	return nil
}

// Close closes the inner components
func (ch *componentsHandler) Close() {
	_ = ch.server.Close()
	_ = ch.backend.Close()
}
