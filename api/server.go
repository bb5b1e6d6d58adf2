package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iulianpascalau/netgazer/core"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("api")

const defaultHistoryLen = 256

// ArgsWebServer defines the web server arguments
type ArgsWebServer struct {
	ServiceKeyApi  string
	ListenAddress  string
	Provider       MetricsProvider
	GeneralHandler func(http.Handler) http.Handler
}

type server struct {
	router         *gin.Engine
	httpServer     *http.Server
	provider       MetricsProvider
	serviceKey     string
	listenAddr     string
	generalHandler func(http.Handler) http.Handler
	wg             sync.WaitGroup
}

// NewServer initializes the Gin engine and mounts all routes
func NewServer(args ArgsWebServer) (*server, error) {
	if check.IfNil(args.Provider) {
		return nil, errors.New("nil metrics provider")
	}
	if args.GeneralHandler == nil {
		return nil, errors.New("nil http handler")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &server{
		router:         router,
		provider:       args.Provider,
		serviceKey:     args.ServiceKeyApi,
		listenAddr:     args.ListenAddress,
		generalHandler: args.GeneralHandler,
	}

	s.setupRoutes()

	return s, nil
}

func (s *server) setupRoutes() {
	api := s.router.Group("/api")
	api.Use(s.authAPIKey())
	{
		api.GET("/metrics", s.handleGetMetrics)
		api.GET("/metrics/:name", s.handleGetMetric)
		api.GET("/metrics/:name/history", s.handleGetMetricHistory)
		api.GET("/status", s.handleGetStatus)
	}
}

// Start listens and serves connections
func (s *server) Start() {
	handler := s.generalHandler(s.router)

	s.httpServer = &http.Server{
		Addr:    s.listenAddr,
		Handler: handler,
	}

	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		log.Error("failed to listen", "error", err)
		return
	}
	s.listenAddr = ln.Addr().String()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Info("starting HTTP server", "address", s.listenAddr)

		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
		}
	}()
}

// Address returns the actual listen address
func (s *server) Address() string {
	return s.listenAddr
}

// Close gracefully stops the server
func (s *server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	s.wg.Wait()

	return nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (s *server) IsInterfaceNil() bool {
	return s == nil
}

// --- Middlewares ---

func (s *server) authAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-Api-Key")
		if key != s.serviceKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// --- Handlers ---

func metricToJSON(m core.Metric) gin.H {
	return gin.H{
		"label": m.Label(),
		"unit":  m.Unit().String(),
		"value": valueToJSON(m.Value()),
	}
}

// valueToJSON renders the tagged representation used on the wire: {type, value}
func valueToJSON(v core.MetricValue) gin.H {
	switch v.Kind() {
	case core.ValueInteger:
		return gin.H{"type": "integer", "value": v.Integer()}
	case core.ValueNumber:
		return gin.H{"type": "number", "value": v.Number()}
	case core.ValueString:
		return gin.H{"type": "string", "value": v.Text()}
	default:
		return gin.H{"type": "empty"}
	}
}

func (s *server) handleGetMetrics(c *gin.Context) {
	snapshot := s.provider.Snapshot()

	out := make([]gin.H, 0, len(snapshot))
	for _, m := range snapshot {
		out = append(out, metricToJSON(m))
	}

	c.JSON(http.StatusOK, gin.H{"metrics": out})
}

func (s *server) handleGetMetric(c *gin.Context) {
	name := c.Param("name")

	metric, found := s.provider.GetMetric(name)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "metric not found"})
		return
	}

	resp := metricToJSON(metric)

	parent, _ := s.provider.ParentLabel(name)
	if len(parent) > 0 {
		resp["derivedFrom"] = parent
	}

	c.JSON(http.StatusOK, resp)
}

func (s *server) handleGetMetricHistory(c *gin.Context) {
	name := c.Param("name")

	maxLen := defaultHistoryLen
	if raw := c.Query("maxLen"); len(raw) > 0 {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid maxLen"})
			return
		}
		maxLen = parsed
	}

	points, minValue, maxValue, found := s.provider.GetHistory(name, maxLen)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no history for metric"})
		return
	}

	outPoints := make([]gin.H, 0, len(points))
	for _, p := range points {
		outPoints = append(outPoints, gin.H{"t": p.TimestampSeconds, "value": p.Value})
	}

	c.JSON(http.StatusOK, gin.H{
		"label":  name,
		"min":    minValue,
		"max":    maxValue,
		"points": outPoints,
	})
}

func (s *server) handleGetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"lastTimestamp": s.provider.LastTimestamp(),
		"numMetrics":    len(s.provider.Snapshot()),
	})
}
