// Package inspector serves a read-only JSON view of a bus registry.
package inspector

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/fluxorio/arquebus/pkg/bus"
	"github.com/fluxorio/arquebus/pkg/core"
	"github.com/fluxorio/arquebus/pkg/observability/otel"
)

// Source supplies registry snapshots. *bus.Bus satisfies it for any K and M.
type Source interface {
	Snapshot() []bus.TargetInfo
}

// Status summarises the registry
type Status struct {
	Targets       int     `json:"targets"`
	Callbacks     int     `json:"callbacks"`
	Listeners     int     `json:"listeners"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Inspector exposes /targets and /status, plus /metrics when a metrics handler is set.
type Inspector struct {
	addr    string
	source  Source
	metrics fasthttp.RequestHandler
	logger  core.Logger
	started time.Time
	server  *fasthttp.Server
	ln      net.Listener
}

// NewInspector creates a new Inspector
func NewInspector(addr string, source Source, logger core.Logger) *Inspector {
	if logger == nil {
		logger = core.NewNopLogger()
	}
	return &Inspector{
		addr:    addr,
		source:  source,
		logger:  logger,
		started: time.Now(),
	}
}

// WithMetrics also serves h on /metrics
func (i *Inspector) WithMetrics(h fasthttp.RequestHandler) *Inspector {
	i.metrics = h
	return i
}

// Handler returns the traced request router
func (i *Inspector) Handler() fasthttp.RequestHandler {
	return otel.FastHTTPMiddleware(i.route)
}

func (i *Inspector) route(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/targets":
		i.writeJSON(ctx, i.source.Snapshot())
	case "/status":
		i.writeJSON(ctx, i.status())
	case "/metrics":
		if i.metrics != nil {
			i.metrics(ctx)
			return
		}
		ctx.Error("metrics disabled", fasthttp.StatusNotFound)
	default:
		ctx.Error("not found", fasthttp.StatusNotFound)
	}
}

func (i *Inspector) status() Status {
	s := Status{UptimeSeconds: time.Since(i.started).Seconds()}
	for _, info := range i.source.Snapshot() {
		s.Targets++
		s.Callbacks += info.Callbacks
		s.Listeners += info.Listeners
	}
	return s
}

func (i *Inspector) writeJSON(ctx *fasthttp.RequestCtx, v interface{}) {
	ctx.SetContentType("application/json")
	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		i.logger.Error("inspector encode failed: ", err)
		ctx.Error(err.Error(), fasthttp.StatusInternalServerError)
	}
}

// Start listens on the configured address and serves in the background
func (i *Inspector) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", i.addr)
	if err != nil {
		return err
	}
	i.ln = ln
	i.server = &fasthttp.Server{
		Handler:      i.Handler(),
		Name:         "arquebus-inspector",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		if err := i.server.Serve(ln); err != nil {
			i.logger.Error("inspector stopped: ", err)
		}
	}()
	i.logger.WithFields(map[string]interface{}{"addr": ln.Addr().String()}).Info("inspector listening")
	return nil
}

// Addr returns the bound address once started
func (i *Inspector) Addr() string {
	if i.ln == nil {
		return i.addr
	}
	return i.ln.Addr().String()
}

// Stop gracefully shuts down the inspector's HTTP server.
func (i *Inspector) Stop(ctx context.Context) error {
	if i.server != nil {
		return i.server.ShutdownWithContext(ctx)
	}
	return nil
}
