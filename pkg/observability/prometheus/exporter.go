package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Handler returns an HTTP handler exposing DefaultRegistry
func Handler() http.Handler {
	return HandlerFor(DefaultRegistry)
}

// HandlerFor returns an HTTP handler exposing a custom registry
func HandlerFor(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// FastHTTPHandler adapts HandlerFor(gatherer) to fasthttp.
// A nil gatherer means DefaultRegistry.
func FastHTTPHandler(gatherer prometheus.Gatherer) fasthttp.RequestHandler {
	if gatherer == nil {
		gatherer = DefaultRegistry
	}
	return fasthttpadaptor.NewFastHTTPHandler(HandlerFor(gatherer))
}
