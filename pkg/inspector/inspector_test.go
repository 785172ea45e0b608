package inspector

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/valyala/fasthttp"

	"github.com/fluxorio/arquebus/pkg/bus"
	"github.com/fluxorio/arquebus/pkg/core"
)

func serve(t *testing.T, h fasthttp.RequestHandler, path string) *fasthttp.RequestCtx {
	t.Helper()
	var req fasthttp.Request
	req.SetRequestURI("http://localhost" + path)
	var rctx fasthttp.RequestCtx
	rctx.Init(&req, nil, nil)
	h(&rctx)
	return &rctx
}

func newSource() *bus.Bus[string, int] {
	b := bus.New[string, int](bus.WithLogger(core.NewNopLogger()))
	b.Subscribe("orders", func(context.Context, int) error { return nil })
	b.Subscribe("orders", func(context.Context, int) error { return nil })
	b.CreateListener("audit", nil)
	return b
}

func TestInspector_Targets(t *testing.T) {
	i := NewInspector(":0", newSource(), nil)
	rctx := serve(t, i.Handler(), "/targets")

	if rctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status = %d", rctx.Response.StatusCode())
	}
	var got []bus.TargetInfo
	if err := json.Unmarshal(rctx.Response.Body(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	want := []bus.TargetInfo{
		{Target: "audit", Listeners: 1},
		{Target: "orders", Callbacks: 2},
	}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("targets = %+v, want %+v", got, want)
	}
}

func TestInspector_Status(t *testing.T) {
	i := NewInspector(":0", newSource(), nil)
	rctx := serve(t, i.Handler(), "/status")

	var s Status
	if err := json.Unmarshal(rctx.Response.Body(), &s); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if s.Targets != 2 || s.Callbacks != 2 || s.Listeners != 1 {
		t.Errorf("status = %+v", s)
	}
}

func TestInspector_Metrics(t *testing.T) {
	i := NewInspector(":0", newSource(), nil)
	if code := serve(t, i.Handler(), "/metrics").Response.StatusCode(); code != fasthttp.StatusNotFound {
		t.Errorf("/metrics without handler = %d, want 404", code)
	}

	i.WithMetrics(func(ctx *fasthttp.RequestCtx) { ctx.SetBodyString("metrics") })
	if body := string(serve(t, i.Handler(), "/metrics").Response.Body()); body != "metrics" {
		t.Errorf("/metrics body = %q", body)
	}
	if code := serve(t, i.Handler(), "/nope").Response.StatusCode(); code != fasthttp.StatusNotFound {
		t.Errorf("unknown path = %d, want 404", code)
	}
}

func TestInspector_StartStop(t *testing.T) {
	i := NewInspector("127.0.0.1:0", newSource(), nil)
	if err := i.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	status, body, err := fasthttp.Get(nil, "http://"+i.Addr()+"/status")
	if err != nil {
		t.Fatalf("GET /status error = %v", err)
	}
	if status != fasthttp.StatusOK || len(body) == 0 {
		t.Errorf("GET /status = %d %q", status, body)
	}

	if err := i.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
