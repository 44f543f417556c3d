package server

import (
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"citysim/engine/internal/config"
	"citysim/engine/internal/observability"
	"citysim/engine/internal/sim"
)

type testServer struct {
	srv       *Server
	http      *httptest.Server
	collector *observability.SimCollector
}

func startServer(t *testing.T, setup func(c *sim.City)) *testServer {
	t.Helper()
	collector, err := observability.NewSimCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}
	cfg := config.ServerConfig{Addr: "127.0.0.1:0", TickInterval: time.Hour}
	srv, err := New(cfg, func(view sim.ViewHook) (*sim.City, error) {
		c, err := sim.New(8, config.DefaultSimulation(),
			sim.WithName("Testburg"),
			sim.WithViewHook(view),
			sim.WithRand(rand.New(rand.NewSource(1))),
			sim.WithMetricsRecorder(collector),
		)
		if err == nil && setup != nil {
			setup(c)
		}
		return c, err
	}, WithCollector(collector))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go srv.Run(ctx)
	<-srv.hub.started
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		cancel()
		ts.Close()
	})
	return &testServer{srv: srv, http: ts, collector: collector}
}

func (ts *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/ws?name=tester"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	readUntil(t, conn, EventFullState, nil)
	return conn
}

func send(t *testing.T, conn *websocket.Conn, action string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := conn.WriteJSON(Envelope{Type: action, Payload: raw}); err != nil {
		t.Fatalf("write %s: %v", action, err)
	}
}

// readUntil skips events until one of type want arrives and decodes its
// payload into out.
func readUntil(t *testing.T, conn *websocket.Conn, want string, out any) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var env Envelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		if env.Type != want {
			continue
		}
		if out != nil {
			if err := json.Unmarshal(env.Payload, out); err != nil {
				t.Fatalf("decode %s: %v", want, err)
			}
		}
		return
	}
}

func TestNewRejectsZeroTickInterval(t *testing.T) {
	_, err := New(config.ServerConfig{}, func(sim.ViewHook) (*sim.City, error) {
		t.Fatal("city built despite bad config")
		return nil, nil
	})
	if err == nil {
		t.Fatal("expected an error for a zero tick interval")
	}
}

func TestHandlerWithoutRunTurnsClientsAway(t *testing.T) {
	srv, err := New(config.ServerConfig{TickInterval: time.Hour}, func(view sim.ViewHook) (*sim.City, error) {
		return sim.New(4, config.DefaultSimulation(), sim.WithViewHook(view), sim.WithRand(rand.New(rand.NewSource(1))))
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, msg, err := conn.ReadMessage(); err == nil {
		t.Fatalf("read %s from a server whose hub never started", msg)
	}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 300; i++ {
			srv.Step(context.Background())
		}
		_ = srv.Snapshot()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server lock still held after a refused client")
	}
}

func TestFullStateOnConnect(t *testing.T) {
	ts := startServer(t, func(c *sim.City) {
		c.PlaceBuilding(0, 0, sim.PowerPlant)
		c.PlaceBuilding(1, 0, sim.Road)
	})
	url := "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var snap sim.Snapshot
	readUntil(t, conn, EventFullState, &snap)
	if snap.Name != "Testburg" || snap.Size != 8 {
		t.Errorf("snapshot name=%q size=%d", snap.Name, snap.Size)
	}
	if len(snap.Buildings) != 2 || snap.Buildings[0].Type != sim.PowerPlant {
		t.Fatalf("snapshot buildings = %+v", snap.Buildings)
	}
}

func TestStepBroadcastsTick(t *testing.T) {
	ts := startServer(t, nil)
	a := ts.dial(t)
	b := ts.dial(t)

	ts.srv.Step(context.Background())

	for _, conn := range []*websocket.Conn{a, b} {
		var stats sim.Stats
		readUntil(t, conn, EventTick, &stats)
		if stats.SimTime != 1 {
			t.Errorf("tick simTime = %d, want 1", stats.SimTime)
		}
	}
	if got := testutil.ToFloat64(ts.collector.Ticks); got != 1 {
		t.Errorf("ticks counted = %v, want 1", got)
	}
}

func TestPlaceRoadBroadcastsToEveryClient(t *testing.T) {
	ts := startServer(t, nil)
	actor := ts.dial(t)
	watcher := ts.dial(t)

	send(t, actor, ActionPlaceBuilding, PlaceBuildingPayload{X: 1, Y: 1, Type: "road"})

	var placed sim.BuildingView
	readUntil(t, watcher, EventBuildingPlaced, &placed)
	if placed.Type != sim.Road || placed.X != 1 || placed.Y != 1 {
		t.Fatalf("placed = %+v", placed)
	}
	var road RoadChangedEvent
	readUntil(t, watcher, EventRoadChanged, &road)
	if road.Road == nil || road.X != 1 || road.Y != 1 {
		t.Fatalf("road_changed = %+v", road)
	}
	var batch struct {
		Updates []BuildingUpdate `json:"updates"`
	}
	readUntil(t, watcher, EventBuildingUpdate, &batch)
	if len(batch.Updates) != 5 {
		t.Fatalf("updates = %d, want the tile and its 4 neighbours", len(batch.Updates))
	}
	if first := batch.Updates[0]; first.X != 1 || first.Y != 1 || first.Building == nil {
		t.Errorf("first update = %+v, want the road tile", first)
	}

	send(t, actor, ActionBulldoze, BulldozePayload{X: 1, Y: 1})
	var gone BulldozePayload
	readUntil(t, watcher, EventBulldozed, &gone)
	if gone.X != 1 || gone.Y != 1 {
		t.Errorf("bulldozed = %+v", gone)
	}
	readUntil(t, watcher, EventRoadChanged, &road)
	if road.Road != nil {
		t.Errorf("road_changed after bulldoze carries %+v, want nil", road.Road)
	}

	if n := len(ts.srv.Snapshot().Buildings); n != 0 {
		t.Errorf("city still has %d buildings", n)
	}
	if got := testutil.ToFloat64(ts.collector.Actions.WithLabelValues(ActionPlaceBuilding, "applied")); got != 1 {
		t.Errorf("applied placements = %v, want 1", got)
	}
}

func TestRejectedActionsGoToSender(t *testing.T) {
	ts := startServer(t, func(c *sim.City) { c.PlaceBuilding(2, 2, sim.Commercial) })
	conn := ts.dial(t)

	cases := []struct {
		action  string
		payload any
		reason  string
	}{
		{ActionPlaceBuilding, PlaceBuildingPayload{X: 0, Y: 0, Type: "stadium"}, "unknown building type"},
		{ActionPlaceBuilding, PlaceBuildingPayload{X: 2, Y: 2, Type: "road"}, "cannot place"},
		{ActionPlaceBuilding, PlaceBuildingPayload{X: 99, Y: 0, Type: "road"}, "cannot place"},
		{ActionBulldoze, BulldozePayload{X: 5, Y: 5}, "nothing to bulldoze"},
		{"launch_rocket", struct{}{}, "unknown action"},
	}
	for _, tc := range cases {
		send(t, conn, tc.action, tc.payload)
		var ev RejectedEvent
		readUntil(t, conn, EventRejected, &ev)
		if ev.Action != tc.action || !strings.Contains(ev.Reason, tc.reason) {
			t.Errorf("%s: rejected = %+v, want reason containing %q", tc.action, ev, tc.reason)
		}
	}
	if got := testutil.ToFloat64(ts.collector.Actions.WithLabelValues(ActionPlaceBuilding, "rejected")); got != 2 {
		t.Errorf("rejected placements = %v, want 2", got)
	}
}

func TestStateAndMetricsEndpoints(t *testing.T) {
	ts := startServer(t, func(c *sim.City) { c.PlaceBuilding(3, 3, sim.Residential) })
	ts.dial(t)

	resp, err := http.Get(ts.http.URL + "/api/state")
	if err != nil {
		t.Fatalf("GET /api/state: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	var snap sim.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if len(snap.Buildings) != 1 || snap.Buildings[0].Type != sim.Residential {
		t.Fatalf("state buildings = %+v", snap.Buildings)
	}

	deadline := time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(ts.collector.Clients) != 1 {
		if time.Now().After(deadline) {
			t.Fatalf("clients gauge = %v, want 1", testutil.ToFloat64(ts.collector.Clients))
		}
		time.Sleep(10 * time.Millisecond)
	}

	mresp, err := http.Get(ts.http.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer mresp.Body.Close()
	body, err := io.ReadAll(mresp.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(body), "citysim_websocket_clients 1") {
		t.Errorf("metrics output missing client gauge:\n%s", body)
	}
}

func TestViewBufferCollapsesRepeatedRefreshes(t *testing.T) {
	buf := newViewBuffer()
	c, err := sim.New(4, config.DefaultSimulation(), sim.WithViewHook(buf))
	if err != nil {
		t.Fatalf("sim.New: %v", err)
	}
	if len(buf.dirty) != 16 {
		t.Fatalf("initial refreshes = %d, want 16", len(buf.dirty))
	}
	buf.reset()

	c.PlaceBuilding(0, 0, sim.Road)
	c.PlaceBuilding(1, 0, sim.Road)
	updates, animations, roads := buf.drain()
	// (0,0) (1,0) (0,1) then (2,0) (1,1) from the second placement.
	if len(updates) != 5 {
		t.Fatalf("updates = %d, want 5", len(updates))
	}
	if len(roads) != 2 || len(animations) != 0 {
		t.Fatalf("roads=%d animations=%d", len(roads), len(animations))
	}
	if updates[0].Building == nil || updates[0].Building.Connections != sim.ConnRight {
		t.Errorf("road at (0,0) should connect right after the second placement: %+v", updates[0].Building)
	}
	if u, _, _ := buf.drain(); len(u) != 0 {
		t.Errorf("drain left %d updates behind", len(u))
	}
}
