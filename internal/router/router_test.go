package router

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tiv91/intimshopbot/internal/chat"
	"github.com/tiv91/intimshopbot/internal/handler"
	"github.com/tiv91/intimshopbot/pkg/logger"
	"github.com/tiv91/intimshopbot/pkg/metrics"
)

type call struct {
	Action string
	Args   []interface{}
}

type recordingHandler struct {
	mu      sync.Mutex
	calls   []call
	err     error
	delay   time.Duration
	active  map[int64]*int32
	overlap atomic.Bool
}

func (h *recordingHandler) record(ev chat.Event, action string, args ...interface{}) error {
	h.mu.Lock()
	if h.active == nil {
		h.active = make(map[int64]*int32)
	}
	counter, ok := h.active[ev.UserID]
	if !ok {
		counter = new(int32)
		h.active[ev.UserID] = counter
	}
	h.calls = append(h.calls, call{Action: action, Args: args})
	h.mu.Unlock()

	if atomic.AddInt32(counter, 1) > 1 {
		h.overlap.Store(true)
	}
	time.Sleep(h.delay)
	atomic.AddInt32(counter, -1)
	return h.err
}

func (h *recordingHandler) Start(_ context.Context, ev chat.Event) error {
	return h.record(ev, "start")
}

func (h *recordingHandler) Cancel(_ context.Context, ev chat.Event) error {
	return h.record(ev, "cancel")
}

func (h *recordingHandler) BrowseCategory(_ context.Context, ev chat.Event, category string) error {
	return h.record(ev, "category", category)
}

func (h *recordingHandler) AddToCart(_ context.Context, ev chat.Event, category, productID string) error {
	return h.record(ev, "add", category, productID)
}

func (h *recordingHandler) ViewCart(_ context.Context, ev chat.Event) error {
	return h.record(ev, "view_cart")
}

func (h *recordingHandler) FilterByPrice(_ context.Context, ev chat.Event, min, max int64) error {
	return h.record(ev, "filter", min, max)
}

func (h *recordingHandler) HandleText(_ context.Context, ev chat.Event) error {
	return h.record(ev, "text", ev.Text)
}

func (h *recordingHandler) Unknown(_ context.Context, ev chat.Event) error {
	return h.record(ev, "unknown")
}

func TestRouter_DispatchesByAction(t *testing.T) {
	h := &recordingHandler{}
	r := New(h, nil, logger.Discard())
	ctx := context.Background()

	events := []chat.Event{
		{Kind: chat.KindCommand, Command: "start"},
		{Kind: chat.KindCommand, Command: "cancel"},
		{Kind: chat.KindCommand, Command: "help"},
		{Kind: chat.KindCallback, Data: "category:Білизна"},
		{Kind: chat.KindCallback, Data: "add:Білизна:a1b2c3d4"},
		{Kind: chat.KindCallback, Data: "view_cart"},
		{Kind: chat.KindCallback, Data: "filter:300:600"},
		{Kind: chat.KindCallback, Data: "add:broken"},
		{Kind: chat.KindText, Text: "Jane; 050; 12"},
	}
	for _, ev := range events {
		require.NoError(t, r.Dispatch(ctx, ev))
	}

	assert.Equal(t, []call{
		{Action: "start"},
		{Action: "cancel"},
		{Action: "unknown"},
		{Action: "category", Args: []interface{}{"Білизна"}},
		{Action: "add", Args: []interface{}{"Білизна", "a1b2c3d4"}},
		{Action: "view_cart"},
		{Action: "filter", Args: []interface{}{int64(300), int64(600)}},
		{Action: "unknown"},
		{Action: "text", Args: []interface{}{"Jane; 050; 12"}},
	}, h.calls)
}

func TestDecode(t *testing.T) {
	assert.Equal(t, handler.ActionStart, Decode(chat.Event{Kind: chat.KindCommand, Command: "start"}).Action)
	assert.Equal(t, handler.ActionUnknown, Decode(chat.Event{}).Action)
	assert.Equal(t, handler.ActionUnknown, Decode(chat.Event{Kind: chat.KindCallback, Data: "filter:x:y"}).Action)
}

func TestRouter_SerializesPerUser(t *testing.T) {
	h := &recordingHandler{delay: 5 * time.Millisecond}
	r := New(h, nil, logger.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Dispatch(context.Background(), chat.Event{Kind: chat.KindCallback, UserID: 1, Data: "view_cart"})
		}()
	}
	wg.Wait()

	assert.False(t, h.overlap.Load(), "events of one user overlapped")
	assert.Len(t, h.calls, 10)
	assert.Equal(t, 0, r.locks.size())
}

func TestRouter_DifferentUsersRunConcurrently(t *testing.T) {
	h := &recordingHandler{delay: 50 * time.Millisecond}
	r := New(h, nil, logger.Discard())

	start := time.Now()
	var wg sync.WaitGroup
	for i := int64(1); i <= 5; i++ {
		wg.Add(1)
		go func(user int64) {
			defer wg.Done()
			_ = r.Dispatch(context.Background(), chat.Event{Kind: chat.KindCallback, UserID: user, Data: "view_cart"})
		}(i)
	}
	wg.Wait()

	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestRouter_RecordsMetricsAndSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	m := metrics.New(prometheus.NewRegistry())
	h := &recordingHandler{}
	r := New(h, m, logger.Discard())
	ctx := context.Background()

	require.NoError(t, r.Dispatch(ctx, chat.Event{Kind: chat.KindCallback, UserID: 1, Data: "view_cart"}))

	h.err = errors.New("store unavailable")
	assert.Error(t, r.Dispatch(ctx, chat.Event{Kind: chat.KindCommand, UserID: 1, Command: "start"}))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("view_cart", metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues("start", metrics.OutcomeError)))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "chat.view_cart", spans[0].Name())
	assert.Equal(t, "chat.start", spans[1].Name())
	assert.Equal(t, "store unavailable", spans[1].Status().Description)
}
