// Package router decodes chat events into handler calls and serializes
// them per user.
package router

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tiv91/intimshopbot/internal/chat"
	"github.com/tiv91/intimshopbot/internal/handler"
	"github.com/tiv91/intimshopbot/pkg/logger"
	"github.com/tiv91/intimshopbot/pkg/metrics"
)

// Handler is the conversation surface the router dispatches to.
type Handler interface {
	Start(ctx context.Context, ev chat.Event) error
	Cancel(ctx context.Context, ev chat.Event) error
	BrowseCategory(ctx context.Context, ev chat.Event, category string) error
	AddToCart(ctx context.Context, ev chat.Event, category, productID string) error
	ViewCart(ctx context.Context, ev chat.Event) error
	FilterByPrice(ctx context.Context, ev chat.Event, min, max int64) error
	HandleText(ctx context.Context, ev chat.Event) error
	Unknown(ctx context.Context, ev chat.Event) error
}

type Router struct {
	handler Handler
	locks   *userLocks
	metrics *metrics.Metrics
	tracer  trace.Tracer
	logger  *logger.Logger
}

// New builds a router. m may be nil.
func New(h Handler, m *metrics.Metrics, log *logger.Logger) *Router {
	return &Router{
		handler: h,
		locks:   newUserLocks(),
		metrics: m,
		tracer:  otel.Tracer("storebot/router"),
		logger:  log.WithComponent("router"),
	}
}

// Decode maps an event onto an action and its arguments.
func Decode(ev chat.Event) handler.Callback {
	switch ev.Kind {
	case chat.KindCommand:
		switch ev.Command {
		case "start":
			return handler.Callback{Action: handler.ActionStart}
		case "cancel":
			return handler.Callback{Action: handler.ActionCancel}
		}
	case chat.KindCallback:
		if cb, err := handler.ParseCallback(ev.Data); err == nil {
			return cb
		}
	case chat.KindText:
		return handler.Callback{Action: handler.ActionText}
	}
	return handler.Callback{Action: handler.ActionUnknown}
}

// Dispatch handles one event. Events of the same user run one at a time;
// different users run concurrently.
func (r *Router) Dispatch(ctx context.Context, ev chat.Event) error {
	cb := Decode(ev)
	action := string(cb.Action)

	upd := logger.NewUpdateContext(ev.UpdateID, ev.UserID, ev.ChatID, action)
	r.logger.LogUpdate(upd)

	ctx, span := r.tracer.Start(ctx, "chat."+action, trace.WithAttributes(
		attribute.Int("chat.update_id", ev.UpdateID),
		attribute.Int64("chat.user_id", ev.UserID),
		attribute.String("chat.request_id", upd.RequestID),
	))
	defer span.End()

	unlock := r.locks.lock(ev.UserID)
	defer unlock()

	start := time.Now()
	err := r.route(ctx, ev, cb)

	if r.metrics != nil {
		r.metrics.ObserveEvent(action, start, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	upd.Err = err
	r.logger.LogUpdateResult(upd)
	return err
}

func (r *Router) route(ctx context.Context, ev chat.Event, cb handler.Callback) error {
	switch cb.Action {
	case handler.ActionStart:
		return r.handler.Start(ctx, ev)
	case handler.ActionCancel:
		return r.handler.Cancel(ctx, ev)
	case handler.ActionCategory:
		return r.handler.BrowseCategory(ctx, ev, cb.Category)
	case handler.ActionAdd:
		return r.handler.AddToCart(ctx, ev, cb.Category, cb.ProductID)
	case handler.ActionViewCart:
		return r.handler.ViewCart(ctx, ev)
	case handler.ActionFilter:
		return r.handler.FilterByPrice(ctx, ev, cb.Min, cb.Max)
	case handler.ActionText:
		return r.handler.HandleText(ctx, ev)
	default:
		return r.handler.Unknown(ctx, ev)
	}
}

// userLocks is a keyed mutex. Entries are dropped once nobody holds or waits on them.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*userLock)}
}

func (l *userLocks) lock(userID int64) func() {
	l.mu.Lock()
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()

	return func() {
		ul.mu.Unlock()

		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}

func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
