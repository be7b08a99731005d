package event

import (
	"context"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/beacon-feed/pkg/logger"
)

// Handler consumes one event payload. Panics and errors stay inside the
// handler: they are logged and reported, never re-raised into the bus.
type Handler func(ctx context.Context, payload any)

type envelope struct {
	kind    string
	payload any
	enqAt   time.Time
}

// Bus 进程内事件总线：有界队列 + worker 池，满则丢弃并告警
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	ch       chan envelope
	workers  int
	timeout  time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewBus(workers, queueSize int) *Bus {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 10000
	}
	return &Bus{
		handlers: make(map[string][]Handler),
		ch:       make(chan envelope, queueSize),
		workers:  workers,
		timeout:  30 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Subscribe registers a handler for a kind. Call before Start.
func (b *Bus) Subscribe(kind string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], h)
}

// Publish enqueues without blocking the caller; a full queue drops the event
// with a warning rather than stalling the publishing request.
func (b *Bus) Publish(kind string, payload any) {
	select {
	case b.ch <- envelope{kind: kind, payload: payload, enqAt: time.Now()}:
	default:
		logger.Warn("event queue full, drop", zap.String("kind", kind))
	}
}

// Start launches the worker pool and returns a stop function that drains the
// queue for a bounded grace period.
func (b *Bus) Start() func(context.Context) error {
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.loop()
	}
	return func(ctx context.Context) error {
		b.stopOnce.Do(func() { close(b.stopCh) })
		done := make(chan struct{})
		go func() { b.wg.Wait(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (b *Bus) loop() {
	defer b.wg.Done()
	for {
		select {
		case env := <-b.ch:
			b.dispatch(env)
		case <-b.stopCh:
			// 退出前排空剩余事件
			for {
				select {
				case env := <-b.ch:
					b.dispatch(env)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) dispatch(env envelope) {
	b.mu.RLock()
	hs := b.handlers[env.kind]
	b.mu.RUnlock()

	for _, h := range hs {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		b.safeCall(ctx, env, h)
		cancel()
	}
}

func (b *Bus) safeCall(ctx context.Context, env envelope, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event handler panic",
				zap.String("kind", env.kind), zap.Any("panic", r))
			sentry.CurrentHub().Recover(r)
		}
	}()
	h(ctx, env.payload)
}
