package event

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/d60-Lab/beacon-feed/internal/model"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus(2, 16)
	var a, b atomic.Int64
	bus.Subscribe("k", func(ctx context.Context, payload any) { a.Add(1) })
	bus.Subscribe("k", func(ctx context.Context, payload any) { b.Add(1) })
	stop := bus.Start()

	for i := 0; i < 5; i++ {
		bus.Publish("k", i)
	}
	require.Eventually(t, func() bool {
		return a.Load() == 5 && b.Load() == 5
	}, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, stop(ctx))
}

func TestBusPanicIsolation(t *testing.T) {
	bus := NewBus(1, 16)
	var ok atomic.Int64
	bus.Subscribe("k", func(ctx context.Context, payload any) { panic("boom") })
	bus.Subscribe("k", func(ctx context.Context, payload any) { ok.Add(1) })
	stop := bus.Start()

	bus.Publish("k", nil)
	bus.Publish("k", nil)
	require.Eventually(t, func() bool { return ok.Load() == 2 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, stop(ctx))
}

func TestBusStopDrainsQueue(t *testing.T) {
	bus := NewBus(1, 64)
	var n atomic.Int64
	bus.Subscribe("k", func(ctx context.Context, payload any) { n.Add(1) })
	stop := bus.Start()
	for i := 0; i < 20; i++ {
		bus.Publish("k", i)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, stop(ctx))
	assert.EqualValues(t, 20, n.Load())
}

func newOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Outbox{}))
	return db
}

func TestRelayDeliversCommittedOutboxRowsOnce(t *testing.T) {
	db := newOutboxDB(t)
	bus := NewBus(1, 16)
	pub := NewPublisher(bus)

	var got []string
	bus.Subscribe(KindPostCreated, func(ctx context.Context, payload any) {
		e, ok := payload.(*PostCreated)
		require.True(t, ok)
		got = append(got, e.PostID)
	})
	stop := bus.Start()

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return pub.PostCreatedTx(tx, "p1")
	}))

	relay := NewRelay(db, bus, 16, time.Hour)
	require.NoError(t, relay.ProcessOnce(context.Background()))
	// 第二次扫描不应重复投递
	require.NoError(t, relay.ProcessOnce(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, stop(ctx))
	assert.Equal(t, []string{"p1"}, got)

	var done int64
	require.NoError(t, db.Model(&model.Outbox{}).Where("status = ?", "done").Count(&done).Error)
	assert.EqualValues(t, 1, done)
}

func TestRelaySkipsRolledBackRows(t *testing.T) {
	db := newOutboxDB(t)
	bus := NewBus(1, 16)
	pub := NewPublisher(bus)

	var n atomic.Int64
	bus.Subscribe(KindPostCreated, func(ctx context.Context, payload any) { n.Add(1) })
	stop := bus.Start()

	boom := errors.New("boom")
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := pub.PostCreatedTx(tx, "ghost"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	relay := NewRelay(db, bus, 16, time.Hour)
	require.NoError(t, relay.ProcessOnce(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, stop(ctx))
	assert.Zero(t, n.Load())
}

func TestRelaySkipsUndecodableRows(t *testing.T) {
	db := newOutboxDB(t)
	require.NoError(t, db.Create(&model.Outbox{
		ID: "bad", Kind: "unknown_kind", Payload: "{}", Status: "pending", CreatedAt: time.Now(),
	}).Error)

	bus := NewBus(1, 16)
	relay := NewRelay(db, bus, 16, time.Hour)
	require.NoError(t, relay.ProcessOnce(context.Background()))

	var row model.Outbox
	require.NoError(t, db.First(&row, "id = ?", "bad").Error)
	assert.Equal(t, "done", row.Status)
}
