package queue

import (
    "context"
    "net"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/labstack/gommon/log"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/iliyamo/cinema-reservation-api/internal/model"
)

// silentBroker accepts TCP connections and never answers, like a broker
// that is wedged during the handshake.
func silentBroker(t *testing.T) string {
    t.Helper()
    ln, err := net.Listen("tcp", "127.0.0.1:0")
    require.NoError(t, err)
    var (
        mu    sync.Mutex
        conns []net.Conn
    )
    t.Cleanup(func() {
        _ = ln.Close()
        mu.Lock()
        defer mu.Unlock()
        for _, c := range conns {
            _ = c.Close()
        }
    })
    go func() {
        for {
            conn, err := ln.Accept()
            if err != nil {
                return
            }
            mu.Lock()
            conns = append(conns, conn)
            mu.Unlock()
        }
    }()
    return "amqp://guest:guest@" + ln.Addr().String() + "/"
}

func quietLogger() *log.Logger {
    logger := log.New("test")
    logger.SetOutput(new(strings.Builder))
    return logger
}

func testEvent(id uint64) ReservationEvent {
    res := model.Reservation{ID: id, ScreeningID: 1, SeatNumber: int(id)}
    return NewReservationEvent(EventCreated, res, time.Now())
}

func TestPublishDoesNotWaitForBroker(t *testing.T) {
    p := NewPublisher(silentBroker(t), quietLogger())
    p.dialTimeout = 200 * time.Millisecond

    runCtx, stop := context.WithCancel(context.Background())
    defer stop()
    go func() { _ = p.Run(runCtx) }()

    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    start := time.Now()
    for i := uint64(1); i <= 5; i++ {
        require.NoError(t, p.Publish(ctx, testEvent(i)))
    }
    assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
    p := NewPublisher("amqp://unused", quietLogger())
    p.events = make(chan ReservationEvent, 2)

    ctx := context.Background()
    require.NoError(t, p.Publish(ctx, testEvent(1)))
    require.NoError(t, p.Publish(ctx, testEvent(2)))
    assert.ErrorIs(t, p.Publish(ctx, testEvent(3)), ErrPublishQueueFull)
    assert.Len(t, p.events, 2)
}

func TestPublishHonoursCancelledContext(t *testing.T) {
    p := NewPublisher("amqp://unused", quietLogger())
    ctx, cancel := context.WithCancel(context.Background())
    cancel()

    assert.ErrorIs(t, p.Publish(ctx, testEvent(1)), context.Canceled)
    assert.Empty(t, p.events)
}

func TestPublisherRunGivesUpOnSilentBroker(t *testing.T) {
    p := NewPublisher(silentBroker(t), quietLogger())
    p.dialTimeout = 100 * time.Millisecond
    require.NoError(t, p.Publish(context.Background(), testEvent(1)))

    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    done := make(chan error, 1)
    go func() { done <- p.Run(ctx) }()

    // The queued event is consumed and its send fails on the dial timeout.
    assert.Eventually(t, func() bool { return len(p.events) == 0 }, time.Second, 10*time.Millisecond)
    select {
    case err := <-done:
        assert.ErrorIs(t, err, context.DeadlineExceeded)
    case <-time.After(3 * time.Second):
        t.Fatal("Run did not return after its context expired")
    }
}
