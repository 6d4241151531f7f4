package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    "github.com/labstack/gommon/log"
    amqp "github.com/rabbitmq/amqp091-go"
)

const (
    publishBuffer  = 256
    dialTimeout    = 5 * time.Second
    publishTimeout = 5 * time.Second
)

// ErrPublishQueueFull is returned by Publish when the outgoing buffer is
// full and the event was dropped.
var ErrPublishQueueFull = errors.New("event buffer full")

// Publisher sends reservation events to RabbitMQ.  Publish only enqueues;
// Run drains the queue over one long-lived connection that is re-dialled
// after a failure.  Events that cannot be delivered are logged and dropped.
type Publisher struct {
    url         string
    logger      *log.Logger
    events      chan ReservationEvent
    dialTimeout time.Duration
}

// NewPublisher returns a Publisher for the broker at url.  Nothing is sent
// until Run is started.
func NewPublisher(url string, logger *log.Logger) *Publisher {
    return &Publisher{
        url:         url,
        logger:      logger,
        events:      make(chan ReservationEvent, publishBuffer),
        dialTimeout: dialTimeout,
    }
}

// Publish hands ev to the background sender and returns at once.  It never
// waits on the broker; when the buffer is full the event is dropped and
// ErrPublishQueueFull returned.
func (p *Publisher) Publish(ctx context.Context, ev ReservationEvent) error {
    if err := ctx.Err(); err != nil {
        return err
    }
    select {
    case p.events <- ev:
        return nil
    default:
        p.warn(ev, ErrPublishQueueFull)
        return ErrPublishQueueFull
    }
}

// Run sends queued events until ctx is cancelled.  Events still buffered at
// that point are not sent.
func (p *Publisher) Run(ctx context.Context) error {
    var s sender
    defer s.close()
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case ev := <-p.events:
            if err := p.send(ctx, &s, ev); err != nil {
                p.warn(ev, err)
                s.close()
            }
        }
    }
}

func (p *Publisher) send(ctx context.Context, s *sender, ev ReservationEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }
    if err := s.open(p.url, p.dialTimeout); err != nil {
        return err
    }

    ctx, cancel := context.WithTimeout(ctx, publishTimeout)
    defer cancel()
    return s.ch.PublishWithContext(ctx,
        "",               // default exchange
        ReservationQueue, // routing key = queue name
        false,            // mandatory
        false,            // immediate
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            Timestamp:    time.Now().UTC(),
            Type:         ev.Type,
            Body:         body,
        },
    )
}

func (p *Publisher) warn(ev ReservationEvent, err error) {
    p.logger.Warnj(log.JSON{"msg": "publish reservation event", "type": ev.Type,
        "reservation_id": ev.ReservationID, "error": err.Error()})
}

// sender is the connection and channel currently used by Run.
type sender struct {
    conn *amqp.Connection
    ch   *amqp.Channel
}

func (s *sender) open(url string, timeout time.Duration) error {
    if s.conn != nil && !s.conn.IsClosed() && s.ch != nil && !s.ch.IsClosed() {
        return nil
    }
    s.close()

    conn, err := dial(url, timeout)
    if err != nil {
        return fmt.Errorf("dial: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return fmt.Errorf("channel open: %w", err)
    }
    // Durable so messages survive broker restarts.
    if _, err := declareQueue(ch); err != nil {
        _ = conn.Close()
        return fmt.Errorf("queue declare: %w", err)
    }
    s.conn, s.ch = conn, ch
    return nil
}

func (s *sender) close() {
    if s.ch != nil {
        _ = s.ch.Close()
    }
    if s.conn != nil {
        _ = s.conn.Close()
    }
    s.conn, s.ch = nil, nil
}

// dial connects with timeout bounding both the TCP connect and the AMQP
// handshake.
func dial(url string, timeout time.Duration) (*amqp.Connection, error) {
    return amqp.DialConfig(url, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(timeout),
    })
}

func declareQueue(ch *amqp.Channel) (amqp.Queue, error) {
    return ch.QueueDeclare(
        ReservationQueue, // name
        true,             // durable
        false,            // autoDelete
        false,            // exclusive
        false,            // noWait
        nil,              // args
    )
}
