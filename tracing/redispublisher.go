package tracing

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/sarchlab/showcase/hooking"
)

// DefaultChannel is the Redis channel transitions are published on.
const DefaultChannel = "showcase:transitions"

// Publisher is the part of a Redis client RedisPublisher needs.
// *redis.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// TransitionMessage is the JSON document published for each transition.
type TransitionMessage struct {
	ControllerID string  `json:"controller_id"`
	Seq          uint64  `json:"seq"`
	Reason       string  `json:"reason"`
	From         int     `json:"from"`
	To           int     `json:"to"`
	Paused       bool    `json:"paused"`
	TimerPending bool    `json:"timer_pending"`
	Time         float64 `json:"time,omitempty"`
}

// RedisPublisher publishes transitions to a Redis pub/sub channel so that
// renderers in other processes can follow the showcase.
type RedisPublisher struct {
	client  Publisher
	channel string
	timeout time.Duration
	logger  *log.Logger
	filter  TransitionFilter
	clock   func() time.Duration
	queue   chan []byte
}

// NewRedisPublisher creates a publisher on DefaultChannel. Messages are
// queued by Func and sent by Run, so the event loop never waits on the
// network. Publish failures are logged, never returned.
func NewRedisPublisher(client Publisher, logger *log.Logger) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		channel: DefaultChannel,
		timeout: time.Second,
		logger:  logger,
		filter:  All,
		queue:   make(chan []byte, 256),
	}
}

// NewRedisClient configures a client for addr. Connections are made lazily.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// WithChannel sets the channel to publish on.
func (p *RedisPublisher) WithChannel(channel string) *RedisPublisher {
	p.channel = channel
	return p
}

// WithFilter limits the transitions that are published.
func (p *RedisPublisher) WithFilter(f TransitionFilter) *RedisPublisher {
	p.filter = f
	return p
}

// WithClock stamps each message with the given clock.
func (p *RedisPublisher) WithClock(clock func() time.Duration) *RedisPublisher {
	p.clock = clock
	return p
}

// Func queues the transition carried by ctx. When the queue is full the
// message is dropped.
func (p *RedisPublisher) Func(ctx hooking.HookCtx) {
	tr, ok := transitionFromCtx(ctx)
	if !ok || !p.filter(tr) {
		return
	}

	msg := TransitionMessage{
		ControllerID: tr.ControllerID,
		Seq:          tr.Seq,
		Reason:       tr.Reason.String(),
		From:         tr.From,
		To:           tr.To,
		Paused:       tr.Paused,
		TimerPending: tr.TimerPending,
	}
	if p.clock != nil {
		msg.Time = p.clock().Seconds()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		p.logger.Error("encoding transition", "err", err)
		return
	}

	select {
	case p.queue <- payload:
	default:
		p.logger.Warn("dropping transition, publish queue full",
			"showcase", tr.ControllerID, "seq", tr.Seq)
	}
}

// Run sends queued messages until ctx is done. Messages still queued when
// ctx ends are sent before Run returns.
func (p *RedisPublisher) Run(ctx context.Context) {
	for {
		select {
		case payload := <-p.queue:
			p.publish(payload)
		case <-ctx.Done():
			for {
				select {
				case payload := <-p.queue:
					p.publish(payload)
				default:
					return
				}
			}
		}
	}
}

func (p *RedisPublisher) publish(payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.Warn("publishing transition",
			"channel", p.channel, "err", err)
	}
}
