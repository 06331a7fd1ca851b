package notify

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// DefaultChannel is the Redis channel used when none is configured.
const DefaultChannel = "visor:data-changed"

type redisMessage struct {
	Event  string `json:"event"`
	Origin string `json:"origin"`
}

// ParseRedisOptions accepts either a redis:// URL or the
// "host:port,password=...,ssl=true" form.
func ParseRedisOptions(conn string) *redis.Options {
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}

// RedisPublisher announces changes on a Redis channel so other processes
// sharing the data file can react. Each publisher tags its messages with an
// origin so a process relaying the channel can skip its own announcements.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	origin  string
	logger  *log.Logger
}

func NewRedisPublisher(client *redis.Client, channel string, logger *log.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel, origin: uuid.NewString(), logger: logger}
}

// Origin identifies messages sent by this publisher.
func (p *RedisPublisher) Origin() string { return p.origin }

// DataChanged publishes the event. Failures are logged; the mutation that
// triggered the signal has already been saved.
func (p *RedisPublisher) DataChanged(ctx context.Context) {
	payload, err := sonic.Marshal(redisMessage{Event: EventDataChanged, Origin: p.origin})
	if err != nil {
		p.logger.WithError(err).Error("encode data-changed message")
		return
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.WithError(err).WithField("channel", p.channel).Warn("publish data-changed failed")
	}
}

// Relay subscribes to channel and forwards every data-changed message to
// target until ctx is cancelled. Messages tagged with skipOrigin are dropped.
// The subscription is re-established if Redis closes it.
func Relay(ctx context.Context, client *redis.Client, channel, skipOrigin string, target Notifier, logger *log.Logger) {
	if channel == "" {
		channel = DefaultChannel
	}
	for {
		sub := client.Subscribe(ctx, channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				var m redisMessage
				if err := sonic.UnmarshalString(msg.Payload, &m); err != nil {
					logger.Errorf("unable to parse notification: %v", err)
					continue
				}
				if m.Event != EventDataChanged {
					logger.Warnf("received unknown event %q in %s channel - ignoring it", m.Event, channel)
					continue
				}
				if skipOrigin != "" && m.Origin == skipOrigin {
					continue
				}
				target.DataChanged(ctx)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		logger.Error("pubsub channel closed, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}
