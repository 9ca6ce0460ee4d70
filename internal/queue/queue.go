package queue

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Message represents work handed to downstream consumers.
type Message struct {
	Type string
	Body []byte
}

// Publisher is the abstraction over different backends.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// ErrFull is returned by InMemory when its buffer is exhausted.
var ErrFull = errors.New("queue: buffer full")

// InMemory is a bounded channel-backed queue for dev/testing. Publish never
// blocks; when nobody drains the queue messages are rejected with ErrFull.
type InMemory struct {
	ch chan Message
}

// NewInMemory creates a bounded in-memory queue.
func NewInMemory(size int) *InMemory {
	if size <= 0 {
		size = 64
	}
	return &InMemory{ch: make(chan Message, size)}
}

// Publish enqueues a message.
func (q *InMemory) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case q.ch <- msg:
		return nil
	default:
		return ErrFull
	}
}

// Messages exposes the buffered messages to an in-process consumer.
func (q *InMemory) Messages() <-chan Message {
	return q.ch
}

// Discard drops every message; used when no backend is configured.
type Discard struct{}

func (Discard) Publish(context.Context, Message) error { return nil }

// RedisQueue implements a simple Redis list-backed queue.
type RedisQueue struct {
	client *redis.Client
	key    string
}

// NewRedisQueue builds a queue consumers read with BRPOP.
func NewRedisQueue(client *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "classsight:cam-events"
	}
	return &RedisQueue{client: client, key: key}
}

// Publish enqueues a message.
func (q *RedisQueue) Publish(ctx context.Context, msg Message) error {
	return q.client.LPush(ctx, q.key, Encode(msg)).Err()
}

// Encode stores messages as Type|Body.
func Encode(msg Message) string {
	return msg.Type + "|" + string(msg.Body)
}

// Decode is the inverse of Encode. A payload without a separator is returned
// as an untyped body.
func Decode(s string) Message {
	typ, body, ok := strings.Cut(s, "|")
	if !ok {
		return Message{Body: []byte(s)}
	}
	return Message{Type: typ, Body: []byte(body)}
}
