package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultCloseTimeout = 5 * time.Second

// InvalidationAction says what changed
type InvalidationAction string

const (
	InvalidationActionUpdated       InvalidationAction = "updated"
	InvalidationActionInvalidateAll InvalidationAction = "invalidate_all"
)

// InvalidationMessage is broadcast when a product costing configuration changes
type InvalidationMessage struct {
	Action    InvalidationAction `json:"action"`
	TenantID  uuid.UUID          `json:"tenant_id,omitempty"`
	ProductID uuid.UUID          `json:"product_id,omitempty"`
	Timestamp int64              `json:"timestamp"`
}

// Invalidator broadcasts configuration changes to every instance's L1 cache
type Invalidator interface {
	Publish(ctx context.Context, msg InvalidationMessage) error
	Subscribe(ctx context.Context, callback func(msg InvalidationMessage)) error
	Close() error
}

// RedisCostingInvalidator implements Invalidator with Redis Pub/Sub
type RedisCostingInvalidator struct {
	client    *redis.Client
	channel   string
	logger    *zap.Logger
	cancelFn  context.CancelFunc
	doneCh    chan struct{}
	doneOnce  sync.Once
	mu        sync.Mutex
	isRunning bool
}

// InvalidatorOption is a functional option for configuring the invalidator
type InvalidatorOption func(*RedisCostingInvalidator)

// WithInvalidatorChannel sets the Pub/Sub channel name
func WithInvalidatorChannel(channel string) InvalidatorOption {
	return func(i *RedisCostingInvalidator) {
		i.channel = channel
	}
}

// WithInvalidatorLogger sets the logger for the invalidator
func WithInvalidatorLogger(logger *zap.Logger) InvalidatorOption {
	return func(i *RedisCostingInvalidator) {
		i.logger = logger
	}
}

// NewRedisCostingInvalidator creates an invalidator over a shared client; the caller closes the client
func NewRedisCostingInvalidator(client *redis.Client, opts ...InvalidatorOption) *RedisCostingInvalidator {
	i := &RedisCostingInvalidator{
		client:  client,
		channel: DefaultCacheConfig().PubSubChannel,
		logger:  zap.NewNop(),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Publish sends an invalidation to all subscribers
func (i *RedisCostingInvalidator) Publish(ctx context.Context, msg InvalidationMessage) error {
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixNano()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation message: %w", err)
	}

	if err := i.client.Publish(ctx, i.channel, data).Err(); err != nil {
		i.logger.Error("Failed to publish product costing invalidation",
			zap.String("channel", i.channel),
			zap.Error(err))
		return fmt.Errorf("failed to publish message: %w", err)
	}

	i.logger.Debug("Published product costing invalidation",
		zap.String("action", string(msg.Action)),
		zap.String("product_id", msg.ProductID.String()))
	return nil
}

// Subscribe blocks delivering invalidations to callback until ctx is done or Close is called
func (i *RedisCostingInvalidator) Subscribe(ctx context.Context, callback func(msg InvalidationMessage)) error {
	i.mu.Lock()
	if i.isRunning {
		i.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	subCtx, cancel := context.WithCancel(ctx)
	i.isRunning = true
	i.cancelFn = cancel
	i.mu.Unlock()

	defer func() {
		i.mu.Lock()
		i.isRunning = false
		i.mu.Unlock()
		i.markDone()
	}()

	pubsub := i.client.Subscribe(subCtx, i.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	i.logger.Info("Subscribed to product costing invalidation channel",
		zap.String("channel", i.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			i.logger.Info("Product costing invalidation subscription stopped")
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				i.logger.Warn("Product costing invalidation channel closed")
				return nil
			}

			var update InvalidationMessage
			if err := json.Unmarshal([]byte(msg.Payload), &update); err != nil {
				i.logger.Error("Failed to unmarshal invalidation message",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}

			func() {
				defer func() {
					if r := recover(); r != nil {
						i.logger.Error("Panic in invalidation callback", zap.Any("panic", r))
					}
				}()
				callback(update)
			}()
		}
	}
}

func (i *RedisCostingInvalidator) markDone() {
	i.doneOnce.Do(func() {
		close(i.doneCh)
	})
}

// Close stops a running subscription
func (i *RedisCostingInvalidator) Close() error {
	i.mu.Lock()
	cancelFn := i.cancelFn
	i.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
		select {
		case <-i.doneCh:
		case <-time.After(defaultCloseTimeout):
			i.logger.Warn("Timeout waiting for subscription to stop")
		}
	}
	return nil
}

// Ensure RedisCostingInvalidator implements Invalidator
var _ Invalidator = (*RedisCostingInvalidator)(nil)
