package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/comalice/hsmx/internal/core"
)

// noExpiry is the index score of snapshots saved without a TTL (2100-01-01).
const noExpiry = 4102444800

// RedisPersister stores snapshots as JSON strings and indexes machine IDs in a sorted set
// scored by expiry, so List can prune expired entries lazily.
type RedisPersister struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a RedisPersister.
type RedisOption func(*RedisPersister)

// WithTTL expires snapshots ttl after their last save. Zero keeps them forever.
func WithTTL(ttl time.Duration) RedisOption {
	return func(p *RedisPersister) {
		p.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(p *RedisPersister) {
		p.prefix = prefix
	}
}

// NewRedisPersister connects to the server at addr.
func NewRedisPersister(addr, password string, db int, opts ...RedisOption) *RedisPersister {
	return NewRedisPersisterFromClient(backend.NewClient(&backend.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), opts...)
}

// NewRedisPersisterFromClient wraps an existing client.
func NewRedisPersisterFromClient(client *backend.Client, opts ...RedisOption) *RedisPersister {
	p := &RedisPersister{client: client, prefix: "hsmx:machine:"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *RedisPersister) key(machineID string) string {
	return p.prefix + machineID
}

func (p *RedisPersister) indexKey() string {
	return p.prefix + "index"
}

// Save stores the snapshot and refreshes its index entry in one pipeline.
func (p *RedisPersister) Save(ctx context.Context, snapshot core.MachineSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot %q: %w", snapshot.MachineID, err)
	}

	score := float64(time.Now().Add(p.ttl).Unix())
	if p.ttl == 0 {
		score = noExpiry
	}

	pipe := p.client.Pipeline()
	pipe.Set(ctx, p.key(snapshot.MachineID), data, p.ttl)
	pipe.ZAdd(ctx, p.indexKey(), backend.Z{Score: score, Member: snapshot.MachineID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save %q to redis: %w", snapshot.MachineID, err)
	}
	return nil
}

func (p *RedisPersister) Load(ctx context.Context, machineID string) (core.MachineSnapshot, error) {
	val, err := p.client.Get(ctx, p.key(machineID)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return core.MachineSnapshot{}, fmt.Errorf("machine %q: %w", machineID, core.ErrNotFound)
		}
		return core.MachineSnapshot{}, fmt.Errorf("load %q from redis: %w", machineID, err)
	}

	var snapshot core.MachineSnapshot
	if err := json.Unmarshal(val, &snapshot); err != nil {
		return core.MachineSnapshot{}, fmt.Errorf("unmarshal snapshot %q: %w", machineID, err)
	}
	return snapshot, nil
}

// List prunes expired index entries and returns the remaining machine IDs.
func (p *RedisPersister) List(ctx context.Context) ([]string, error) {
	now := fmt.Sprintf("%d", time.Now().Unix())
	if err := p.client.ZRemRangeByScore(ctx, p.indexKey(), "-inf", "("+now).Err(); err != nil {
		return nil, fmt.Errorf("prune expired machines: %w", err)
	}
	ids, err := p.client.ZRange(ctx, p.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list machines: %w", err)
	}
	return ids, nil
}

// Delete removes a machine's snapshot and index entry.
func (p *RedisPersister) Delete(ctx context.Context, machineID string) error {
	pipe := p.client.Pipeline()
	pipe.Del(ctx, p.key(machineID))
	pipe.ZRem(ctx, p.indexKey(), machineID)
	_, err := pipe.Exec(ctx)
	return err
}

// Close closes the redis client.
func (p *RedisPersister) Close() error {
	return p.client.Close()
}

var _ core.Persister = (*RedisPersister)(nil)
