package queuesvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-credentials/core/task"
)

var (
	// ErrEmpty is returned by Reserve when no envelope is due.
	ErrEmpty = errors.New("no task due")

	// moves the first due envelope from the scheduled set to the in-flight set
	reserveScript = redis.NewScript(`
local items = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, 1)
if #items == 0 then
	return false
end
redis.call('ZREM', KEYS[1], items[1])
redis.call('ZADD', KEYS[2], ARGV[2], items[1])
return items[1]
`)

	// moves in-flight envelopes whose visibility deadline passed back to the scheduled set
	requeueScript = redis.NewScript(`
local items = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
for _, item in ipairs(items) do
	redis.call('ZREM', KEYS[1], item)
	redis.call('ZADD', KEYS[2], ARGV[1], item)
end
return #items
`)
)

type (
	// RedisQueue persists envelopes in Redis: a sorted set of scheduled envelopes scored by ETA,
	// a sorted set of reserved envelopes scored by visibility deadline, and a dead-letter list.
	RedisQueue struct {
		client      *redis.Client
		maxAttempts int
		scheduled   string
		inflight    string
		dead        string
	}

	// Reservation is an envelope taken off the queue by a worker.
	Reservation struct {
		Envelope task.Envelope
		raw      string
	}
)

var _ task.Queue = (*RedisQueue)(nil)

func NewRedisQueue(client *redis.Client, prefix string, maxAttempts int) *RedisQueue {
	return &RedisQueue{
		client:      client,
		maxAttempts: maxAttempts,
		scheduled:   prefix + ":scheduled",
		inflight:    prefix + ":inflight",
		dead:        prefix + ":dead",
	}
}

func score(t time.Time) float64 {
	return float64(t.UnixNano() / int64(time.Millisecond))
}

func (q *RedisQueue) Enqueue(ctx context.Context, d task.Descriptor) error {
	env, err := task.NewEnvelope(d, q.maxAttempts, NowFunc())
	if err != nil {
		return err
	}
	return q.Schedule(ctx, env)
}

// Schedule adds env to the queue, due at env.ETA.
func (q *RedisQueue) Schedule(ctx context.Context, env task.Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return errors.Wrapf(err, "encoding envelope %s", env.ID)
	}
	err = q.client.ZAdd(ctx, q.scheduled, &redis.Z{Score: score(env.ETA), Member: string(raw)}).Err()
	return errors.Wrapf(err, "scheduling %s", env.Name)
}

// Reserve takes the first envelope due at now, hiding it from other workers until deadline.
func (q *RedisQueue) Reserve(ctx context.Context, now, deadline time.Time) (Reservation, error) {
	raw, err := reserveScript.Run(ctx, q.client, []string{q.scheduled, q.inflight}, score(now), score(deadline)).Text()
	if err != nil {
		if err == redis.Nil {
			return Reservation{}, ErrEmpty
		}
		return Reservation{}, errors.Wrap(err, "reserving task")
	}
	var env task.Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		// unreadable envelopes can never succeed
		_ = q.client.ZRem(ctx, q.inflight, raw).Err()
		_ = q.client.LPush(ctx, q.dead, raw).Err()
		return Reservation{}, errors.Wrap(err, "decoding envelope")
	}
	return Reservation{Envelope: env, raw: raw}, nil
}

// Ack removes a reservation for good.
func (q *RedisQueue) Ack(ctx context.Context, r Reservation) error {
	return errors.Wrap(q.client.ZRem(ctx, q.inflight, r.raw).Err(), "acking task")
}

// Retry replaces a reservation by the envelope of its next attempt.
func (q *RedisQueue) Retry(ctx context.Context, r Reservation, next task.Envelope) error {
	raw, err := json.Marshal(next)
	if err != nil {
		return errors.Wrapf(err, "encoding envelope %s", next.ID)
	}
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, q.inflight, r.raw)
		pipe.ZAdd(ctx, q.scheduled, &redis.Z{Score: score(next.ETA), Member: string(raw)})
		return nil
	})
	return errors.Wrap(err, "rescheduling task")
}

// DeadLetter moves a reservation to the dead-letter list.
func (q *RedisQueue) DeadLetter(ctx context.Context, r Reservation, reason string) error {
	env := r.Envelope
	env.LastError = reason
	raw, err := json.Marshal(env)
	if err != nil {
		return errors.Wrapf(err, "encoding envelope %s", env.ID)
	}
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, q.inflight, r.raw)
		pipe.LPush(ctx, q.dead, string(raw))
		return nil
	})
	return errors.Wrap(err, "dead-lettering task")
}

// RequeueExpired makes reservations whose deadline passed due again. It returns how many were requeued.
func (q *RedisQueue) RequeueExpired(ctx context.Context, now time.Time) (int, error) {
	n, err := requeueScript.Run(ctx, q.client, []string{q.inflight, q.scheduled}, score(now)).Int()
	return n, errors.Wrap(err, "requeueing expired tasks")
}

// Pending returns the number of scheduled envelopes.
func (q *RedisQueue) Pending(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.scheduled).Result()
}

// DeadLetters returns the most recent dead-lettered envelopes, newest first.
func (q *RedisQueue) DeadLetters(ctx context.Context, limit int64) ([]task.Envelope, error) {
	raws, err := q.client.LRange(ctx, q.dead, 0, limit-1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "listing dead letters")
	}
	envs := make([]task.Envelope, 0, len(raws))
	for _, raw := range raws {
		var env task.Envelope
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			continue
		}
		envs = append(envs, env)
	}
	return envs, nil
}
