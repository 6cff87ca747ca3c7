package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"solmeet/internal/ledger/models"
	"solmeet/pkg/domain"
	"solmeet/pkg/platform/sentinel"
)

// tryInsertScript applies the nonce, claimant and capacity checks and both
// writes in one atomic script. Returns 0 on insert, otherwise the reason.
var tryInsertScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then return 1 end
if redis.call('HEXISTS', KEYS[2], ARGV[2]) == 1 then return 2 end
local cap = tonumber(ARGV[3])
if cap > 0 and redis.call('HLEN', KEYS[1]) >= cap then return 3 end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[4])
redis.call('HSET', KEYS[2], ARGV[2], ARGV[1])
return 0
`)

const (
	insertOK = iota
	insertNonceConsumed
	insertAlreadyClaimed
	insertCapacityReached
)

// RedisStore keeps each event's ledger in two hashes sharing the {event} hash
// tag, so the insert script stays on one cluster slot.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedis(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "solmeet:ledger"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) entriesKey(eventID domain.EventID) string {
	return fmt.Sprintf("%s:{%s}:entries", s.prefix, eventID)
}

func (s *RedisStore) claimantsKey(eventID domain.EventID) string {
	return fmt.Sprintf("%s:{%s}:claimants", s.prefix, eventID)
}

type redisEntry struct {
	Claimant   string `json:"claimant"`
	ConsumedAt int64  `json:"consumed_at"`
	Digest     string `json:"digest"`
	IssuedAt   int64  `json:"issued_at"`
}

func encodeRedisEntry(entry models.Entry) (string, error) {
	b, err := json.Marshal(redisEntry{
		Claimant:   entry.Record.Claimant.Key(),
		ConsumedAt: entry.Record.ConsumedAt.UnixNano(),
		Digest:     hex.EncodeToString(entry.Proof.Digest[:]),
		IssuedAt:   entry.Proof.IssuedAt.UnixNano(),
	})
	return string(b), err
}

func decodeRedisEntry(eventID domain.EventID, nonceHex, payload string) (*models.Entry, error) {
	var raw redisEntry
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return nil, fmt.Errorf("decode ledger entry: %w", err)
	}
	nonce, err := hex.DecodeString(nonceHex)
	if err != nil {
		return nil, fmt.Errorf("decode ledger nonce: %w", err)
	}
	digest, err := hex.DecodeString(raw.Digest)
	if err != nil {
		return nil, fmt.Errorf("decode ledger digest: %w", err)
	}
	entry := &models.Entry{}
	entry.Record.ConsumedAt = time.Unix(0, raw.ConsumedAt)
	entry.Proof.IssuedAt = time.Unix(0, raw.IssuedAt)
	return assembleEntry(entry, eventID, nonce, raw.Claimant, digest)
}

func (s *RedisStore) TryInsert(ctx context.Context, entry models.Entry, capacity int) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	payload, err := encodeRedisEntry(entry)
	if err != nil {
		return fmt.Errorf("encode ledger entry: %w", err)
	}
	rec := entry.Record

	res, err := tryInsertScript.Run(ctx, s.client,
		[]string{s.entriesKey(rec.EventID), s.claimantsKey(rec.EventID)},
		rec.Nonce.String(), rec.Claimant.Key(), capacity, payload,
	).Int()
	if err != nil {
		return unavailable("ledger insert script", err)
	}
	switch res {
	case insertOK:
		return nil
	case insertNonceConsumed:
		return ErrNonceConsumed
	case insertAlreadyClaimed:
		return ErrAlreadyClaimed
	case insertCapacityReached:
		return ErrCapacityReached
	default:
		return unavailable("ledger insert script", fmt.Errorf("unexpected result %d", res))
	}
}

func (s *RedisStore) CountByEvent(ctx context.Context, eventID domain.EventID) (int, error) {
	n, err := s.client.HLen(ctx, s.entriesKey(eventID)).Result()
	if err != nil {
		return 0, unavailable("count claims", err)
	}
	return int(n), nil
}

func (s *RedisStore) ListByEvent(ctx context.Context, eventID domain.EventID) ([]models.Entry, error) {
	all, err := s.client.HGetAll(ctx, s.entriesKey(eventID)).Result()
	if err != nil {
		return nil, unavailable("list claims", err)
	}
	entries := make([]models.Entry, 0, len(all))
	for nonceHex, payload := range all {
		entry, err := decodeRedisEntry(eventID, nonceHex, payload)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i].Record, entries[j].Record
		if a.ConsumedAt.Equal(b.ConsumedAt) {
			return a.Nonce.String() < b.Nonce.String()
		}
		return a.ConsumedAt.Before(b.ConsumedAt)
	})
	return entries, nil
}

func (s *RedisStore) FindByClaimant(ctx context.Context, eventID domain.EventID, claimant domain.Identity) (*models.Entry, error) {
	nonceHex, err := s.client.HGet(ctx, s.claimantsKey(eventID), claimant.Key()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, unavailable("find claim", err)
	}
	return s.findByNonceHex(ctx, eventID, nonceHex)
}

func (s *RedisStore) FindByNonce(ctx context.Context, eventID domain.EventID, nonce domain.Nonce) (*models.Entry, error) {
	return s.findByNonceHex(ctx, eventID, nonce.String())
}

func (s *RedisStore) findByNonceHex(ctx context.Context, eventID domain.EventID, nonceHex string) (*models.Entry, error) {
	payload, err := s.client.HGet(ctx, s.entriesKey(eventID), nonceHex).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, unavailable("find claim", err)
	}
	return decodeRedisEntry(eventID, nonceHex, payload)
}
