package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"forexrates/internal/domain"

	"github.com/go-redis/redis"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	pairKeyPrefix = "fxrates:pair:"
	idKeyPrefix   = "fxrates:id:"
	scanBatch     = 100
)

type record struct {
	ID        uuid.UUID       `json:"id"`
	Pair      string          `json:"pair"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toRecord(rate domain.ExchangeRate) record {
	return record{ID: rate.ID, Pair: rate.Pair, Bid: rate.Bid, Ask: rate.Ask, UpdatedAt: rate.UpdatedAt}
}

func (r record) toDomain() domain.ExchangeRate {
	return domain.ExchangeRate{ID: r.ID, Pair: r.Pair, Bid: r.Bid, Ask: r.Ask, UpdatedAt: r.UpdatedAt}
}

// KEYS: pair record, id index. ARGV: record, pair.
var insertScript = redis.NewScript(`
if redis.call('SETNX', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2])
return 1
`)

// KEYS: pair record, id index. ARGV: id, record, pair.
var updateScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
	return 0
end
if cjson.decode(current).id ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2])
redis.call('SET', KEYS[2], ARGV[3])
return 1
`)

// KEYS: pair record. ARGV: id index prefix.
var deleteScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
	return 0
end
local id = cjson.decode(current).id
redis.call('DEL', KEYS[1], ARGV[1] .. id)
return 1
`)

func pairKey(pair string) string { return pairKeyPrefix + domain.ToStorageKey(pair) }

func idKey(id uuid.UUID) string { return idKeyPrefix + id.String() }

// RateStore keeps one JSON record per canonical pair plus an id → pair index.
// Records never expire.
type RateStore struct {
	client *redis.Client
}

func (s *RateStore) FindByPair(ctx context.Context, pair string) (domain.ExchangeRate, bool, error) {
	key := domain.ToStorageKey(pair)
	raw, err := s.client.WithContext(ctx).Get(pairKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ExchangeRate{}, false, nil
		}
		return domain.ExchangeRate{}, false, &domain.StoreError{Op: "get", Pair: key, Err: err}
	}

	var rec record
	if err = json.Unmarshal(raw, &rec); err != nil {
		return domain.ExchangeRate{}, false, &domain.StoreError{Op: "get", Pair: key, Err: fmt.Errorf("failed to decode record: %w", err)}
	}
	return rec.toDomain(), true, nil
}

// Insert claims the pair key with SETNX so concurrent inserts of the same
// pair leave exactly one record. The record and its id index are written by
// one script.
func (s *RateStore) Insert(ctx context.Context, rate domain.ExchangeRate) (domain.ExchangeRate, error) {
	rate.ID = uuid.New()
	rate.Pair = domain.ToStorageKey(rate.Pair)
	rate.UpdatedAt = time.Now().UTC()

	raw, err := json.Marshal(toRecord(rate))
	if err != nil {
		return domain.ExchangeRate{}, &domain.StoreError{Op: "insert", Pair: rate.Pair, Err: err}
	}

	created, err := insertScript.Run(s.client.WithContext(ctx),
		[]string{pairKey(rate.Pair), idKey(rate.ID)}, raw, rate.Pair).Int64()
	if err != nil {
		return domain.ExchangeRate{}, &domain.StoreError{Op: "insert", Pair: rate.Pair, Err: err}
	}
	if created == 0 {
		return domain.ExchangeRate{}, &domain.StoreError{Op: "insert", Pair: rate.Pair, Err: domain.ErrDuplicatePair}
	}
	return rate, nil
}

// Update replaces the record whose id matches rate.ID. The pair is taken from
// rate.Pair when set, otherwise from the id index. The stored record's id is
// authoritative, so a stale id never overwrites a re-inserted pair and a
// missing index entry is rewritten.
func (s *RateStore) Update(ctx context.Context, rate domain.ExchangeRate) (domain.ExchangeRate, error) {
	c := s.client.WithContext(ctx)

	pair := domain.ToStorageKey(rate.Pair)
	if pair == "" {
		indexed, err := c.Get(idKey(rate.ID)).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return domain.ExchangeRate{}, domain.ErrPairNotFound
			}
			return domain.ExchangeRate{}, &domain.StoreError{Op: "update", Err: err}
		}
		pair = indexed
	}
	rate.Pair = pair

	raw, err := json.Marshal(toRecord(rate))
	if err != nil {
		return domain.ExchangeRate{}, &domain.StoreError{Op: "update", Pair: pair, Err: err}
	}
	replaced, err := updateScript.Run(c,
		[]string{pairKey(pair), idKey(rate.ID)}, rate.ID.String(), raw, pair).Int64()
	if err != nil {
		return domain.ExchangeRate{}, &domain.StoreError{Op: "update", Pair: pair, Err: err}
	}
	if replaced == 0 {
		return domain.ExchangeRate{}, domain.ErrPairNotFound
	}
	return rate, nil
}

// Delete removes the pair record and the index entry named by the record's
// own id in one script.
func (s *RateStore) Delete(ctx context.Context, pair string) (bool, error) {
	key := domain.ToStorageKey(pair)
	removed, err := deleteScript.Run(s.client.WithContext(ctx), []string{pairKey(key)}, idKeyPrefix).Int64()
	if err != nil {
		return false, &domain.StoreError{Op: "delete", Pair: key, Err: err}
	}
	if removed == 0 {
		return false, domain.ErrPairNotFound
	}
	return true, nil
}

func (s *RateStore) ListAll(ctx context.Context) ([]domain.ExchangeRate, error) {
	c := s.client.WithContext(ctx)
	rates := make([]domain.ExchangeRate, 0, 64)

	var cursor uint64
	for {
		keys, next, err := c.Scan(cursor, pairKeyPrefix+"*", scanBatch).Result()
		if err != nil {
			return nil, &domain.StoreError{Op: "list", Err: err}
		}
		if len(keys) > 0 {
			values, err := c.MGet(keys...).Result()
			if err != nil {
				return nil, &domain.StoreError{Op: "list", Err: err}
			}
			for _, v := range values {
				// removed between SCAN and MGET
				str, ok := v.(string)
				if !ok {
					continue
				}
				var rec record
				if err = json.Unmarshal([]byte(str), &rec); err != nil {
					return nil, &domain.StoreError{Op: "list", Err: fmt.Errorf("failed to decode record: %w", err)}
				}
				rates = append(rates, rec.toDomain())
			}
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	return rates, nil
}

func (s *RateStore) Ping(ctx context.Context) error {
	return s.client.WithContext(ctx).Ping().Err()
}

func NewRateStore(client *redis.Client) *RateStore {
	return &RateStore{client: client}
}
