package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"onboarding/internal/verification/models"
	id "onboarding/pkg/domain"
	"onboarding/pkg/platform/sentinel"
	"onboarding/pkg/requestcontext"
)

const (
	sessionKeyPrefix = "session:"
	// expiryIndexKey is a sorted set of session ids scored by ExpiresAt (unix seconds).
	expiryIndexKey = "sessions:by_expiry"

	defaultRetention    = time.Hour
	defaultMaxTxRetries = 3
)

// RedisStore persists sessions as JSON documents. Keys outlive ExpiresAt by a
// retention window so the sweeper can still mark them expired.
type RedisStore struct {
	client       *redis.Client
	retention    time.Duration
	maxTxRetries int
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRetention sets how long a key survives past ExpiresAt.
func WithRetention(d time.Duration) RedisOption {
	return func(s *RedisStore) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithMaxTxRetries bounds optimistic-lock retries in Execute.
func WithMaxTxRetries(n int) RedisOption {
	return func(s *RedisStore) {
		if n >= 0 {
			s.maxTxRetries = n
		}
	}
}

// NewRedis constructs a Redis-backed session store.
func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client:       client,
		retention:    defaultRetention,
		maxTxRetries: defaultMaxTxRetries,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func sessionKey(sessionID id.SessionID) string {
	return sessionKeyPrefix + sessionID.String()
}

func (s *RedisStore) Create(ctx context.Context, session *models.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}
	now := requestcontext.Now(ctx)
	ttl := session.ExpiresAt.Sub(now) + s.retention
	if ttl < time.Second {
		ttl = time.Second
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	created, err := s.client.SetNX(ctx, sessionKey(session.ID), payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !created {
		return fmt.Errorf("session %s already exists: %w", session.ID, sentinel.ErrConflict)
	}

	err = s.client.ZAdd(ctx, expiryIndexKey, redis.Z{
		Score:  float64(session.ExpiresAt.Unix()),
		Member: session.ID.String(),
	}).Err()
	if err != nil {
		return fmt.Errorf("index session expiry: %w", err)
	}
	return nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) read(ctx context.Context, cmd getter, sessionID id.SessionID) (*models.Session, error) {
	raw, err := cmd.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// FindByID returns the session. Expired and registered sessions are unreachable.
func (s *RedisStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	sess, err := s.read(ctx, s.client, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Stage == models.StageRegistered {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if sess.IsExpired(requestcontext.Now(ctx)) {
		return nil, fmt.Errorf("session %s: %w", sessionID, sentinel.ErrExpired)
	}
	return sess, nil
}

// Execute is an optimistic read-validate-mutate under WATCH. A concurrent
// write aborts the transaction; it is retried up to maxTxRetries times before
// failing with ErrBusy wrapping redis.TxFailedErr. The key TTL is preserved.
func (s *RedisStore) Execute(ctx context.Context, sessionID id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error) {
	key := sessionKey(sessionID)
	now := requestcontext.Now(ctx)

	var result *models.Session
	txf := func(tx *redis.Tx) error {
		sess, err := s.read(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if sess.IsExpired(now) {
			return fmt.Errorf("session %s: %w", sessionID, sentinel.ErrExpired)
		}
		if err := validate(sess); err != nil {
			return err
		}
		mutate(sess)
		sess.UpdatedAt = now
		if err := sess.Validate(); err != nil {
			return err
		}

		payload, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, redis.KeepTTL)
			return nil
		})
		if err != nil {
			return err
		}
		result = sess
		return nil
	}

	for attempt := 0; ; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
		if attempt >= s.maxTxRetries {
			return nil, fmt.Errorf("session %s: %w: %w", sessionID, sentinel.ErrBusy, err)
		}
	}
}

func (s *RedisStore) AdvanceToFaceVerified(ctx context.Context, sessionID id.SessionID, match models.MatchResult, selfieKey string) error {
	return advanceToFaceVerified(ctx, s, sessionID, match, selfieKey)
}

// AdvanceToRegistered also drops the session from the expiry index; the key
// itself lives on as a tombstone until its TTL.
func (s *RedisStore) AdvanceToRegistered(ctx context.Context, sessionID id.SessionID, decision models.RiskDecision) error {
	if err := advanceToRegistered(ctx, s, sessionID, decision); err != nil {
		return err
	}
	if err := s.client.ZRem(ctx, expiryIndexKey, sessionID.String()).Err(); err != nil {
		return fmt.Errorf("unindex registered session: %w", err)
	}
	return nil
}

// Delete is idempotent.
func (s *RedisStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(sessionID))
		pipe.ZRem(ctx, expiryIndexKey, sessionID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ListExpired reads the expiry index. Index entries whose key already
// disappeared are pruned.
func (s *RedisStore) ListExpired(ctx context.Context, now time.Time) ([]id.SessionID, error) {
	members, err := s.client.ZRangeByScore(ctx, expiryIndexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list expired sessions: %w", err)
	}

	ids := make([]id.SessionID, 0, len(members))
	for _, m := range members {
		sessionID, err := id.ParseSessionID(m)
		if err != nil {
			_ = s.client.ZRem(ctx, expiryIndexKey, m).Err()
			continue
		}
		exists, err := s.client.Exists(ctx, sessionKey(sessionID)).Result()
		if err != nil {
			return nil, fmt.Errorf("check session: %w", err)
		}
		if exists == 0 {
			_ = s.client.ZRem(ctx, expiryIndexKey, m).Err()
			continue
		}
		ids = append(ids, sessionID)
	}
	return ids, nil
}

// MarkExpired moves a stale session to the expired stage and drops it from
// the expiry index. Registered sessions are refused.
func (s *RedisStore) MarkExpired(ctx context.Context, sessionID id.SessionID, now time.Time) error {
	key := sessionKey(sessionID)
	txf := func(tx *redis.Tx) error {
		sess, err := s.read(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if sess.Stage == models.StageRegistered {
			return fmt.Errorf("session %s is registered: %w", sessionID, sentinel.ErrInvalidState)
		}
		sess.Stage = models.StageExpired
		sess.FinalizingUntil = time.Time{}
		sess.UpdatedAt = now
		payload, err := json.Marshal(sess)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, redis.KeepTTL)
			pipe.ZRem(ctx, expiryIndexKey, sessionID.String())
			return nil
		})
		return err
	}

	for attempt := 0; ; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil || !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		if attempt >= s.maxTxRetries {
			return fmt.Errorf("session %s: %w: %w", sessionID, sentinel.ErrBusy, err)
		}
	}
}
