package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/revocation-service/internal/domain"
	apperrors "github.com/spec-kit/revocation-service/pkg/util/errorutil"
)

// RedisRecords stores tokens as JSON strings with a TTL matching their expiry, plus one
// set per subject and one per client indexing the token keys.
//
//	<prefix>token:<key>       -> JSON record
//	<prefix>subject:<subject> -> set of keys
//	<prefix>client:<client>   -> set of keys
//
// Index sets may hold keys whose record Redis already expired; readers skip and prune them.
type RedisRecords struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisRecords returns a backend over client. Keys are namespaced by prefix.
func NewRedisRecords(client redis.UniversalClient, prefix string) *RedisRecords {
	return &RedisRecords{client: client, prefix: prefix}
}

var _ Records = (*RedisRecords)(nil)

type redisRecord struct {
	Key       string            `json:"key"`
	SubjectID string            `json:"subject_id"`
	ClientID  string            `json:"client_id"`
	IssuedAt  time.Time         `json:"issued_at"`
	ExpiresAt time.Time         `json:"expires_at"`
	Claims    map[string]string `json:"claims,omitempty"`
	TokenType domain.TokenType  `json:"token_type"`
}

func (r *RedisRecords) tokenKey(key string) string       { return r.prefix + "token:" + key }
func (r *RedisRecords) subjectKey(subject string) string { return r.prefix + "subject:" + subject }
func (r *RedisRecords) clientKey(client string) string   { return r.prefix + "client:" + client }

func (r *RedisRecords) Insert(ctx context.Context, token *domain.ReferenceToken) error {
	payload, err := json.Marshal(redisRecord{
		Key:       token.Key,
		SubjectID: token.SubjectID,
		ClientID:  token.ClientID,
		IssuedAt:  token.IssuedAt,
		ExpiresAt: token.ExpiresAt,
		Claims:    token.Claims,
		TokenType: token.TokenType,
	})
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	var ttl time.Duration
	if !token.ExpiresAt.IsZero() {
		ttl = time.Until(token.ExpiresAt)
		if ttl < time.Millisecond {
			ttl = time.Millisecond
		}
	}

	created, err := r.client.SetNX(ctx, r.tokenKey(token.Key), payload, ttl).Result()
	if err != nil {
		return apperrors.FromContext("store token", err)
	}
	if !created {
		return duplicateKey(token.Key)
	}

	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, r.subjectKey(token.SubjectID), token.Key)
	pipe.SAdd(ctx, r.clientKey(token.ClientID), token.Key)
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.FromContext("index token", err)
	}
	return nil
}

func (r *RedisRecords) Lookup(ctx context.Context, key string) (*domain.ReferenceToken, error) {
	raw, err := r.client.Get(ctx, r.tokenKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, tokenNotFound()
	}
	if err != nil {
		return nil, apperrors.FromContext("get token", err)
	}
	return decodeRecord(raw)
}

func (r *RedisRecords) Delete(ctx context.Context, key string) (bool, error) {
	token, err := r.Lookup(ctx, key)
	if apperrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return r.deleteRecord(ctx, token)
}

func (r *RedisRecords) deleteRecord(ctx context.Context, token *domain.ReferenceToken) (bool, error) {
	pipe := r.client.TxPipeline()
	del := pipe.Del(ctx, r.tokenKey(token.Key))
	pipe.SRem(ctx, r.subjectKey(token.SubjectID), token.Key)
	pipe.SRem(ctx, r.clientKey(token.ClientID), token.Key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, apperrors.FromContext("delete token", err)
	}
	return del.Val() > 0, nil
}

func (r *RedisRecords) DeleteMatching(ctx context.Context, subjectID, clientID string, mode MatchMode) ([]string, error) {
	var cmd *redis.StringSliceCmd
	if mode == MatchSubjectOrClient {
		cmd = r.client.SUnion(ctx, r.subjectKey(subjectID), r.clientKey(clientID))
	} else {
		cmd = r.client.SInter(ctx, r.subjectKey(subjectID), r.clientKey(clientID))
	}
	candidates, err := cmd.Result()
	if err != nil {
		return nil, apperrors.FromContext("revoke tokens", err)
	}

	var removed []string
	for _, key := range candidates {
		token, err := r.Lookup(ctx, key)
		if apperrors.IsNotFound(err) {
			r.client.SRem(ctx, r.subjectKey(subjectID), key)
			r.client.SRem(ctx, r.clientKey(clientID), key)
			continue
		}
		if err != nil {
			return removed, err
		}
		if !mode.Matches(token, subjectID, clientID) {
			continue
		}
		ok, err := r.deleteRecord(ctx, token)
		if err != nil {
			return removed, err
		}
		if ok {
			removed = append(removed, key)
		}
	}
	return removed, nil
}

func (r *RedisRecords) ListBySubject(ctx context.Context, subjectID string) ([]*domain.ReferenceToken, error) {
	keys, err := r.client.SMembers(ctx, r.subjectKey(subjectID)).Result()
	if err != nil {
		return nil, apperrors.FromContext("list tokens", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = r.tokenKey(key)
	}
	values, err := r.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, apperrors.FromContext("list tokens", err)
	}

	result := make([]*domain.ReferenceToken, 0, len(values))
	var stale []any
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			stale = append(stale, keys[i])
			continue
		}
		token, err := decodeRecord([]byte(raw))
		if err != nil {
			return nil, err
		}
		result = append(result, token)
	}
	if len(stale) > 0 {
		r.client.SRem(ctx, r.subjectKey(subjectID), stale...)
	}
	return result, nil
}

// DeleteExpired removes records Redis still holds past their expiry and prunes index
// entries whose record is gone. Only the former are reported.
func (r *RedisRecords) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	var removed []string
	iter := r.client.Scan(ctx, 0, r.prefix+"subject:*", 100).Iterator()
	for iter.Next(ctx) {
		subjectID := strings.TrimPrefix(iter.Val(), r.prefix+"subject:")
		keys, err := r.client.SMembers(ctx, iter.Val()).Result()
		if err != nil {
			return removed, apperrors.FromContext("sweep tokens", err)
		}
		for _, key := range keys {
			token, err := r.Lookup(ctx, key)
			if apperrors.IsNotFound(err) {
				r.client.SRem(ctx, r.subjectKey(subjectID), key)
				continue
			}
			if err != nil {
				return removed, err
			}
			if !token.Expired(now) {
				continue
			}
			ok, err := r.deleteRecord(ctx, token)
			if err != nil {
				return removed, err
			}
			if ok {
				removed = append(removed, key)
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, apperrors.FromContext("sweep tokens", err)
	}
	return removed, nil
}

func decodeRecord(raw []byte) (*domain.ReferenceToken, error) {
	var rec redisRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &domain.ReferenceToken{
		Key:       rec.Key,
		SubjectID: rec.SubjectID,
		ClientID:  rec.ClientID,
		IssuedAt:  rec.IssuedAt,
		ExpiresAt: rec.ExpiresAt,
		Claims:    rec.Claims,
		TokenType: rec.TokenType,
	}, nil
}
