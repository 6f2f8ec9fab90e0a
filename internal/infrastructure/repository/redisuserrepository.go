package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kursio/kursio/internal/domain/user"
	vo "github.com/kursio/kursio/internal/domain/user/valueobjects"
	apperrors "github.com/kursio/kursio/internal/shared/errors"
	"github.com/kursio/kursio/internal/shared/logger"
)

// redisUserRecord is the JSON document stored under <prefix>user:<id>.
type redisUserRecord struct {
	ID                   string    `json:"id"`
	Email                string    `json:"email"`
	Name                 string    `json:"name"`
	PasswordHash         string    `json:"passwordHash"`
	StripeCustomerID     string    `json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID string    `json:"stripeSubscriptionId,omitempty"`
	SubscriptionStatus   string    `json:"subscriptionStatus"`
	IsAdmin              bool      `json:"isAdmin"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`

	// IsSubscribed is the boolean older records carry instead of
	// subscriptionStatus. It is read, never written.
	IsSubscribed *bool `json:"isSubscribed,omitempty"`
}

func recordFromSnapshot(s user.Snapshot) redisUserRecord {
	return redisUserRecord{
		ID:                   s.ID,
		Email:                s.Email,
		Name:                 s.Name,
		PasswordHash:         s.PasswordHash,
		StripeCustomerID:     s.StripeCustomerID,
		StripeSubscriptionID: s.StripeSubscriptionID,
		SubscriptionStatus:   s.SubscriptionStatus,
		IsAdmin:              s.IsAdmin,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

// status prefers subscriptionStatus and falls back to the legacy flag.
func (r redisUserRecord) status() string {
	if r.SubscriptionStatus != "" || r.IsSubscribed == nil {
		return r.SubscriptionStatus
	}
	if *r.IsSubscribed {
		return vo.SubscriptionActive.String()
	}
	return vo.SubscriptionInactive.String()
}

func (r redisUserRecord) snapshot() user.Snapshot {
	return user.Snapshot{
		ID:                   r.ID,
		Email:                r.Email,
		Name:                 r.Name,
		PasswordHash:         r.PasswordHash,
		StripeCustomerID:     r.StripeCustomerID,
		StripeSubscriptionID: r.StripeSubscriptionID,
		SubscriptionStatus:   r.status(),
		IsAdmin:              r.IsAdmin,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

// RedisUserRepository is the legacy key-value user store. Email and
// billing customer lookups go through secondary index keys and listing
// walks a sorted set scored by creation time.
type RedisUserRepository struct {
	client *redis.Client
	prefix string
	logger logger.Interface
}

func NewRedisUserRepository(client *redis.Client, prefix string, log logger.Interface) *RedisUserRepository {
	return &RedisUserRepository{client: client, prefix: prefix, logger: log}
}

func (r *RedisUserRepository) userKey(id string) string {
	return r.prefix + "user:" + id
}

func (r *RedisUserRepository) emailKey(email string) string {
	return r.prefix + "user:email:" + email
}

func (r *RedisUserRepository) customerKey(customerID string) string {
	return r.prefix + "user:customer:" + customerID
}

func (r *RedisUserRepository) indexKey() string {
	return r.prefix + "users"
}

func (r *RedisUserRepository) Create(ctx context.Context, entity *user.User) error {
	rec := recordFromSnapshot(entity.Snapshot())
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	claimed, err := r.client.SetNX(ctx, r.emailKey(rec.Email), rec.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve email: %w", err)
	}
	if !claimed {
		return apperrors.NewConflictError("user already exists", rec.Email)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.userKey(rec.ID), data, 0)
		pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: float64(rec.CreatedAt.UnixNano()), Member: rec.ID})
		if rec.StripeCustomerID != "" {
			pipe.Set(ctx, r.customerKey(rec.StripeCustomerID), rec.ID, 0)
		}
		return nil
	})
	if err != nil {
		r.client.Del(ctx, r.emailKey(rec.Email))
		r.logger.Errorw("failed to create user", "email", rec.Email, "error", err)
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Infow("user created", "id", rec.ID, "email", rec.Email)
	return nil
}

func (r *RedisUserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	rec, err := r.load(ctx, r.client, id)
	if err != nil || rec == nil {
		return nil, err
	}
	return user.ReconstructUser(rec.snapshot())
}

func (r *RedisUserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getByIndex(ctx, r.emailKey(email))
}

func (r *RedisUserRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*user.User, error) {
	if customerID == "" {
		return nil, nil
	}
	return r.getByIndex(ctx, r.customerKey(customerID))
}

func (r *RedisUserRepository) getByIndex(ctx context.Context, key string) (*user.User, error) {
	id, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", key, err)
	}
	return r.GetByID(ctx, id)
}

func (r *RedisUserRepository) load(ctx context.Context, c redis.Cmdable, id string) (*redisUserRecord, error) {
	data, err := c.Get(ctx, r.userKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var rec redisUserRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", id, err)
	}
	return &rec, nil
}

// UpdateSubscription rewrites the billing fields under WATCH so a
// concurrent writer forces a retry instead of a lost update.
func (r *RedisUserRepository) UpdateSubscription(ctx context.Context, id string, patch user.SubscriptionPatch) error {
	return r.modify(ctx, id, func(rec *redisUserRecord) {
		rec.SubscriptionStatus = patch.Status.String()
		if patch.StripeSubscriptionID != nil {
			rec.StripeSubscriptionID = *patch.StripeSubscriptionID
		}
		if patch.StripeCustomerID != nil {
			rec.StripeCustomerID = *patch.StripeCustomerID
		}
	})
}

func (r *RedisUserRepository) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	return r.modify(ctx, id, func(rec *redisUserRecord) {
		rec.StripeCustomerID = customerID
	})
}

const maxWatchRetries = 3

func (r *RedisUserRepository) modify(ctx context.Context, id string, apply func(*redisUserRecord)) error {
	key := r.userKey(id)

	txf := func(tx *redis.Tx) error {
		rec, err := r.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return apperrors.NewNotFoundError("user not found", id)
		}

		previousCustomer := rec.StripeCustomerID
		apply(rec)
		rec.UpdatedAt = time.Now().UTC()

		if rec.StripeCustomerID != previousCustomer && rec.StripeCustomerID != "" {
			owner, err := tx.Get(ctx, r.customerKey(rec.StripeCustomerID)).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return fmt.Errorf("failed to read customer index: %w", err)
			}
			if owner != "" && owner != id {
				return apperrors.NewConflictError("billing customer already linked to another user", rec.StripeCustomerID)
			}
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal user: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			if rec.StripeCustomerID != previousCustomer {
				if previousCustomer != "" {
					pipe.Del(ctx, r.customerKey(previousCustomer))
				}
				if rec.StripeCustomerID != "" {
					pipe.Set(ctx, r.customerKey(rec.StripeCustomerID), id, 0)
				}
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil && !apperrors.IsAppError(err) {
			r.logger.Errorw("failed to update user", "id", id, "error", err)
			return fmt.Errorf("failed to update user: %w", err)
		}
		return err
	}
	return fmt.Errorf("failed to update user %s: too many concurrent writers", id)
}

// List loads every record and filters in memory; the legacy layout has no
// secondary indexes for status or email fragments.
func (r *RedisUserRepository) List(ctx context.Context, filter user.ListFilter) ([]*user.User, int64, error) {
	ids, err := r.client.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	if len(ids) == 0 {
		return []*user.User{}, 0, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.userKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load users: %w", err)
	}

	matched := make([]redisUserRecord, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var rec redisUserRecord
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			r.logger.Warnw("skipping undecodable user record", "id", ids[i], "error", err)
			continue
		}
		if matchesFilter(rec, filter) {
			matched = append(matched, rec)
		}
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return []*user.User{}, total, nil
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	users := make([]*user.User, 0, end-start)
	for _, rec := range matched[start:end] {
		u, err := user.ReconstructUser(rec.snapshot())
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, nil
}

func matchesFilter(rec redisUserRecord, f user.ListFilter) bool {
	if f.Email != "" && !strings.Contains(rec.Email, f.Email) {
		return false
	}
	if f.SubscriptionStatus != "" && rec.status() != f.SubscriptionStatus {
		return false
	}
	if f.HasCustomer != nil && (rec.StripeCustomerID != "") != *f.HasCustomer {
		return false
	}
	return true
}
