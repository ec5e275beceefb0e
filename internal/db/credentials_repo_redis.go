package db

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/playarena/arena-gateway/internal/gwerrors"
	"github.com/playarena/arena-gateway/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	credentialsPrefix      string = "credentials"
	credentialsExpiryIndex string = "credentialsExpiry"
)

// GetCredentials reads the credential pair stored for the given ID, decrypting it if necessary.
// A missing pair is not an error, nil is returned instead.
func (r RedisAdapter) GetCredentials(ctx context.Context, id string) (*models.CredentialPair, error) {
	raw, err := r.rdb.HGetAll(ctx, r.credentialsKey(id)).Result()
	if err != nil {
		return nil, err
	}
	pair := models.CredentialPair{}
	err = r.deserializeToStruct(raw, &pair)
	if err != nil {
		if err == gwerrors.ErrMissingDBResource {
			return nil, nil
		}
		return nil, err
	}
	decPair, err := pair.Decrypt(r.encryptor)
	if err != nil {
		return nil, err
	}
	return &decPair, nil
}

// SetCredentials writes both tokens with a single HSET so that readers never see a
// partially updated pair. The access token expiry is indexed for the scheduled refresher.
func (r RedisAdapter) SetCredentials(ctx context.Context, id string, pair models.CredentialPair) error {
	if !pair.Valid() {
		return fmt.Errorf("cannot save an incomplete credential pair")
	}
	encPair, err := pair.Encrypt(r.encryptor)
	if err != nil {
		return err
	}
	slog.Debug(
		"CREDENTIALS REPOSITORY",
		"message",
		"saving credentials",
		"id",
		id,
		"credentials",
		pair,
	)
	err = r.rdb.HSet(ctx, r.credentialsKey(id), r.serializeStruct(encPair)...).Err()
	if err != nil {
		return err
	}
	var score float64
	if expiresAt, ok := pair.AccessTokenExpiry(); ok {
		score = float64(expiresAt.Unix())
	}
	return r.rdb.ZAdd(ctx, credentialsExpiryIndex, redis.Z{Score: score, Member: id}).Err()
}

// RemoveCredentials deletes the pair and its expiry index entry, removing a missing pair is not an error.
func (r RedisAdapter) RemoveCredentials(ctx context.Context, id string) error {
	err := r.rdb.Del(ctx, r.credentialsKey(id)).Err()
	if err != nil {
		return err
	}
	return r.rdb.ZRem(ctx, credentialsExpiryIndex, id).Err()
}

// GetExpiringCredentialIDs lists the IDs of credentials whose access token expires before expiryEnd.
// Pairs with opaque access tokens have no known expiry and are never listed.
func (r RedisAdapter) GetExpiringCredentialIDs(ctx context.Context, expiryEnd time.Time) ([]string, error) {
	return r.rdb.ZRangeArgs(ctx, redis.ZRangeArgs{
		Key:     credentialsExpiryIndex,
		Start:   "1",
		Stop:    strconv.FormatInt(expiryEnd.Unix(), 10),
		ByScore: true,
	}).Result()
}

func (RedisAdapter) credentialsKey(id string) string {
	return credentialsPrefix + ":" + id
}
