package repository

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"github.com/NadafAyan/BloodShare/internal/domain"
)

const (
	redisSeqKey      = "bloodshare:donor:seq"
	redisIndexKey    = "bloodshare:donors"
	redisDonorPrefix = "bloodshare:donor:"
	redisContactKey  = "bloodshare:donor:contact:"
)

// insertScript refuses a taken contact key, then allocates the id and the
// store timestamp in one step. Returns {id, created_us} or {-1, 0}.
var insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
  return {-1, 0}
end
local id = redis.call('INCR', KEYS[1])
local t = redis.call('TIME')
local created = t[1] .. string.format('%06d', tonumber(t[2]))
local key = ARGV[1] .. id
redis.call('HSET', key, 'id', id, 'created_us', created, 'contact', KEYS[2], unpack(ARGV, 2))
redis.call('SET', KEYS[2], id)
redis.call('ZADD', KEYS[3], id, id)
return {id, created}
`)

// updateStatusScript is a compare-and-set on the status field. Returns 1 on
// success, 0 when the donor is missing and -1 on a status mismatch.
var updateStatusScript = redis.NewScript(`
local h = redis.call('HMGET', KEYS[1], 'status', 'contact', 'id')
if not h[1] then
  return 0
end
if h[1] ~= ARGV[1] then
  return -1
end
redis.call('HSET', KEYS[1], 'status', ARGV[2], 'decision_id', ARGV[4])
if ARGV[2] == ARGV[3] and h[2] and redis.call('GET', h[2]) == h[3] then
  redis.call('DEL', h[2])
end
return 1
`)

var deleteScript = redis.NewScript(`
local h = redis.call('HMGET', KEYS[1], 'contact', 'id')
if not h[2] then
  return 0
end
if h[1] and redis.call('GET', h[1]) == h[2] then
  redis.call('DEL', h[1])
end
redis.call('DEL', KEYS[1])
redis.call('ZREM', KEYS[2], ARGV[1])
return 1
`)

// RedisDonorRepository stores donors as Redis hashes. Uniqueness and status
// transitions are enforced by Lua scripts so they are atomic on the server.
// The scripts touch keys derived at run time, so the store needs a single
// Redis node rather than a cluster. Query reads the whole index and filters
// in process.
type RedisDonorRepository struct {
	client *redis.Client
}

func NewRedisDonorRepository(client *redis.Client) *RedisDonorRepository {
	return &RedisDonorRepository{client: client}
}

func (r *RedisDonorRepository) Insert(ctx context.Context, donor *domain.Donor) error {
	keys := []string{redisSeqKey, contactKey(donor), redisIndexKey}
	args := []any{
		redisDonorPrefix,
		"full_name", donor.FullName,
		"email", donor.Email,
		"phone", donor.Phone,
		"age", donor.Age,
		"blood_group", string(donor.BloodGroup),
		"city", donor.City,
		"address", donor.Address,
		"emergency_contact", donor.EmergencyContact,
		"medical_conditions", donor.MedicalConditions,
		"agree_to_terms", formatBool(donor.AgreeToTerms),
		"available_for_emergency", formatBool(donor.AvailableForEmergency),
		"status", string(donor.Status),
	}
	res, err := insertScript.Run(ctx, r.client, keys, args...).Int64Slice()
	if err != nil {
		return classifyRedis(err)
	}
	if len(res) != 2 {
		return fmt.Errorf("insert donor: unexpected script result %v", res)
	}
	if res[0] < 0 {
		return ErrDuplicate
	}
	donor.ID = res[0]
	donor.CreatedAt = time.UnixMicro(res[1]).UTC()
	return nil
}

func (r *RedisDonorRepository) Get(ctx context.Context, id int64) (*domain.Donor, error) {
	fields, err := r.client.HGetAll(ctx, donorKey(id)).Result()
	if err != nil {
		return nil, classifyRedis(err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return decodeDonor(fields)
}

func (r *RedisDonorRepository) Query(ctx context.Context, q Query) (DonorCursor, error) {
	q = q.Normalize()
	ids, err := r.client.ZRevRange(ctx, redisIndexKey, 0, -1).Result()
	if err != nil {
		return nil, classifyRedis(err)
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, redisDonorPrefix+id)
	}
	if len(cmds) > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, classifyRedis(err)
		}
	}

	matched := make([]domain.Donor, 0, len(cmds))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// deleted between the index read and the pipeline
			continue
		}
		donor, err := decodeDonor(fields)
		if err != nil {
			return nil, err
		}
		if q.Predicate.Match(donor) {
			matched = append(matched, *donor)
		}
	}
	return NewSliceCursor(page(sortNewestFirst(matched), q)), nil
}

func (r *RedisDonorRepository) UpdateStatus(ctx context.Context, id int64, expected, next domain.ApprovalStatus, decisionID string) error {
	res, err := updateStatusScript.Run(ctx, r.client, []string{donorKey(id)},
		string(expected), string(next), string(domain.ApprovalStatusRejected), decisionID).Int()
	if err != nil {
		return classifyRedis(err)
	}
	switch res {
	case 1:
		return nil
	case 0:
		return ErrNotFound
	default:
		return ErrConflict
	}
}

func (r *RedisDonorRepository) Delete(ctx context.Context, id int64) error {
	res, err := deleteScript.Run(ctx, r.client, []string{donorKey(id), redisIndexKey}, id).Int()
	if err != nil {
		return classifyRedis(err)
	}
	if res == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedisDonorRepository) Ping(ctx context.Context) error {
	return classifyRedis(r.client.Ping(ctx).Err())
}

func donorKey(id int64) string {
	return redisDonorPrefix + strconv.FormatInt(id, 10)
}

// contactKey hashes the email+phone pair so no contact data appears in key names.
func contactKey(donor *domain.Donor) string {
	sum := blake2b.Sum256([]byte(donor.ContactKey()))
	return redisContactKey + hex.EncodeToString(sum[:])
}

func decodeDonor(fields map[string]string) (*domain.Donor, error) {
	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode donor id: %w", err)
	}
	age, err := strconv.Atoi(fields["age"])
	if err != nil {
		return nil, fmt.Errorf("decode donor %d age: %w", id, err)
	}
	createdUS, err := strconv.ParseInt(fields["created_us"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode donor %d created_us: %w", id, err)
	}
	return &domain.Donor{
		ID:                    id,
		FullName:              fields["full_name"],
		Email:                 fields["email"],
		Phone:                 fields["phone"],
		Age:                   age,
		BloodGroup:            domain.BloodGroup(fields["blood_group"]),
		City:                  fields["city"],
		Address:               fields["address"],
		EmergencyContact:      fields["emergency_contact"],
		MedicalConditions:     fields["medical_conditions"],
		AgreeToTerms:          fields["agree_to_terms"] == "1",
		AvailableForEmergency: fields["available_for_emergency"] == "1",
		Status:                domain.ApprovalStatus(fields["status"]),
		DecisionID:            fields["decision_id"],
		CreatedAt:             time.UnixMicro(createdUS).UTC(),
	}, nil
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func classifyRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, redis.ErrClosed) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
