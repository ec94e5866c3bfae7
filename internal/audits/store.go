package audits

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/inspeksi/audit-dashboard/internal/shared"
)

// DefaultLockTTL membatasi umur lock pemuatan bila proses pemegangnya mati.
const DefaultLockTTL = 2 * time.Minute

// RedisStore menyimpan State per sesi dan lock pemuatan di Redis.
type RedisStore struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

// NewRedisStore membuat store dengan masa berlaku state ttl.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, lockTTL: DefaultLockTTL}
}

// Load mengambil state sesi. found bernilai false bila belum pernah dimuat.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (State, bool, error) {
	payload, err := s.client.Get(ctx, shared.AuditStateKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("audits: load state: %w", err)
	}
	var st State
	if err := json.Unmarshal(payload, &st); err != nil {
		return State{}, false, fmt.Errorf("audits: decode state: %w", err)
	}
	return st, true, nil
}

// Save menyimpan state sesi.
func (s *RedisStore) Save(ctx context.Context, sessionID string, st State) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, shared.AuditStateKey(sessionID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("audits: save state: %w", err)
	}
	return nil
}

// Delete menghapus state sesi sehingga permintaan berikutnya memuat ulang.
func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, shared.AuditStateKey(sessionID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("audits: delete state: %w", err)
	}
	return nil
}

// releaseScript menghapus lock hanya bila nilainya masih token pemiliknya.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TryLock mengambil lock pemuatan sesi. ok bernilai false bila pemuatan lain
// sedang berjalan; release harus dipanggil setelah pemuatan selesai. Lock yang
// sudah kedaluwarsa dan diambil pemuat lain tidak ikut terhapus oleh release.
func (s *RedisStore) TryLock(ctx context.Context, sessionID string) (release func(), ok bool, err error) {
	key := shared.AuditLoadLockKey(sessionID)
	token := uuid.NewString()
	ok, err = s.client.SetNX(ctx, key, token, s.lockTTL).Result()
	if err != nil {
		return nil, false, fmt.Errorf("audits: acquire load lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	release = func() {
		_ = releaseScript.Run(context.WithoutCancel(ctx), s.client, []string{key}, token).Err()
	}
	return release, true, nil
}
