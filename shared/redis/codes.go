package redis

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// consumeScript deletes the key only when it holds the supplied code, so the
// compare and the delete happen as one server-side step.
var consumeScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// CodeKey is the Redis key holding the reset code issued for email.
func CodeKey(email string) string {
	return email + "_code"
}

// CodeStore reads and consumes password-reset verification codes. Codes are
// written, with their TTL, by whatever delivers them to the user; this store
// never sets or extends an expiry.
type CodeStore struct {
	client *goredis.Client
}

func NewCodeStore(client *goredis.Client) *CodeStore {
	return &CodeStore{client: client}
}

// Get returns the code currently issued for email. An expired or never-issued
// code reports ok=false.
func (s *CodeStore) Get(ctx context.Context, email string) (string, bool, error) {
	code, err := s.client.Get(ctx, CodeKey(email)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read verification code: %w", err)
	}
	return code, true, nil
}

// Consume deletes the code for email if and only if it equals code, and
// reports whether it did. A missing, expired or different code returns false
// and leaves the store unchanged.
func (s *CodeStore) Consume(ctx context.Context, email, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	n, err := consumeScript.Run(ctx, s.client, []string{CodeKey(email)}, code).Int()
	if err != nil {
		return false, fmt.Errorf("failed to consume verification code: %w", err)
	}
	return n == 1, nil
}
