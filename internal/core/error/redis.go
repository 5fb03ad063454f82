package errx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// WrapRedis tags a failed history operation. A missing key is reported as
// ErrNotFound (404); anything else means the store is unavailable (502).
func WrapRedis(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, redis.Nil) {
		return New(fmt.Errorf("%w: redis %s: %w", ErrNotFound, op, err), http.StatusNotFound, RedisNotFoundMessage)
	}

	return New(fmt.Errorf("redis %s: %w", op, err), http.StatusBadGateway, RedisErrorMessage)
}
