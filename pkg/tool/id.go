package tool

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateUUIDV7 returns a time-ordered UUID string, used for every primary key.
func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// IdempotencyKey joins scope and parts into a provider idempotency key, e.g.
// IdempotencyKey("connect-account", tenantID). Retrying the same logical
// request must produce the same key.
func IdempotencyKey(scope string, parts ...string) string {
	return strings.Join(append([]string{scope}, parts...), "-")
}
