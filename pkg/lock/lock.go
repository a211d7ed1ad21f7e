// Package lock serialises read-modify-write sequences on a single academic
// record. Keys are built with Key so every backend agrees on naming.
package lock

import (
	"context"
	"strings"
)

// Release frees a held lock. It is safe to call more than once.
type Release func()

// Locker acquires exclusive ownership of a key.
type Locker interface {
	Acquire(ctx context.Context, key string) (Release, error)
}

// Key joins identifiers into a lock key, e.g. Key("semester-record", "stu-1", "sem-1").
func Key(parts ...string) string {
	return "lock:" + strings.Join(parts, ":")
}
