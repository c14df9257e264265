package ports

import "context"

// UserLocker serializes writes for a single user. The returned func releases
// the lock and is safe to call once.
type UserLocker interface {
	Lock(ctx context.Context, userID string) (unlock func(), err error)
}
