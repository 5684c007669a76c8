package ports

import (
	"context"
	"errors"
	"time"
)

// ErrLockNotAcquired is returned when a document lock could not be taken
// for a reason other than the caller's context ending.
var ErrLockNotAcquired = errors.New("failed to acquire distributed lock")

// UnlockFunc releases a lock taken by a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes commands on one document across replicas
// sharing a store. Lock blocks until the key is free or ctx is done; the
// lock expires after ttl if its holder never calls the returned UnlockFunc.
type DistributedLocker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

// LockerFunc adapts a function to DistributedLocker.
type LockerFunc func(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)

// Lock calls f.
func (f LockerFunc) Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error) {
	return f(ctx, key, ttl)
}

// DocumentLockKey is the lock key guarding documentID.
func DocumentLockKey(documentID string) string {
	return "document:" + documentID
}
