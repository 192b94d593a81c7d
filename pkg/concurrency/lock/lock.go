package lock

type LockType int

const (
	SharedLock LockType = iota
	ExclusiveLock
)

func (lt LockType) String() string {
	if lt == ExclusiveLock {
		return "exclusive"
	}
	return "shared"
}

// covers reports whether holding lt satisfies a request for want.
func (lt LockType) covers(want LockType) bool {
	return lt == ExclusiveLock || want == SharedLock
}
