// Package lock implements page-level two-phase locking.
//
// A transaction takes a shared lock to read a page and an exclusive lock to
// write it. Locks are held until the transaction completes, at which point the
// buffer pool releases all of them at once through [Manager.UnlockAllPages].
//
// A shared holder may upgrade to exclusive when it is the only holder of the
// page. A request that cannot be granted is retried every retry interval until
// the timeout elapses. Waiters are also recorded in a wait-for
// [DependencyGraph]; a request that would close a cycle fails at once instead
// of sleeping out its timeout. Both failures carry the LOCK_WAIT_FAILURE code.
package lock
