// Package clock abstracts the time operations the scheduler depends on.
//
// Production code uses [Real]; tests use [Fake] and move time forward
// explicitly with [FakeClock.Advance], which fires due timers synchronously
// and in deadline order. This makes tick scheduling, deferred resumes and
// motion completion deterministic under test.
package clock
