// Package expiration holds the single definition of "expired" shared by the
// access path and the sweeper, so both always agree on which entries are
// still alive.
package expiration
