// Package storage persists dedup windows so a restarted process keeps
// suppressing duplicates it already delivered.
package storage
