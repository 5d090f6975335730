package storage

// Package storage persists alarm records so they survive restarts.
//
// The in-memory alarm store stays the source of truth; records here are
// a write-through copy rebuilt wholesale on startup.
