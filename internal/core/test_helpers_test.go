package core

import (
	"testing"
	"time"

	"growcore/pkg/domain"
)

// timePtr is a lightweight helper for pointer fields in core package tests.
func timePtr(v time.Time) *time.Time {
	return &v
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := domain.ParseDate(value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return parsed
}

func mustChangePayload[T any](t *testing.T, value T) domain.ChangePayload {
	t.Helper()
	payload, err := domain.NewChangePayloadFromValue(value)
	if err != nil {
		t.Fatalf("build change payload: %v", err)
	}
	return payload
}

// newSeededService builds a service over an in-memory store carrying the
// starter scheme, so operations guarded by the default rules succeed.
func newSeededService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	store := NewMemoryStore(NewDefaultRulesEngine())
	if err := seedStarterState(store); err != nil {
		t.Fatalf("seed starter state: %v", err)
	}
	return NewService(store, opts...)
}
