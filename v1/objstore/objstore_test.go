package objstore

import (
	"context"
	"errors"
	"testing"
)

// testStoreContract exercises the conditional-write semantics every Store
// implementation must provide.
func testStoreContract(t *testing.T, s Store, bucket string) {
	t.Helper()
	ctx := context.Background()

	if _, _, err := s.Get(ctx, bucket, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get missing: want ErrNotFound, got %v", err)
	}
	if ok, err := s.Head(ctx, bucket, "missing"); err != nil || ok {
		t.Fatalf("head missing: ok %v err %v", ok, err)
	}

	// A version issued for another key can never match, so a conditional
	// write against a missing key must fail the precondition.
	seedVer, err := s.Put(ctx, bucket, "seed", []byte("seed"), CreateOnly())
	if err != nil {
		t.Fatalf("seed create: %v", err)
	}
	if _, err := s.Put(ctx, bucket, "k", []byte("v1"), MatchVersion(seedVer)); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("match on missing key: want ErrPreconditionFailed, got %v", err)
	}

	v1, err := s.Put(ctx, bucket, "k", []byte("v1"), CreateOnly())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if v1 == "" {
		t.Fatal("create returned empty version")
	}
	if _, err := s.Put(ctx, bucket, "k", []byte("v2"), CreateOnly()); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("second create: want ErrPreconditionFailed, got %v", err)
	}

	body, ver, err := s.Get(ctx, bucket, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(body) != "v1" {
		t.Fatalf("get body: want v1, got %q", body)
	}
	if ver != v1 {
		t.Fatalf("get version: want %q, got %q", v1, ver)
	}
	if ok, err := s.Head(ctx, bucket, "k"); err != nil || !ok {
		t.Fatalf("head existing: ok %v err %v", ok, err)
	}

	v2, err := s.Put(ctx, bucket, "k", []byte("v2"), MatchVersion(v1))
	if err != nil {
		t.Fatalf("match current: %v", err)
	}
	if v2 == v1 {
		t.Fatal("match write did not produce a new version")
	}
	if _, err := s.Put(ctx, bucket, "k", []byte("v3"), MatchVersion(v1)); !errors.Is(err, ErrPreconditionFailed) {
		t.Fatalf("match stale: want ErrPreconditionFailed, got %v", err)
	}

	v3, err := s.Put(ctx, bucket, "k", []byte("v3"), Condition{})
	if err != nil {
		t.Fatalf("unconditional put: %v", err)
	}
	body, ver, err = s.Get(ctx, bucket, "k")
	if err != nil || string(body) != "v3" || ver != v3 {
		t.Fatalf("get after unconditional put: body %q ver %q err %v", body, ver, err)
	}
}

func TestMemoryStoreContract(t *testing.T) {
	testStoreContract(t, NewMemoryStore(), "locks")
}

func TestMemoryStoreBucketsAreIsolated(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if _, err := s.Put(ctx, "a", "k", []byte("x"), CreateOnly()); err != nil {
		t.Fatalf("create in a: %v", err)
	}
	if _, err := s.Put(ctx, "b", "k", []byte("y"), CreateOnly()); err != nil {
		t.Fatalf("create in b: %v", err)
	}
	body, _, err := s.Get(ctx, "a", "k")
	if err != nil || string(body) != "x" {
		t.Fatalf("get a/k: body %q err %v", body, err)
	}
}

func TestMemoryStoreCopiesBodies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	in := []byte("abc")
	if _, err := s.Put(ctx, "locks", "k", in, Condition{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	in[0] = 'z'
	body, _, err := s.Get(ctx, "locks", "k")
	if err != nil || string(body) != "abc" {
		t.Fatalf("stored body aliased caller slice: %q err %v", body, err)
	}
	body[0] = 'z'
	again, _, _ := s.Get(ctx, "locks", "k")
	if string(again) != "abc" {
		t.Fatalf("returned body aliased stored slice: %q", again)
	}
}
