package presets

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestNewMemoryProduces(t *testing.T) {
	c := NewMemory("objects")
	body, err := c.GetOrCreate(context.Background(), "k", func(context.Context) ([]byte, error) {
		return []byte("v"), nil
	})
	if err != nil || string(body) != "v" {
		t.Fatalf("get-or-create: %q err %v", body, err)
	}
}

func TestNewRedisProduces(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	t.Cleanup(mr.Close)

	c := NewRedis("objects", RedisOptions{Addr: mr.Addr()})
	body, err := c.GetOrCreate(context.Background(), "k", func(context.Context) ([]byte, error) {
		return []byte("v"), nil
	})
	if err != nil || string(body) != "v" {
		t.Fatalf("get-or-create: %q err %v", body, err)
	}

	// Second call is served from the persisted object.
	body, err = c.GetOrCreate(context.Background(), "k", func(context.Context) ([]byte, error) {
		t.Error("create ran twice")
		return nil, nil
	})
	if err != nil || string(body) != "v" {
		t.Fatalf("second get-or-create: %q err %v", body, err)
	}
}

func TestNewSQLiteProduces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lease.db")

	c, err := NewSQLite("objects", SQLiteOptions{Path: path})
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	body, err := c.GetOrCreate(context.Background(), "k", func(context.Context) ([]byte, error) {
		return []byte("v"), nil
	})
	if err != nil || string(body) != "v" {
		t.Fatalf("get-or-create: %q err %v", body, err)
	}

	// A second cache over the same file sees the persisted object.
	c2, err := NewSQLite("objects", SQLiteOptions{Path: path})
	if err != nil {
		t.Fatalf("reopen sqlite: %v", err)
	}
	body, err = c2.GetOrCreate(context.Background(), "k", func(context.Context) ([]byte, error) {
		t.Error("create ran twice")
		return nil, nil
	})
	if err != nil || string(body) != "v" {
		t.Fatalf("second get-or-create: %q err %v", body, err)
	}
}
