package objstore

import (
	"context"
	"os"
	"testing"

	"github.com/nats-io/nats-server/v2/server"
	natsserver "github.com/nats-io/nats-server/v2/test"
	nats "github.com/nats-io/nats.go"
)

func newNATSStore(t *testing.T) *NATSStore {
	t.Helper()
	addr := os.Getenv("LEASE_TEST_NATS_ADDR")
	forceReal := os.Getenv("LEASE_TEST_FORCE_REAL") == "true"

	if forceReal && addr == "" {
		t.Fatal("LEASE_TEST_FORCE_REAL is true but LEASE_TEST_NATS_ADDR is empty")
	}

	var conn *nats.Conn
	var s *server.Server
	var err error

	if addr != "" {
		t.Logf("TestNATSStore: using real NATS at %s", addr)
		conn, err = nats.Connect(addr)
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
	} else {
		t.Log("TestNATSStore: using embedded NATS server")
		opts := natsserver.DefaultTestOptions
		opts.Port = -1
		opts.JetStream = true
		opts.StoreDir = t.TempDir()
		s = natsserver.RunServer(&opts)
		conn, err = nats.Connect(s.ClientURL())
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
	}

	store, err := NewNATSStore(conn)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		if s != nil {
			s.Shutdown()
		}
	})
	return store
}

func TestNATSStoreContract(t *testing.T) {
	testStoreContract(t, newNATSStore(t), "locks")
}

func TestNATSStoreCreatesBucketOnDemand(t *testing.T) {
	s := newNATSStore(t)
	ctx := context.Background()

	if _, err := s.Put(ctx, "fresh-bucket", "k", []byte("v"), CreateOnly()); err != nil {
		t.Fatalf("create in fresh bucket: %v", err)
	}
	body, _, err := s.Get(ctx, "fresh-bucket", "k")
	if err != nil || string(body) != "v" {
		t.Fatalf("get after create: body %q err %v", body, err)
	}
}

func TestNATSStoreVersionsAreRevisions(t *testing.T) {
	s := newNATSStore(t)
	ctx := context.Background()

	v1, err := s.Put(ctx, "locks", "rev", []byte("a"), CreateOnly())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	v2, err := s.Put(ctx, "locks", "rev", []byte("b"), MatchVersion(v1))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if v1 == v2 {
		t.Fatalf("expected revision to advance, got %q twice", v1)
	}
}
