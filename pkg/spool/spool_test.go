package spool

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "spool-test-")
	if err != nil {
		panic(err)
	}
	os.Setenv("ENERGY_COLLECTORS_DATA_DIR", dir)
	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

// applySchema creates the spool schema straight from the embedded
// migration so the tests do not depend on migration bookkeeping.
func applySchema(t *testing.T) {
	t.Helper()
	schema, err := migrationFS.ReadFile("migrations/0001_create_spool.up.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	db := GetDB()
	for _, stmt := range strings.Split(string(schema), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	if _, err := db.Exec("DELETE FROM spooled_points"); err != nil {
		t.Fatalf("clear spool: %v", err)
	}
}

func TestEnqueueDrainOrder(t *testing.T) {
	applySchema(t)

	for _, line := range []string{"first", "second", "third"} {
		if err := Enqueue("pv_realtime", line); err != nil {
			t.Fatalf("Enqueue() err=%v", err)
		}
	}
	if err := Enqueue("power_realtime", "other bucket"); err != nil {
		t.Fatalf("Enqueue() err=%v", err)
	}

	var drained []string
	err := Drain("pv_realtime", func(line string) error {
		drained = append(drained, line)
		return nil
	})
	if err != nil {
		t.Fatalf("Drain() err=%v", err)
	}
	if strings.Join(drained, ",") != "first,second,third" {
		t.Errorf("drained %v, want queue order", drained)
	}

	if n, err := Count("pv_realtime"); err != nil || n != 0 {
		t.Errorf("Count after drain = %d (err=%v), want 0", n, err)
	}
	if n, err := Count("power_realtime"); err != nil || n != 1 {
		t.Errorf("other bucket count = %d (err=%v), want 1", n, err)
	}
}

func TestDrainStopsAtFirstFailure(t *testing.T) {
	applySchema(t)

	for _, line := range []string{"one", "two", "three"} {
		if err := Enqueue("pv_realtime", line); err != nil {
			t.Fatalf("Enqueue() err=%v", err)
		}
	}

	sinkDown := errors.New("sink down")
	calls := 0
	err := Drain("pv_realtime", func(line string) error {
		calls++
		if calls == 2 {
			return sinkDown
		}
		return nil
	})
	if !errors.Is(err, sinkDown) {
		t.Fatalf("Drain() err=%v, want the sink error", err)
	}

	// The failed record and everything behind it stay queued.
	if n, _ := Count("pv_realtime"); n != 2 {
		t.Fatalf("remaining = %d, want 2", n)
	}
	var resumed []string
	if err := Drain("pv_realtime", func(line string) error {
		resumed = append(resumed, line)
		return nil
	}); err != nil {
		t.Fatalf("Drain() retry err=%v", err)
	}
	if strings.Join(resumed, ",") != "two,three" {
		t.Errorf("resumed with %v, want the failed record first", resumed)
	}
}
