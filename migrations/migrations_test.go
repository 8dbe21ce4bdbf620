package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(sqlFS, "sql")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Fatalf("unexpected file in migrations: %s", name)
		}
	}

	if len(ups) != 3 {
		t.Fatalf("expected 3 up migrations, got %d", len(ups))
	}
	for name := range ups {
		if !downs[name] {
			t.Fatalf("missing down migration for %s", name)
		}
	}
}

func TestDownRejectsNonPositiveSteps(t *testing.T) {
	if err := Down(nil, 0); err == nil {
		t.Fatal("expected error for zero steps")
	}
}
