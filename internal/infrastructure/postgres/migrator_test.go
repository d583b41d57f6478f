package postgres

import (
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationsKeepFullDecimalScale(t *testing.T) {
	files, err := fs.Glob(Migrations, "migrations/*.up.sql")
	if err != nil || len(files) == 0 {
		t.Fatalf("expected embedded up migrations, got %v (%v)", files, err)
	}

	for _, name := range files {
		body, err := fs.ReadFile(Migrations, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if strings.Contains(strings.ToUpper(string(body)), "NUMERIC(") {
			t.Fatalf("%s declares a fixed-scale NUMERIC column; amounts must keep their full scale", name)
		}
	}
}
