package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "db", "documents.db")
	blevePath := filepath.Join(dir, "indices", "bleve")
	vectorPath := filepath.Join(dir, "indices", "vectors.bin")

	write := func(path string, size int) {
		t.Helper()
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write(dbPath, 5)
	write(filepath.Join(blevePath, "store", "root.bolt"), 2)
	write(filepath.Join(blevePath, "index_meta.json"), 1)
	write(vectorPath, 4)

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"database file", []string{dbPath}, 5},
		{"index directory is walked", []string{blevePath}, 3},
		{"all storage paths", []string{dbPath, blevePath, vectorPath}, 12},
		{"missing vector file is skipped", []string{dbPath, filepath.Join(dir, "indices", "missing.bin"), blevePath}, 8},
		{"empty path is skipped", []string{"", dbPath}, 5},
		{"nothing", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("DiskUsageBytes() = %d, want %d", got, tt.want)
			}
		})
	}
}
