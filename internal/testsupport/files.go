package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, CSVBytes(int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// CSVBytes returns exactly size bytes of CSV-looking content.
func CSVBytes(size int) []byte {
	const row = "account,message\nAccount_001,hello\n"
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = row[i%len(row)]
	}
	return buf
}
