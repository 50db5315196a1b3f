package privsvc

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSameBinary_DetectsDifference(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")

	if err := os.WriteFile(a, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b, []byte("v1-but-different-mtime"), 0o644); err != nil {
		t.Fatal(err)
	}

	same, err := sameBinary(a, b)
	if err != nil {
		t.Fatalf("sameBinary: %v", err)
	}
	if same {
		t.Error("expected different size/mtime files to be reported as not same")
	}
}

func TestSameBinary_MissingPrivateCopyIsNotSame(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	if err := os.WriteFile(a, []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}

	same, err := sameBinary(a, filepath.Join(dir, "does-not-exist"))
	if err != nil {
		t.Fatalf("sameBinary: %v", err)
	}
	if same {
		t.Error("expected a missing private copy to be reported as not same")
	}
}

func TestCopyFile_PreservesContentAndModTime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "nested", "dst")

	if err := os.WriteFile(src, []byte("payload"), 0o755); err != nil {
		t.Fatal(err)
	}
	mtime := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(src, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	if err := copyFile(src, dst); err != nil {
		t.Fatalf("copyFile: %v", err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != "payload" {
		t.Errorf("content = %q, want %q", got, "payload")
	}

	same, err := sameBinary(src, dst)
	if err != nil {
		t.Fatalf("sameBinary: %v", err)
	}
	if !same {
		t.Error("expected copied file to compare equal to its source")
	}
}
