package fsys

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStoreStatFileAndDirectory(t *testing.T) {
	store, root := newTestStore(t)
	modTime := time.Now().Add(-time.Hour).Truncate(time.Second)
	file := writeFile(t, root, "a.txt", "payload")
	if err := os.Chtimes(file, modTime, modTime); err != nil {
		t.Fatalf("chtimes error: %v", err)
	}

	meta, err := store.Stat(context.Background(), file)
	if err != nil {
		t.Fatalf("stat error: %v", err)
	}
	if !meta.IsFile || meta.IsDir {
		t.Fatalf("expected regular file metadata, got %+v", meta)
	}
	if meta.Size != int64(len("payload")) {
		t.Fatalf("size mismatch: %d", meta.Size)
	}
	if !meta.ModTime.Equal(modTime) {
		t.Fatalf("modtime mismatch: expected %v got %v", modTime, meta.ModTime)
	}

	meta, err = store.Stat(context.Background(), root)
	if err != nil {
		t.Fatalf("stat root error: %v", err)
	}
	if !meta.IsDir || meta.IsFile {
		t.Fatalf("expected directory metadata, got %+v", meta)
	}
}

func TestStoreStatMissing(t *testing.T) {
	store, root := newTestStore(t)
	_, err := store.Stat(context.Background(), filepath.Join(root, "missing"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreRejectsPathsOutsideRoot(t *testing.T) {
	store, root := newTestStore(t)
	outside := filepath.Join(filepath.Dir(root), "elsewhere")
	if _, err := store.Stat(context.Background(), outside); !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("expected ErrOutsideRoot, got %v", err)
	}
	if _, err := store.Open(context.Background(), filepath.Join(root, "..", "x"), 0, 0); !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("expected ErrOutsideRoot for traversal, got %v", err)
	}
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	store, root := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := store.Stat(ctx, root); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStoreOpenSpan(t *testing.T) {
	store, root := newTestStore(t)
	file := writeFile(t, root, "digits.txt", "0123456789")

	testCases := []struct {
		name       string
		start, end int64
		want       string
	}{
		{"whole file", 0, 9, "0123456789"},
		{"middle", 2, 5, "2345"},
		{"single byte", 9, 9, "9"},
		{"empty span", 0, -1, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rc, err := store.Open(context.Background(), file, tc.start, tc.end)
			if err != nil {
				t.Fatalf("open error: %v", err)
			}
			defer rc.Close()
			body, err := io.ReadAll(rc)
			if err != nil {
				t.Fatalf("read error: %v", err)
			}
			if string(body) != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, string(body))
			}
		})
	}
}

func TestStoreOpenCloseIsIdempotent(t *testing.T) {
	store, root := newTestStore(t)
	file := writeFile(t, root, "a.txt", "abc")
	rc, err := store.Open(context.Background(), file, 0, 2)
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	if err := rc.Close(); err != nil {
		t.Fatalf("first close error: %v", err)
	}
	if err := rc.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got %v", err)
	}
}

func TestStoreReadDirKeepsEnumerationOrder(t *testing.T) {
	store, root := newTestStore(t)
	writeFile(t, root, "b.png", "png")
	writeFile(t, root, "a.txt", "txt")
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir error: %v", err)
	}

	entries, err := store.ReadDir(context.Background(), root)
	if err != nil {
		t.Fatalf("readdir error: %v", err)
	}

	want := enumerate(t, root)
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, entry := range entries {
		if entry.Name != want[i] {
			t.Fatalf("entry %d: expected %s, got %s", i, want[i], entry.Name)
		}
		if entry.IsDir != (entry.Name == "sub") {
			t.Fatalf("entry %s has wrong IsDir flag", entry.Name)
		}
	}
}

func TestNewStoreRejectsFileRoot(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, dir, "plain.txt", "x")
	if _, err := NewStore(file); err == nil {
		t.Fatalf("expected error for non-directory root")
	}
}

// newTestStore returns a Store backed by a temporary directory.
func newTestStore(t *testing.T) (Store, string) {
	t.Helper()
	root := t.TempDir()
	store, err := NewStore(root)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store, root
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// enumerate reads the directory the same way the store does, so the expected
// order is whatever the underlying filesystem yields.
func enumerate(t *testing.T, dir string) []string {
	t.Helper()
	f, err := os.Open(dir)
	if err != nil {
		t.Fatalf("open dir: %v", err)
	}
	defer f.Close()
	names, err := f.Readdirnames(-1)
	if err != nil {
		t.Fatalf("readdirnames: %v", err)
	}
	return names
}

func TestStoreRejectsSymlinkEscapingRoot(t *testing.T) {
	store, root := newTestStore(t)
	secret := writeFile(t, t.TempDir(), "secret.txt", "TOPSECRET")
	link := filepath.Join(root, "link.txt")
	if err := os.Symlink(secret, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	if _, err := store.Stat(context.Background(), link); !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("expected ErrOutsideRoot for stat, got %v", err)
	}
	if _, err := store.Open(context.Background(), link, 0, 8); !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("expected ErrOutsideRoot for open, got %v", err)
	}

	outsideDir := t.TempDir()
	dirLink := filepath.Join(root, "elsewhere")
	if err := os.Symlink(outsideDir, dirLink); err != nil {
		t.Fatalf("symlink dir: %v", err)
	}
	if _, err := store.ReadDir(context.Background(), dirLink); !errors.Is(err, ErrOutsideRoot) {
		t.Fatalf("expected ErrOutsideRoot for readdir, got %v", err)
	}
}

func TestStoreFollowsSymlinkInsideRoot(t *testing.T) {
	store, root := newTestStore(t)
	writeFile(t, root, "target.txt", "inside")
	link := filepath.Join(root, "alias.txt")
	if err := os.Symlink("target.txt", link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	meta, err := store.Stat(context.Background(), link)
	if err != nil {
		t.Fatalf("stat error: %v", err)
	}
	if !meta.IsFile || meta.Size != int64(len("inside")) {
		t.Fatalf("unexpected metadata %+v", meta)
	}

	rc, err := store.Open(context.Background(), link, 0, meta.Size-1)
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil || string(data) != "inside" {
		t.Fatalf("unexpected content %q (err=%v)", data, err)
	}
}

func TestStoreFollowsSymlinkedRoot(t *testing.T) {
	targetDir := t.TempDir()
	writeFile(t, targetDir, "a.txt", "x")
	linkRoot := filepath.Join(t.TempDir(), "root-link")
	if err := os.Symlink(targetDir, linkRoot); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	store, err := NewStore(linkRoot)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if _, err := store.Stat(context.Background(), filepath.Join(linkRoot, "a.txt")); err != nil {
		t.Fatalf("files under a symlinked root must be served: %v", err)
	}
}
