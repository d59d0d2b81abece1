package sizefs

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustMkdir(t *testing.T, fs *FS, path string) {
	t.Helper()
	if err := fs.Mkdir(path); err != nil {
		t.Fatalf("Mkdir(%q): %v", path, err)
	}
}

func mustSetxattr(t *testing.T, fs *FS, path, name, value string) {
	t.Helper()
	if err := fs.Setxattr(path, name, value); err != nil {
		t.Fatalf("Setxattr(%q, %q, %q): %v", path, name, value, err)
	}
}

// TestSeededDefaultGenerators exercises scenarios 1 and 2 of spec.md §8.
func TestSeededDefaultGenerators(t *testing.T) {
	fs, err := NewSeeded()
	if err != nil {
		t.Fatalf("NewSeeded: %v", err)
	}

	got, ferr := fs.Read("/zeros/5B", 5, 0)
	if ferr != nil {
		t.Fatalf("Read /zeros/5B: %v", ferr)
	}
	if want := []byte("00000"); !bytes.Equal(got, want) {
		t.Errorf("/zeros/5B = %q, want %q", got, want)
	}

	got, ferr = fs.Read("/ones/5B", 5, 0)
	if ferr != nil {
		t.Fatalf("Read /ones/5B: %v", ferr)
	}
	if want := []byte("11111"); !bytes.Equal(got, want) {
		t.Errorf("/ones/5B = %q, want %q", got, want)
	}
}

// TestAlphaNumCharacterClass exercises scenario 7: every byte of an
// alpha_num read belongs to [A-Za-z0-9], and the read has the requested
// length.
func TestAlphaNumCharacterClass(t *testing.T) {
	fs, err := NewSeeded()
	if err != nil {
		t.Fatalf("NewSeeded: %v", err)
	}
	got, ferr := fs.Read("/alpha_num/128K", 128000, 0)
	if ferr != nil {
		t.Fatalf("Read: %v", ferr)
	}
	if len(got) != 128000 {
		t.Fatalf("len(got) = %d, want 128000", len(got))
	}
	for _, b := range got {
		isAlnum := (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
		if !isAlnum {
			t.Fatalf("byte %q is not alphanumeric", b)
		}
	}
}

// TestRegexDirectoryViaSetxattr exercises scenario 8: creating a directory,
// switching its generator to regex, and setting a filler pattern.
func TestRegexDirectoryViaSetxattr(t *testing.T) {
	fs := New()
	mustMkdir(t, fs, "/regex1")
	mustSetxattr(t, fs, "/regex1", "generator", "regex")
	mustSetxattr(t, fs, "/regex1", "filler", "a{2}b{2}c")

	got, ferr := fs.Read("/regex1/5B", 5, 0)
	if ferr != nil {
		t.Fatalf("Read: %v", ferr)
	}
	if want := []byte("aabbc"); !bytes.Equal(got, want) {
		t.Errorf("Read = %q, want %q", got, want)
	}
}

// TestReadAutoCreatesWithinExistingDirectory covers the resolved open
// question in spec.md §9: read may lazily create iff the parent directory
// exists and the basename parses as a size.
func TestReadAutoCreatesWithinExistingDirectory(t *testing.T) {
	fs := New()
	mustMkdir(t, fs, "/d")
	if _, ferr := fs.Read("/d/10B", 10, 0); ferr != nil {
		t.Fatalf("Read: %v", ferr)
	}
	if _, ferr := fs.Getattr("/d/10B"); ferr != nil {
		t.Fatalf("file was not lazily created: %v", ferr)
	}

	if _, ferr := fs.Read("/missing/10B", 10, 0); ferr == nil || ferr.Kind != KindNotFound {
		t.Fatalf("Read into missing dir = %v, want NotFound", ferr)
	}
}

// TestReadLengthInvariant is universal property 1: a full read always
// returns exactly the requested size within bounds, and a tail read returns
// exactly what's left.
func TestReadLengthInvariant(t *testing.T) {
	fs, err := NewSeeded()
	if err != nil {
		t.Fatalf("NewSeeded: %v", err)
	}
	got, ferr := fs.Read("/zeros/100K", 50, 90)
	if ferr != nil {
		t.Fatalf("Read: %v", ferr)
	}
	if len(got) != 50 {
		t.Fatalf("len = %d, want 50", len(got))
	}

	// Tail read: requesting past the end returns only what's left.
	got, ferr = fs.Read("/zeros/100K", 1000, 99_999)
	if ferr != nil {
		t.Fatalf("Read: %v", ferr)
	}
	if len(got) != 1 {
		t.Fatalf("tail read len = %d, want 1", len(got))
	}
}

// TestSetxattrPropagatesToChildren is universal property 6.
func TestSetxattrPropagatesToChildren(t *testing.T) {
	fs := New()
	mustMkdir(t, fs, "/d")
	mustSetxattr(t, fs, "/d", "generator", "regex")
	if _, ferr := fs.Create("/d/10B"); ferr != nil {
		t.Fatalf("Create: %v", ferr)
	}
	mustSetxattr(t, fs, "/d", "filler", "x")

	got, ferr := fs.Getxattr("/d/10B", "filler")
	if ferr != nil {
		t.Fatalf("Getxattr: %v", ferr)
	}
	if got != "x" {
		t.Errorf("child filler = %q, want %q", got, "x")
	}
}

// TestIdempotentSetxattrLeavesMtimeUnchanged is universal property 5.
func TestIdempotentSetxattrLeavesMtimeUnchanged(t *testing.T) {
	fs := New()
	mustMkdir(t, fs, "/d")
	mustSetxattr(t, fs, "/d", "generator", "ones")
	before, ferr := fs.Getattr("/d")
	if ferr != nil {
		t.Fatalf("Getattr: %v", ferr)
	}
	mustSetxattr(t, fs, "/d", "generator", "ones")
	after, ferr := fs.Getattr("/d")
	if ferr != nil {
		t.Fatalf("Getattr: %v", ferr)
	}
	if before.Mtime != after.Mtime {
		t.Errorf("mtime changed on idempotent setxattr: %v -> %v", before.Mtime, after.Mtime)
	}
}

// TestXattrCanonicalization exercises §4.7's single canonicalization rule.
func TestXattrCanonicalization(t *testing.T) {
	fs := New()
	mustMkdir(t, fs, "/d")
	mustSetxattr(t, fs, "/d", "generator", "zeros")

	got, ferr := fs.Getxattr("/d", "user.generator")
	if ferr != nil {
		t.Fatalf("Getxattr user.generator: %v", ferr)
	}
	if got != "zeros" {
		t.Errorf("user.generator = %q, want zeros", got)
	}

	if ferr := fs.Setxattr("/d", "com.apple.quarantine", "0"); ferr != nil {
		t.Fatalf("Setxattr: %v", ferr)
	}
	names, ferr := fs.Listxattr("/d")
	if ferr != nil {
		t.Fatalf("Listxattr: %v", ferr)
	}
	want := []string{"com.apple.quarantine", "user.generator"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("Listxattr mismatch (-want +got):\n%s", diff)
	}
}

// TestFileRenameAlwaysRejected covers the settled open question in
// spec.md §9.
func TestFileRenameAlwaysRejected(t *testing.T) {
	fs := New()
	mustMkdir(t, fs, "/d")
	if _, ferr := fs.Create("/d/10B"); ferr != nil {
		t.Fatalf("Create: %v", ferr)
	}
	if ferr := fs.Rename("/d/10B", "/d/20B"); ferr == nil || ferr.Kind != KindPermissionDenied {
		t.Fatalf("Rename(file) = %v, want PermissionDenied", ferr)
	}
}

// TestDirectoryRenamePreservesChildren covers invariant 7: directory
// rename is permitted and rewrites contained file paths.
func TestDirectoryRenamePreservesChildren(t *testing.T) {
	fs := New()
	mustMkdir(t, fs, "/old")
	if _, ferr := fs.Create("/old/10B"); ferr != nil {
		t.Fatalf("Create: %v", ferr)
	}
	if ferr := fs.Rename("/old", "/new"); ferr != nil {
		t.Fatalf("Rename: %v", ferr)
	}
	if _, ferr := fs.Getattr("/new/10B"); ferr != nil {
		t.Fatalf("file did not survive directory rename: %v", ferr)
	}
	if _, ferr := fs.Getattr("/old"); ferr == nil || ferr.Kind != KindNotFound {
		t.Fatalf("old directory still resolves: %v", ferr)
	}
}

// TestRefusedOperations covers spec.md §4.8's always-refuse table.
func TestRefusedOperations(t *testing.T) {
	fs := New()
	mustMkdir(t, fs, "/d")
	if _, ferr := fs.Create("/d/10B"); ferr != nil {
		t.Fatalf("Create: %v", ferr)
	}
	for name, ferr := range map[string]*Error{
		"chmod":    fs.Chmod("/d/10B"),
		"chown":    fs.Chown("/d/10B"),
		"truncate": fs.Truncate("/d/10B"),
		"write":    fs.Write("/d/10B"),
		"symlink":  fs.Symlink("/d/10B"),
	} {
		if ferr == nil || ferr.Kind != KindPermissionDenied {
			t.Errorf("%s: got %v, want PermissionDenied", name, ferr)
		}
	}
}
