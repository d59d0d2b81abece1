package sizefs

import (
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

// splitPath parses a path-addressed operation's target into its directory
// and (optional) file component. Root is "/"; a bare top-level entry is
// "/name"; a file is "/dir/name". Anything deeper is rejected — directories
// nested more than one level under root are out of scope.
func splitPath(p string) (dir, file string, isRoot bool, perr *Error) {
	if p == "/" {
		return "", "", true, nil
	}
	trimmed := strings.TrimPrefix(p, "/")
	trimmed = strings.TrimSuffix(trimmed, "/")
	parts := strings.Split(trimmed, "/")
	switch len(parts) {
	case 1:
		if parts[0] == "" {
			return "", "", true, nil
		}
		return parts[0], "", false, nil
	case 2:
		return parts[0], parts[1], false, nil
	default:
		return "", "", false, newError(KindNotFound, "lookup", p, nil)
	}
}

// Mkdir creates a new top-level directory. Its parent must be root.
func (fs *FS) Mkdir(path string) *Error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dirName, fileName, isRoot, perr := splitPath(path)
	if perr != nil {
		return perr
	}
	if isRoot || fileName != "" {
		return newError(KindPermissionDenied, "mkdir", path, nil)
	}
	if _, exists := fs.dirs[dirName]; exists {
		return newError(KindPermissionDenied, "mkdir", path, nil)
	}
	fs.dirs[dirName] = &Directory{
		Name:  dirName,
		Files: make(map[string]*File),
		Xattr: make(Xattrs),
		Ctime: now(),
		Mtime: now(),
		Atime: now(),
	}
	return nil
}

// Rmdir removes an empty top-level directory.
func (fs *FS) Rmdir(path string) *Error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dirName, fileName, isRoot, perr := splitPath(path)
	if perr != nil {
		return perr
	}
	if isRoot || fileName != "" {
		return newError(KindNotFound, "rmdir", path, nil)
	}
	dir, ok := fs.dirs[dirName]
	if !ok {
		return newError(KindNotFound, "rmdir", path, nil)
	}
	if len(dir.Files) > 0 {
		return newError(KindNotEmpty, "rmdir", path, nil)
	}
	delete(fs.dirs, dirName)
	return nil
}

// Rename renames a top-level directory. Renaming a file is always forbidden
// (it would change the file's logical size, per the data model's
// invariants), and is documented as a permanently settled open question
// rather than a partially supported feature.
func (fs *FS) Rename(oldPath, newPath string) *Error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	oldDir, oldFile, oldIsRoot, perr := splitPath(oldPath)
	if perr != nil {
		return perr
	}
	if oldIsRoot || oldFile != "" {
		return newError(KindPermissionDenied, "rename", oldPath, nil)
	}
	newDir, newFile, newIsRoot, perr := splitPath(newPath)
	if perr != nil {
		return perr
	}
	if newIsRoot || newFile != "" {
		return newError(KindPermissionDenied, "rename", newPath, nil)
	}

	dir, ok := fs.dirs[oldDir]
	if !ok {
		return newError(KindNotFound, "rename", oldPath, nil)
	}
	if _, exists := fs.dirs[newDir]; exists {
		return newError(KindPermissionDenied, "rename", newPath, nil)
	}

	dir.Name = newDir
	fs.dirs[newDir] = dir
	delete(fs.dirs, oldDir)
	return nil
}

// Create creates a file under an existing directory. The basename must
// parse as a size; all of the parent's xattrs are copied down and a
// generator is installed immediately. Returns a fresh fd id.
func (fs *FS) Create(path string) (uint64, *Error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dirName, fileName, isRoot, perr := splitPath(path)
	if perr != nil {
		return 0, perr
	}
	if isRoot || fileName == "" {
		return 0, newError(KindPermissionDenied, "create", path, nil)
	}
	dir, ok := fs.dirs[dirName]
	if !ok {
		return 0, newError(KindNotFound, "create", path, nil)
	}
	if _, ok := dir.Files[fileName]; ok {
		return fs.allocFd(), nil
	}
	f, ferr := newFile(dir, fileName)
	if ferr != nil {
		ferr.Op = "create"
		ferr.Path = path
		return 0, ferr
	}
	dir.Files[fileName] = f
	dir.Mtime = now()
	return fs.allocFd(), nil
}

// Open returns a fresh fd id for an existing file.
func (fs *FS) Open(path string) (uint64, *Error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dirName, fileName, isRoot, perr := splitPath(path)
	if perr != nil {
		return 0, perr
	}
	if isRoot || fileName == "" {
		return 0, newError(KindNotFound, "open", path, nil)
	}
	dir, ok := fs.dirs[dirName]
	if !ok {
		return 0, newError(KindNotFound, "open", path, nil)
	}
	if _, ok := dir.Files[fileName]; !ok {
		return 0, newError(KindNotFound, "open", path, nil)
	}
	return fs.allocFd(), nil
}

// Read delegates to the file's generator for the inclusive byte range
// implied by [offset, offset+size). It may lazily create the file first, if
// the basename parses as a size and the parent directory exists.
func (fs *FS) Read(path string, size, offset int64) ([]byte, *Error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dirName, fileName, isRoot, perr := splitPath(path)
	if perr != nil {
		return nil, perr
	}
	if isRoot || fileName == "" {
		return nil, newError(KindNotFound, "read", path, nil)
	}
	dir, ok := fs.dirs[dirName]
	if !ok {
		return nil, newError(KindNotFound, "read", path, nil)
	}
	f, ok := dir.Files[fileName]
	if !ok {
		nf, ferr := newFile(dir, fileName)
		if ferr != nil {
			ferr.Op = "read"
			ferr.Path = path
			return nil, ferr
		}
		dir.Files[fileName] = nf
		dir.Mtime = now()
		f = nf
	}

	f.Atime = now()

	if size <= 0 {
		return nil, nil
	}
	start := offset
	end := offset + size - 1
	if end > f.Size-1 {
		end = f.Size - 1
	}
	if start < 0 {
		start = 0
	}
	if start > end {
		return nil, nil
	}
	return f.gen.Read(start, end), nil
}

// DirEntry is one entry returned by Readdir.
type DirEntry struct {
	Name  string
	IsDir bool
}

// Readdir lists "." and ".." followed by direct children, in a fixed,
// deterministic order.
func (fs *FS) Readdir(path string) ([]DirEntry, *Error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dirName, fileName, isRoot, perr := splitPath(path)
	if perr != nil {
		return nil, perr
	}
	if fileName != "" {
		return nil, newError(KindNotFound, "readdir", path, nil)
	}

	entries := []DirEntry{{Name: ".", IsDir: true}, {Name: "..", IsDir: true}}

	if isRoot {
		names := make([]string, 0, len(fs.dirs))
		for name := range fs.dirs {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			entries = append(entries, DirEntry{Name: name, IsDir: true})
		}
		return entries, nil
	}

	dir, ok := fs.dirs[dirName]
	if !ok {
		return nil, newError(KindNotFound, "readdir", path, nil)
	}
	names := make([]string, 0, len(dir.Files))
	for name := range dir.Files {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		entries = append(entries, DirEntry{Name: name, IsDir: false})
	}
	return entries, nil
}

// Attr is a stat-like record for a directory or file.
type Attr struct {
	IsDir bool
	Size  int64
	Ctime time.Time
	Mtime time.Time
	Atime time.Time
}

// Getattr returns the stat record for path, including the synthetic "." and
// ".." entries within a directory listing.
func (fs *FS) Getattr(path string) (Attr, *Error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dirName, fileName, isRoot, perr := splitPath(path)
	if perr != nil {
		return Attr{}, perr
	}
	if isRoot {
		return Attr{IsDir: true}, nil
	}
	dir, ok := fs.dirs[dirName]
	if !ok {
		return Attr{}, newError(KindNotFound, "getattr", path, nil)
	}
	if fileName == "" || fileName == "." {
		return Attr{IsDir: true, Ctime: dir.Ctime, Mtime: dir.Mtime, Atime: dir.Atime}, nil
	}
	if fileName == ".." {
		return Attr{IsDir: true}, nil
	}
	f, ok := dir.Files[fileName]
	if !ok {
		return Attr{}, newError(KindNotFound, "getattr", path, nil)
	}
	return Attr{Size: f.Size, Ctime: f.Ctime, Mtime: f.Mtime, Atime: f.Atime}, nil
}

// lookup resolves path to a directory and, optionally, a file within it.
func (fs *FS) lookup(path string) (*Directory, *File, *Error) {
	dirName, fileName, isRoot, perr := splitPath(path)
	if perr != nil {
		return nil, nil, perr
	}
	if isRoot {
		return nil, nil, newError(KindNotFound, "lookup", path, nil)
	}
	dir, ok := fs.dirs[dirName]
	if !ok {
		return nil, nil, newError(KindNotFound, "lookup", path, nil)
	}
	if fileName == "" {
		return dir, nil, nil
	}
	f, ok := dir.Files[fileName]
	if !ok {
		return nil, nil, newError(KindNotFound, "lookup", path, nil)
	}
	return dir, f, nil
}

// Getxattr returns the value of name on path.
func (fs *FS) Getxattr(path, name string) (string, *Error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir, f, err := fs.lookup(path)
	if err != nil {
		err.Op = "getxattr"
		return "", err
	}
	key := canonicalizeXattr(name)
	target := dir.Xattr
	if f != nil {
		target = f.Xattr
	}
	v, ok := target[key]
	if !ok {
		return "", newError(KindMissingXattr, "getxattr", path, nil)
	}
	return v, nil
}

// Listxattr returns every canonicalized xattr name set on path.
func (fs *FS) Listxattr(path string) ([]string, *Error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir, f, err := fs.lookup(path)
	if err != nil {
		err.Op = "listxattr"
		return nil, err
	}
	target := dir.Xattr
	if f != nil {
		target = f.Xattr
	}
	names := make([]string, 0, len(target))
	for k := range target {
		names = append(names, k)
	}
	slices.Sort(names)
	return names, nil
}

// Setxattr sets name to value on path. On a directory, the value propagates
// to every direct-child file's own xattr map and each file's generator is
// rebuilt. An idempotent set (same value already present) is a no-op and
// does not bump mtime.
func (fs *FS) Setxattr(path, name, value string) *Error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir, f, err := fs.lookup(path)
	if err != nil {
		err.Op = "setxattr"
		return err
	}
	key := canonicalizeXattr(name)

	if f != nil {
		if dir != nil && f.Xattr[key] == value {
			return nil
		}
		f.Xattr[key] = value
		f.Mtime = now()
		rebuildGenerator(dir, f)
		return nil
	}

	if dir.Xattr[key] == value {
		return nil
	}
	dir.Xattr[key] = value
	dir.Mtime = now()
	for _, child := range dir.Files {
		child.Xattr[key] = value
		child.Mtime = now()
		rebuildGenerator(dir, child)
	}
	return nil
}

// Removexattr removes name from path, propagating to children the same way
// Setxattr does.
func (fs *FS) Removexattr(path, name string) *Error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir, f, err := fs.lookup(path)
	if err != nil {
		err.Op = "removexattr"
		return err
	}
	key := canonicalizeXattr(name)

	if f != nil {
		if _, ok := f.Xattr[key]; !ok {
			return newError(KindMissingXattr, "removexattr", path, nil)
		}
		delete(f.Xattr, key)
		f.Mtime = now()
		rebuildGenerator(dir, f)
		return nil
	}

	if _, ok := dir.Xattr[key]; !ok {
		return newError(KindMissingXattr, "removexattr", path, nil)
	}
	delete(dir.Xattr, key)
	dir.Mtime = now()
	for _, child := range dir.Files {
		delete(child.Xattr, key)
		child.Mtime = now()
		rebuildGenerator(dir, child)
	}
	return nil
}

// StatfsResult mirrors the fixed, fake block-count reply jacobsa/fuse's
// StatFSOp expects.
type StatfsResult struct {
	Blocks     uint64
	BlocksFree uint64
	Files      uint64
	BlockSize  uint32
}

// Statfs returns a fixed, fabricated set of filesystem statistics — SizeFS
// has no real backing store to report on.
func (fs *FS) Statfs() StatfsResult {
	return StatfsResult{
		Blocks:     1 << 20,
		BlocksFree: 1 << 20,
		Files:      1 << 16,
		BlockSize:  4096,
	}
}

// refused is the shared implementation behind every always-refused mutating
// operation (chmod, chown, truncate, write, symlink).
func (fs *FS) refused(op, path string) *Error {
	return newError(KindPermissionDenied, op, path, nil)
}

func (fs *FS) Chmod(path string) *Error    { return fs.refused("chmod", path) }
func (fs *FS) Chown(path string) *Error    { return fs.refused("chown", path) }
func (fs *FS) Truncate(path string) *Error { return fs.refused("truncate", path) }
func (fs *FS) Write(path string) *Error    { return fs.refused("write", path) }
func (fs *FS) Symlink(path string) *Error  { return fs.refused("symlink", path) }
