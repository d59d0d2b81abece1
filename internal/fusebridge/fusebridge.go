// Package fusebridge adapts sizefs's path-addressed C8 operations to the
// kernel callback surface expected by github.com/jacobsa/fuse, the same
// FUSE binding the teacher repository's internal/fuse package wraps. It is
// the "kernel filesystem bridge" spec.md names as an external collaborator:
// thin on purpose, it owns inode bookkeeping and errno translation only —
// every actual filesystem decision still lives in package sizefs.
package fusebridge

import (
	"context"
	"log"
	"os"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/jacobsa/fuse"
	"github.com/jacobsa/fuse/fuseops"
	"github.com/jacobsa/fuse/fuseutil"
	"golang.org/x/sys/unix"

	"github.com/sohonetlabs/sizefs"
)

// AttributesExpiration bounds how long the kernel may cache an inode's
// attributes before asking again. A file's size never changes after
// creation, but mtime can (xattr writes), so this stays short rather than
// "never", unlike the teacher's immutable-package-store caching.
const AttributesExpiration = 1 * time.Second

const rootInode = fuseops.RootInodeID

// node is what a non-root inode refers to: a top-level directory or a file
// within one, addressed the same way sizefs.FS addresses them.
type node struct {
	path  string // e.g. "/zeros" or "/zeros/100K"
	isDir bool
}

// FS implements fuseutil.FileSystem over a *sizefs.FS. Unimplemented
// operations fall back to fuseutil.NotImplementedFileSystem's ENOSYS, which
// only covers operations spec.md never mentions (e.g. locking); every
// operation in spec.md §4.8 has an explicit handler below, even the ones
// that always refuse.
type FS struct {
	fuseutil.NotImplementedFileSystem

	core *sizefs.FS

	mu        sync.Mutex
	nextInode fuseops.InodeID
	nodes     map[fuseops.InodeID]*node
	inodes    map[string]fuseops.InodeID // path -> inode, reverse of nodes
}

// New wraps core for FUSE serving. The root inode always refers to "/".
func New(core *sizefs.FS) *FS {
	fs := &FS{
		core:      core,
		nextInode: rootInode,
		nodes:     make(map[fuseops.InodeID]*node),
		inodes:    make(map[string]fuseops.InodeID),
	}
	fs.nodes[rootInode] = &node{path: "/", isDir: true}
	fs.inodes["/"] = rootInode
	return fs
}

// Serve mounts fs at mountpoint and returns a join func that blocks until
// the mount is unmounted, following the teacher's fuse.Mount/mfs.Join
// pairing in cmd/distri/internal/fuse/fuse.go's Mount function.
func Serve(mountpoint string, fs *FS, debug bool) (join func(context.Context) error, unmount func() error, err error) {
	server := fuseutil.NewFileSystemServer(fs)
	cfg := &fuse.MountConfig{
		FSName:   "sizefs",
		ReadOnly: true,
	}
	if debug {
		cfg.DebugLogger = log.New(os.Stderr, "[fuse] ", log.LstdFlags)
	}
	mfs, err := fuse.Mount(mountpoint, server, cfg)
	if err != nil {
		return nil, nil, err
	}
	join = func(ctx context.Context) error { return mfs.Join(ctx) }
	unmount = func() error { return fuse.Unmount(mountpoint) }
	return join, unmount, nil
}

// node returns the node for inode under lock, or (nil, false) if unknown —
// can legitimately happen for a forgotten inode racing a lookup.
func (fs *FS) node(inode fuseops.InodeID) (*node, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n, ok := fs.nodes[inode]
	return n, ok
}

// lookupOrAllocate returns the stable inode id for path, allocating one on
// first sight. Inode ids are never reused: a file and a past directory of
// the same name (after rmdir+mkdir) still get distinct ids, matching
// spec.md's "fd ids are monotonically increasing" allocation style for C8.
func (fs *FS) lookupOrAllocate(path string, isDir bool) fuseops.InodeID {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if id, ok := fs.inodes[path]; ok {
		return id
	}
	fs.nextInode++
	id := fs.nextInode
	fs.nodes[id] = &node{path: path, isDir: isDir}
	fs.inodes[path] = id
	return id
}

func childPath(parent string, name string) string {
	if parent == "/" {
		return "/" + name
	}
	return parent + "/" + name
}

// errnoFor translates the sizefs error taxonomy to the errno spec.md §6's
// mapping table names, using golang.org/x/sys/unix constants converted to
// syscall.Errno so jacobsa/fuse's own errno matching (which type-switches
// on syscall.Errno) recognizes them, the same convention jacobsa/fuse's
// exported fuse.EIO/fuse.ENOENT constants follow.
func errnoFor(err error) error {
	serr, ok := err.(*sizefs.Error)
	if !ok {
		return fuse.EIO
	}
	switch serr.Kind {
	case sizefs.KindNotFound:
		return fuse.ENOENT
	case sizefs.KindBadFilename:
		if serr.Op == "open" || serr.Op == "read" {
			return fuse.ENOENT
		}
		return syscall.Errno(unix.EPERM)
	case sizefs.KindPermissionDenied:
		return syscall.Errno(unix.EPERM)
	case sizefs.KindNotEmpty:
		return syscall.Errno(unix.ENOTEMPTY)
	case sizefs.KindMissingXattr:
		return syscall.Errno(unix.ENODATA)
	case sizefs.KindParse:
		return syscall.Errno(unix.EINVAL)
	default:
		return fuse.EIO
	}
}

func mode(isDir bool) os.FileMode {
	if isDir {
		return os.ModeDir | 0555
	}
	return 0444
}

func attrFor(n *node, a sizefs.Attr) fuseops.InodeAttributes {
	return fuseops.InodeAttributes{
		Size:  uint64(a.Size),
		Nlink: 1,
		Mode:  mode(n.isDir),
		Atime: a.Atime,
		Mtime: a.Mtime,
		Ctime: a.Ctime,
	}
}

func (fs *FS) StatFS(ctx context.Context, op *fuseops.StatFSOp) error {
	s := fs.core.Statfs()
	op.BlockSize = s.BlockSize
	op.Blocks = s.Blocks
	op.BlocksFree = s.BlocksFree
	op.BlocksAvailable = s.BlocksFree
	op.Inodes = s.Files
	op.InodesFree = s.Files
	op.IoSize = 65536
	return nil
}

func (fs *FS) LookUpInode(ctx context.Context, op *fuseops.LookUpInodeOp) error {
	parent, ok := fs.node(op.Parent)
	if !ok {
		return fuse.ENOENT
	}
	path := childPath(parent.path, op.Name)
	attr, serr := fs.core.Getattr(path)
	if serr != nil {
		return errnoFor(serr)
	}
	id := fs.lookupOrAllocate(path, attr.IsDir)
	child, _ := fs.node(id)
	op.Entry.Child = id
	op.Entry.Attributes = attrFor(child, attr)
	op.Entry.AttributesExpiration = time.Now().Add(AttributesExpiration)
	op.Entry.EntryExpiration = time.Now().Add(AttributesExpiration)
	return nil
}

func (fs *FS) GetInodeAttributes(ctx context.Context, op *fuseops.GetInodeAttributesOp) error {
	n, ok := fs.node(op.Inode)
	if !ok {
		return fuse.ENOENT
	}
	attr, serr := fs.core.Getattr(n.path)
	if serr != nil {
		return errnoFor(serr)
	}
	op.Attributes = attrFor(n, attr)
	op.AttributesExpiration = time.Now().Add(AttributesExpiration)
	return nil
}

// SetInodeAttributes backs chmod/chown/truncate: spec.md §4.8 always
// refuses these, so any attempt to change mode, size, or ownership fails
// with EPERM; a bare getattr-via-setattr (no fields set, as some callers
// issue to refresh a cache) is allowed through as a no-op.
func (fs *FS) SetInodeAttributes(ctx context.Context, op *fuseops.SetInodeAttributesOp) error {
	if op.Size != nil || op.Mode != nil {
		return syscall.Errno(unix.EPERM)
	}
	n, ok := fs.node(op.Inode)
	if !ok {
		return fuse.ENOENT
	}
	attr, serr := fs.core.Getattr(n.path)
	if serr != nil {
		return errnoFor(serr)
	}
	op.Attributes = attrFor(n, attr)
	op.AttributesExpiration = time.Now().Add(AttributesExpiration)
	return nil
}

func (fs *FS) OpenDir(ctx context.Context, op *fuseops.OpenDirOp) error {
	n, ok := fs.node(op.Inode)
	if !ok {
		return fuse.ENOENT
	}
	if !n.isDir {
		return fuse.EIO
	}
	return nil
}

func (fs *FS) ReadDir(ctx context.Context, op *fuseops.ReadDirOp) error {
	n, ok := fs.node(op.Inode)
	if !ok {
		return fuse.ENOENT
	}
	listing, serr := fs.core.Readdir(n.path)
	if serr != nil {
		return errnoFor(serr)
	}

	entries := make([]fuseutil.Dirent, 0, len(listing))
	for i, e := range listing {
		var id fuseops.InodeID
		switch e.Name {
		case ".":
			id = op.Inode
		case "..":
			id = rootInode
		default:
			id = fs.lookupOrAllocate(childPath(n.path, e.Name), e.IsDir)
		}
		typ := fuseutil.DT_File
		if e.IsDir {
			typ = fuseutil.DT_Directory
		}
		entries = append(entries, fuseutil.Dirent{
			Offset: fuseops.DirOffset(i + 1),
			Inode:  id,
			Name:   e.Name,
			Type:   typ,
		})
	}

	if op.Offset > fuseops.DirOffset(len(entries)) {
		return fuse.EIO
	}
	for _, e := range entries[op.Offset:] {
		written := fuseutil.WriteDirent(op.Dst[op.BytesRead:], e)
		if written == 0 {
			break
		}
		op.BytesRead += written
	}
	return nil
}

func (fs *FS) OpenFile(ctx context.Context, op *fuseops.OpenFileOp) error {
	n, ok := fs.node(op.Inode)
	if !ok {
		return fuse.ENOENT
	}
	if n.isDir {
		return fuse.EIO
	}
	return nil
}

func (fs *FS) ReadFile(ctx context.Context, op *fuseops.ReadFileOp) error {
	n, ok := fs.node(op.Inode)
	if !ok {
		return fuse.ENOENT
	}
	data, serr := fs.core.Read(n.path, int64(len(op.Dst)), op.Offset)
	if serr != nil {
		return errnoFor(serr)
	}
	op.BytesRead = copy(op.Dst, data)
	return nil
}

// WriteFile, Chmod-via-SetInodeAttributes (above), truncate and symlink
// creation are all refused per spec.md's fixed "always refuse" table.
func (fs *FS) WriteFile(ctx context.Context, op *fuseops.WriteFileOp) error {
	return syscall.Errno(unix.EPERM)
}

func (fs *FS) CreateSymlink(ctx context.Context, op *fuseops.CreateSymlinkOp) error {
	return syscall.Errno(unix.EPERM)
}

func (fs *FS) MkDir(ctx context.Context, op *fuseops.MkDirOp) error {
	parent, ok := fs.node(op.Parent)
	if !ok {
		return fuse.ENOENT
	}
	path := childPath(parent.path, op.Name)
	if serr := fs.core.Mkdir(path); serr != nil {
		return errnoFor(serr)
	}
	attr, serr := fs.core.Getattr(path)
	if serr != nil {
		return errnoFor(serr)
	}
	id := fs.lookupOrAllocate(path, true)
	n, _ := fs.node(id)
	op.Entry.Child = id
	op.Entry.Attributes = attrFor(n, attr)
	op.Entry.AttributesExpiration = time.Now().Add(AttributesExpiration)
	op.Entry.EntryExpiration = time.Now().Add(AttributesExpiration)
	return nil
}

func (fs *FS) RmDir(ctx context.Context, op *fuseops.RmDirOp) error {
	parent, ok := fs.node(op.Parent)
	if !ok {
		return fuse.ENOENT
	}
	path := childPath(parent.path, op.Name)
	if serr := fs.core.Rmdir(path); serr != nil {
		return errnoFor(serr)
	}
	fs.forget(path)
	return nil
}

func (fs *FS) Rename(ctx context.Context, op *fuseops.RenameOp) error {
	oldParent, ok := fs.node(op.OldParent)
	if !ok {
		return fuse.ENOENT
	}
	newParent, ok := fs.node(op.NewParent)
	if !ok {
		return fuse.ENOENT
	}
	oldPath := childPath(oldParent.path, op.OldName)
	newPath := childPath(newParent.path, op.NewName)
	if serr := fs.core.Rename(oldPath, newPath); serr != nil {
		return errnoFor(serr)
	}
	fs.renameInode(oldPath, newPath)
	return nil
}

func (fs *FS) CreateFile(ctx context.Context, op *fuseops.CreateFileOp) error {
	parent, ok := fs.node(op.Parent)
	if !ok {
		return fuse.ENOENT
	}
	path := childPath(parent.path, op.Name)
	if _, serr := fs.core.Create(path); serr != nil {
		return errnoFor(serr)
	}
	attr, serr := fs.core.Getattr(path)
	if serr != nil {
		return errnoFor(serr)
	}
	id := fs.lookupOrAllocate(path, false)
	n, _ := fs.node(id)
	op.Entry.Child = id
	op.Entry.Attributes = attrFor(n, attr)
	op.Entry.AttributesExpiration = time.Now().Add(AttributesExpiration)
	op.Entry.EntryExpiration = time.Now().Add(AttributesExpiration)
	return nil
}

func (fs *FS) Unlink(ctx context.Context, op *fuseops.UnlinkOp) error {
	// No sizefs operation removes a file, and rmdir refuses a non-empty
	// directory, so a file stays once created; a bare unlink of a file is
	// the same forbidden mutation as write/truncate.
	return syscall.Errno(unix.EPERM)
}

func (fs *FS) forget(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if id, ok := fs.inodes[path]; ok {
		delete(fs.inodes, path)
		delete(fs.nodes, id)
	}
}

func (fs *FS) renameInode(oldPath, newPath string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	id, ok := fs.inodes[oldPath]
	if !ok {
		return
	}
	delete(fs.inodes, oldPath)
	fs.inodes[newPath] = id
	fs.nodes[id].path = newPath
	// A directory rename rewrites every contained file's path too; reindex
	// children so their next lookup resolves to the same inode id instead
	// of silently allocating a new one, which would orphan open handles.
	prefix := oldPath + "/"
	var renamed []string
	for p := range fs.inodes {
		if len(p) > len(prefix) && p[:len(prefix)] == prefix {
			renamed = append(renamed, p)
		}
	}
	sort.Strings(renamed)
	for _, p := range renamed {
		childID := fs.inodes[p]
		delete(fs.inodes, p)
		np := newPath + p[len(oldPath):]
		fs.inodes[np] = childID
		fs.nodes[childID].path = np
	}
}

func (fs *FS) GetXattr(ctx context.Context, op *fuseops.GetXattrOp) error {
	n, ok := fs.node(op.Inode)
	if !ok {
		return fuse.ENOENT
	}
	v, serr := fs.core.Getxattr(n.path, op.Name)
	if serr != nil {
		return errnoFor(serr)
	}
	op.BytesRead = len(v)
	if len(op.Dst) == 0 {
		return nil
	}
	if op.BytesRead > len(op.Dst) {
		return syscall.Errno(unix.ERANGE)
	}
	copy(op.Dst, v)
	return nil
}

func (fs *FS) ListXattr(ctx context.Context, op *fuseops.ListXattrOp) error {
	n, ok := fs.node(op.Inode)
	if !ok {
		return fuse.ENOENT
	}
	names, serr := fs.core.Listxattr(n.path)
	if serr != nil {
		return errnoFor(serr)
	}
	for _, name := range names {
		op.BytesRead += len(name) + 1
	}
	if len(op.Dst) == 0 {
		return nil
	}
	if op.BytesRead > len(op.Dst) {
		return syscall.Errno(unix.ERANGE)
	}
	n2 := 0
	for _, name := range names {
		n2 += copy(op.Dst[n2:], name)
		op.Dst[n2] = 0
		n2++
	}
	return nil
}

func (fs *FS) SetXattr(ctx context.Context, op *fuseops.SetXattrOp) error {
	n, ok := fs.node(op.Inode)
	if !ok {
		return fuse.ENOENT
	}
	if serr := fs.core.Setxattr(n.path, op.Name, string(op.Value)); serr != nil {
		return errnoFor(serr)
	}
	return nil
}

func (fs *FS) RemoveXattr(ctx context.Context, op *fuseops.RemoveXattrOp) error {
	n, ok := fs.node(op.Inode)
	if !ok {
		return fuse.ENOENT
	}
	if serr := fs.core.Removexattr(n.path, op.Name); serr != nil {
		return errnoFor(serr)
	}
	return nil
}
