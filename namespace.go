package sizefs

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/sohonetlabs/sizefs/internal/sizename"
	"github.com/sohonetlabs/sizefs/internal/xeger"
)

// File is an in-memory file record: a fixed logical size, its own xattr map
// (seeded from the parent directory at creation), and a lazily (re)built
// generator. No bytes are ever stored; Size is all that is persisted besides
// the xattrs that parameterize content.
type File struct {
	Name  string
	Size  int64
	Xattr Xattrs
	Ctime time.Time
	Mtime time.Time
	Atime time.Time

	gen xeger.Generator
}

// Directory is a single-level container of files, directly beneath root.
type Directory struct {
	Name  string
	Files map[string]*File
	Xattr Xattrs
	Ctime time.Time
	Mtime time.Time
	Atime time.Time
}

// FS is the namespace and xattr store (C7): one mutex guards every mutating
// or reading operation, matching the single-threaded-cooperative model of
// the concurrency design — the core itself never runs two operations at
// once, it only tolerates being *called* concurrently by serializing here.
type FS struct {
	mu     sync.Mutex
	dirs   map[string]*Directory
	nextFd uint64
}

// New returns an empty namespace with no seeded directories. Most callers
// want NewSeeded, which also creates the three default directories.
func New() *FS {
	return &FS{dirs: make(map[string]*Directory)}
}

func now() time.Time { return time.Now() }

// allocFd returns the next monotonically increasing file descriptor id. The
// core does not track open handles beyond allocation — there is nothing to
// release on close.
func (fs *FS) allocFd() uint64 {
	fs.nextFd++
	return fs.nextFd
}

// rebuildGenerator recomputes f's generator from the union of dir's and f's
// own content xattrs, per §4.7's resolution rule. It never returns an error
// to the caller of a mutating xattr operation: a bad pattern or unknown
// generator name is logged and downgraded to the ones generator, matching
// the "log and fall back" contract for unset/unknown generator names. A
// genuinely malformed Xeger pattern (ParseError) falls back the same way —
// the store never leaves a file without a working generator.
func rebuildGenerator(dir *Directory, f *File) {
	get := func(key string) string {
		if v, ok := f.Xattr[key]; ok {
			return v
		}
		if dir != nil {
			return dir.Xattr[key]
		}
		return ""
	}

	maxRandom := 0
	if v := get("user.max_random"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("sizefs: invalid user.max_random %q on %q, using default", v, f.Name)
		} else {
			maxRandom = n
		}
	}

	switch kind := get("user.generator"); kind {
	case "zeros":
		f.gen = xeger.NewZeroGenerator()
	case "ones":
		f.gen = xeger.NewOneGenerator()
	case "alpha_num":
		f.gen = xeger.NewAlphaNumGenerator(0)
	case "regex":
		g, err := xeger.NewXegerGenerator(xeger.Config{
			Size:      f.Size,
			Prefix:    get("user.prefix"),
			Filler:    get("user.filler"),
			Padder:    get("user.padder"),
			Suffix:    get("user.suffix"),
			MaxRandom: maxRandom,
		})
		if err != nil {
			log.Printf("sizefs: %q: %v; falling back to ones generator", f.Name, err)
			f.gen = xeger.NewOneGenerator()
			return
		}
		f.gen = g
	default:
		if kind == "" {
			log.Printf("sizefs: no generator set on %q; falling back to ones generator", f.Name)
		} else {
			log.Printf("sizefs: unknown generator %q on %q; falling back to ones generator", kind, f.Name)
		}
		f.gen = xeger.NewOneGenerator()
	}
}

// inheritXattrs copies every xattr of the directory (content-affecting or
// not) down onto a freshly created file. This is a one-time copy, not a live reference:
// later directory mutations are re-propagated explicitly (see setDirXattr),
// never looked up lazily at read time.
func inheritXattrs(dir *Directory) Xattrs {
	x := make(Xattrs, len(dir.Xattr))
	for k, v := range dir.Xattr {
		x[k] = v
	}
	return x
}

// newFile constructs a File named name under dir, sizing it via the
// filename grammar, inheriting dir's xattrs, and building its generator.
func newFile(dir *Directory, name string) (*File, *Error) {
	size, err := sizename.Parse(name)
	if err != nil {
		return nil, newError(KindBadFilename, "create", name, err)
	}
	f := &File{
		Name:  name,
		Size:  size,
		Xattr: inheritXattrs(dir),
		Ctime: now(),
		Mtime: now(),
		Atime: now(),
	}
	rebuildGenerator(dir, f)
	return f, nil
}
