package sizefs

import "golang.org/x/sync/errgroup"

// seedGenerators maps each default top-level directory to the generator
// name its user.generator xattr is seeded with, per §6's "Seeded namespace
// at startup" table.
var seedGenerators = map[string]string{
	"zeros":     "zeros",
	"ones":      "ones",
	"alpha_num": "alpha_num",
}

// seedFiles is the set of default files created in every seeded directory:
// 100K, 4M, 4M-1B, 4M+1B.
var seedFiles = []string{"100K", "4M", "4M-1B", "4M+1B"}

// NewSeeded returns a namespace with the three default directories
// (zeros, ones, alpha_num) and their four default files already created, as
// described in §6. Population runs concurrently via errgroup, one goroutine
// per directory: no caller can yet observe the namespace, and each Mkdir,
// Setxattr and Create call takes the single coarse mutex guarding FS, so the
// goroutines serialize on it like any other concurrent callers.
func NewSeeded() (*FS, error) {
	fs := New()
	var g errgroup.Group
	for dirName, generator := range seedGenerators {
		dirName, generator := dirName, generator
		g.Go(func() error {
			if err := fs.Mkdir("/" + dirName); err != nil {
				return err
			}
			if err := fs.Setxattr("/"+dirName, "generator", generator); err != nil {
				return err
			}
			for _, name := range seedFiles {
				if _, err := fs.Create("/" + dirName + "/" + name); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fs, nil
}
