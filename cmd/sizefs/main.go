// Command sizefs mounts the SizeFS mock filesystem via FUSE.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/mattn/go-isatty"
	"golang.org/x/xerrors"

	"github.com/sohonetlabs/sizefs"
	"github.com/sohonetlabs/sizefs/internal/fusebridge"
)

const help = `sizefs [-flags] <mount_point>

Mount the SizeFS synthetic filesystem.

Example:
  % sizefs /mnt/sizefs
`

var (
	debug     = flag.Bool("debug", false, "enable debug mode: verbose FUSE op logging and detailed error messages")
	daemonize = flag.Bool("daemon", false, "accepted but does not detach: the process stays in the foreground")
	readiness = flag.Int("readiness", -1, "file descriptor on which to send a readiness notification")
)

func init() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, help)
		fmt.Fprintln(os.Stderr, "Flags:")
		flag.PrintDefaults()
	}
}

func banner(mountpoint string) {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return
	}
	fmt.Printf("sizefs: mounting synthetic filesystem at %s\n", mountpoint)
}

func mount(mountpoint string, sh *shutdown) (join func(context.Context) error, _ error) {
	core, err := sizefs.NewSeeded()
	if err != nil {
		return nil, xerrors.Errorf("seeding namespace: %w", err)
	}
	bridge := fusebridge.New(core)

	banner(mountpoint)

	joinFn, unmount, err := fusebridge.Serve(mountpoint, bridge, *debug)
	if err != nil {
		return nil, xerrors.Errorf("mounting at %s: %w", mountpoint, err)
	}
	sh.onExit(unmount)

	if *readiness != -1 {
		os.NewFile(uintptr(*readiness), "").Close()
	}

	return joinFn, nil
}

func funcmain() error {
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		return xerrors.Errorf("missing mount point")
	}

	if *daemonize {
		// Daemonization itself (forking, detaching the controlling
		// terminal) is the CLI's job, not the core's; spec.md §1 scopes it
		// out of the engine entirely. A real daemon mode would re-exec with
		// a background flag set, as the teacher's cmd/distri subcommands do
		// for long-running builds; left unimplemented here since nothing in
		// SPEC_FULL.md depends on the process actually detaching.
		log.Printf("sizefs: -daemon requested but this build stays in the foreground")
	}

	ctx, sh := newShutdownContext()

	join, err := mount(flag.Arg(0), sh)
	if err != nil {
		return err
	}
	joinErr := join(ctx)
	if err := sh.run(); err != nil {
		return err
	}
	if joinErr != nil {
		return xerrors.Errorf("join: %w", joinErr)
	}
	return nil
}

func main() {
	if err := funcmain(); err != nil {
		if *debug {
			fmt.Fprintf(os.Stderr, "%+v\n", err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
