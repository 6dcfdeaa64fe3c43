// Command editor is one SyncText participant: it registers itself in
// the shared-memory peer registry, owns a message queue for receiving
// operations from other peers, and runs the editor loop against its
// own <user_id>_doc.txt until interrupted.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/abhinavnagar29/synctext/internal/peer"
	"github.com/abhinavnagar29/synctext/internal/queue"
	"github.com/abhinavnagar29/synctext/internal/registry"
)

const (
	exitOK           = 0
	exitUsage        = 1
	exitKernelSetup  = 2
	exitRegistryFull = 3
	exitDocStatFail  = 4
)

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,31}$`)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	if len(args) != 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <user_id>\n", args[0])
		return exitUsage
	}
	userID := args[1]
	if !userIDPattern.MatchString(userID) {
		fmt.Fprintf(os.Stderr, "user_id must be a filesystem-safe identifier of at most 31 bytes, got %q\n", userID)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := peer.Open(userID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		switch {
		case errors.Is(err, registry.ErrRegistryFull):
			return exitRegistryFull
		case errors.Is(err, registry.ErrRegistryOpen), errors.Is(err, queue.ErrQueueOpen):
			return exitKernelSetup
		default:
			// Open's remaining failure path is the seed/load of the
			// document itself, which maps to the "document stat
			// failure" exit code.
			return exitDocStatFail
		}
	}
	defer p.Close()

	if err := p.RunUntilCanceled(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitKernelSetup
	}
	return exitOK
}
