// Command bakery packs the shapes of a job file into as few containers as
// possible by running every enabled packing worker and keeping the best
// valid result.
//
// Usage:
//
//	bakery [flags] input
//	bakery --generate-random 100 -o ./random
//	bakery --serve :8080
//
// Input files in the plain-text job format (.txt) are read directly; CSV,
// XLSX, DXF and SVG files are imported as shape lists.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
