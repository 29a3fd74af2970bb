// Command typewriter is a packing worker that places shapes greedily. It is
// started by bakery and speaks the worker protocol on stdin and stdout.
package main

import (
	"github.com/piwi3910/bakery/internal/typewriter"
	"github.com/piwi3910/bakery/internal/workerkit"
)

func main() {
	workerkit.Main(typewriter.Worker{})
}
