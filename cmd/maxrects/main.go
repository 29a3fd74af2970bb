// Command maxrects is a packing worker that places shapes by their bounding
// rectangles. It is started by bakery and speaks the worker protocol on
// stdin and stdout.
package main

import (
	"flag"

	"github.com/piwi3910/bakery/internal/maxrects"
	"github.com/piwi3910/bakery/internal/model"
	"github.com/piwi3910/bakery/internal/workerkit"
)

func main() {
	var w maxrects.Worker
	gap := flag.Float64("gap", 0, "minimum spacing between shapes, in job units")
	flag.Parse()
	w.Config.Gap = model.Precise(*gap)

	workerkit.Main(w)
}
