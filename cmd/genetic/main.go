// Command genetic is a packing worker driven by a genetic algorithm. It is
// started by bakery and speaks the worker protocol on stdin and stdout.
package main

import (
	"flag"

	"github.com/piwi3910/bakery/internal/genetic"
	"github.com/piwi3910/bakery/internal/workerkit"
)

func main() {
	w := genetic.NewWorker()
	flag.Int64Var(&w.Config.Seed, "seed", w.Config.Seed, "random seed")
	flag.IntVar(&w.Config.Generations, "generations", w.Config.Generations, "number of generations")
	flag.IntVar(&w.Config.PopulationSize, "population", w.Config.PopulationSize, "population size")
	flag.Parse()

	workerkit.Main(w)
}
