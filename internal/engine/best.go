package engine

import (
	"sort"

	"github.com/maruel/natural"

	"github.com/piwi3910/bakery/internal/model"
)

// FindBestOutput returns the result with the highest score. Candidates are
// visited in natural order of worker name and ties go to the later one.
// ok is false when outputs is empty.
func FindBestOutput(outputs map[string]model.PackingResult) (name string, result model.PackingResult, ok bool) {
	if len(outputs) == 0 {
		return "", model.PackingResult{}, false
	}
	names := make([]string, 0, len(outputs))
	for n := range outputs {
		names = append(names, n)
	}
	sort.Sort(natural.StringSlice(names))

	best := -1.0
	for _, n := range names {
		if s := outputs[n].Score(); s >= best {
			best, name = s, n
		}
	}
	return name, outputs[name], true
}
