package model

import "github.com/go-logr/logr"

// logger receives geometry warnings. It discards everything until
// SetLogger is called.
var logger = logr.Discard()

// SetLogger installs the logger used for geometry warnings such as metrics
// read from an open or self-intersecting polygon.
func SetLogger(l logr.Logger) {
	logger = l.WithName("geometry")
}
