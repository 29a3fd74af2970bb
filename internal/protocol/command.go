package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/piwi3910/bakery/internal/model"
)

// Commands sent by the orchestrator, one per line.
const (
	CmdGiveMetadata = "give_metadata"
	CmdBakeSheets   = "bake_sheets"
	CmdTerminate    = "terminate"
)

// Command is a parsed command line.
type Command struct {
	Name string
	Job  model.PackingJob // set for CmdBakeSheets
	Msec int              // set for CmdTerminate
}

// GiveMetadataLine returns the metadata request line.
func GiveMetadataLine() string {
	return CmdGiveMetadata + " \n"
}

// BakeSheetsLine returns the line submitting job.
func BakeSheetsLine(job model.PackingJob) (string, error) {
	s, err := MarshalJob(job)
	if err != nil {
		return "", fmt.Errorf("failed to encode job: %w", err)
	}
	return CmdBakeSheets + " " + s + "\n", nil
}

// TerminateLine returns the line asking a worker to stop within msec
// milliseconds.
func TerminateLine(msec int) string {
	return CmdTerminate + " " + strconv.Itoa(msec) + " \n"
}

// ResultLine returns r encoded as a single output line.
func ResultLine(r model.PackingResult) (string, error) {
	s, err := MarshalResult(r)
	if err != nil {
		return "", err
	}
	return s + "\n", nil
}

// MetadataLine returns m encoded as a single output line.
func MetadataLine(m model.WorkerMetadata) (string, error) {
	s, err := MarshalMetadata(m)
	if err != nil {
		return "", err
	}
	return s + "\n", nil
}

// ParseCommand decodes a command line.
func ParseCommand(line string) (Command, error) {
	d := NewDecoder(strings.NewReader(line))
	name, err := d.next()
	if err != nil {
		return Command{}, err
	}
	cmd := Command{Name: name}
	switch name {
	case CmdGiveMetadata:
	case CmdBakeSheets:
		if cmd.Job, err = d.Job(); err != nil {
			return Command{}, err
		}
	case CmdTerminate:
		msec, err := d.count()
		if err != nil {
			return Command{}, err
		}
		cmd.Msec = msec
	default:
		return Command{}, corrupt("unknown command %q", name)
	}
	if tok, err := d.next(); err == nil {
		return Command{}, corrupt("unexpected %q after %s", tok, name)
	}
	return cmd, nil
}
