package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/bakery/internal/model"
)

const squareWire = "shape_begin text_begin testshape text_end 4 0 0 0 10000 10000 10000 10000 0 shape_end "

func testSquare(name string) model.Polygon {
	return model.NewPolygon(name, model.P(0, 0), model.P(0, 0.1), model.P(0.1, 0.1), model.P(0.1, 0))
}

func TestMarshalPolygon(t *testing.T) {
	closed := testSquare("testshape")
	closed.EnsureClosed(true)

	tests := []struct {
		name  string
		shape model.Polygon
		want  string
	}{
		{"Open 0.1 square", testSquare("testshape"), squareWire},
		{"Closed 0.1 square", closed, squareWire},
		{
			"Name with spaces",
			testSquare("testshape spaces"),
			"shape_begin text_begin testshape spaces text_end 4 0 0 0 10000 10000 10000 10000 0 shape_end ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalPolygon(tt.shape)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMarshalPolygon_InvalidName(t *testing.T) {
	_, err := MarshalPolygon(testSquare("a text_end b"))
	assert.ErrorIs(t, err, ErrInvalidText)

	_, err = MarshalPolygon(testSquare("   "))
	assert.ErrorIs(t, err, ErrInvalidText)
}

func TestUnmarshalPolygon(t *testing.T) {
	want := testSquare("testshape")
	want.EnsureClosed(true)
	spaced := testSquare("testshape spaces")
	spaced.EnsureClosed(true)

	tests := []struct {
		name string
		wire string
		want model.Polygon
	}{
		{"Open 0.1 square", strings.TrimSpace(squareWire), want},
		{"Closed 0.1 square", "shape_begin text_begin testshape text_end 5 0 0 0 10000 10000 10000 10000 0 0 0 shape_end", want},
		{"Name with spaces", "shape_begin text_begin testshape   spaces text_end 4 0 0 0 10000 10000 10000 10000 0 shape_end", spaced},
		{"Split over lines", "shape_begin\ntext_begin testshape text_end\n4\n0 0 0 10000\n10000 10000 10000 0\nshape_end", want},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalPolygon(tt.wire)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v", got)
			assert.Equal(t, tt.want.Name(), got.Name())
		})
	}
}

func TestUnmarshalPolygon_Negative(t *testing.T) {
	tests := map[string]string{
		"Missing initializer":       "text_begin testshape text_end 4 0 0 0 0.1 0.1 0.1 0.1 0 shape_end",
		"Misspelled initializer":    "shapebegin text_begin testshape text_end 4 0 0 0 0.1 0.1 0.1 0.1 0 shape_end",
		"Missing finalizer":         "shape_begin text_begin testshape text_end 4 0 0 0 0.1 0.1 0.1 0.1 0",
		"Misspelled finalizer":      "shape_begin text_begin testshape text_end 4 0 0 0 0.1 0.1 0.1 0.1 0 shapeend",
		"Wrong number of values":    "shape_begin text_begin testshape text_end 4 0 0 0 0.1 0.1 0.1 shape_end",
		"Wrong format of number":    "shape_begin text_begin testshape text_end 4.2 0 0 0 0.1 0.1 0.1 0.1 0 shape_end",
		"Negative number of values": "shape_begin text_begin testshape text_end -4 0 0 0 0.1 0.1 0.1 0.1 0 shape_end",
		"Single invalid value":      "shape_begin text_begin testshape text_end 4 0 0 float 0.1 0.1 0.1 0.1 0 shape_end",
		"Multiple invalid values":   "shape_begin text_begin testshape text_end 4 integer 0 float 0.1 0.1 0.1 fourty-two 0 shape_end",
		"No text_end":               "shape_begin text_begin testshape 4 integer 0 float 0.1 0.1 0.1 fourty-two 0 shape_end",
		"Empty name":                "shape_begin text_begin text_end 0 shape_end",
		"Coordinate out of range":   "shape_begin text_begin a text_end 1 1e12 0 shape_end",
		"Empty input":               "",
	}
	for name, wire := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := UnmarshalPolygon(wire)
			assert.ErrorIs(t, err, ErrCorruptData)
		})
	}
}

func TestContainerRoundTrip(t *testing.T) {
	empty := model.NewContainer(550000, 250000)
	got, err := MarshalContainer(empty)
	require.NoError(t, err)
	assert.Equal(t, "sheet_begin 550000 250000 0 sheet_end ", got)

	sheet := model.NewContainer(550000, 250000)
	sheet.Append(testSquare("testshape"), testSquare("testshape").Translated(10000, 0))
	got, err = MarshalContainer(sheet)
	require.NoError(t, err)
	assert.Equal(t, "sheet_begin 550000 250000 2 "+squareWire+
		"shape_begin text_begin testshape text_end 4 10000 0 10000 10000 20000 10000 20000 0 shape_end sheet_end ", got)

	decoded, err := UnmarshalContainer(got)
	require.NoError(t, err)
	assert.Equal(t, 2, decoded.Len())
	assert.Equal(t, int32(550000), decoded.Width())
	assert.True(t, decoded.Shape(1).IsClosed())
}

func TestUnmarshalContainer_Negative(t *testing.T) {
	tests := map[string]string{
		"Missing initializer":    "550000 250000 1 " + squareWire + "sheet_end ",
		"Misspelled initializer": "shööt_begin 550000 250000 1 " + squareWire + "sheet_end ",
		"Missing finalizer":      "sheet_begin 550000 250000 1 " + squareWire,
		"Too many shapes":        "sheet_begin 550000 250000 2 " + squareWire + "sheet_end ",
		"Real width":             "sheet_begin 5.5 2.5 0 sheet_end ",
	}
	for name, wire := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := UnmarshalContainer(wire)
			assert.ErrorIs(t, err, ErrCorruptData)
		})
	}
}

func TestJobRoundTrip(t *testing.T) {
	sq := testSquare("square")
	sq.EnsureClosed(true)
	tri := model.NewClosedPolygon("tri angle", model.P(0, 0), model.P(1, 0), model.P(0, 1))
	job := model.NewPackingJob(model.Precise(2), model.Precise(3), sq, sq, tri)

	wire, err := MarshalJob(job)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(wire, "plugininput_begin 100000 200000 300000 3 shapelist_begin shape_begin "))
	assert.True(t, strings.HasSuffix(wire, "shapelist_end plugininput_end "))

	got, err := UnmarshalJob(wire)
	require.NoError(t, err)
	assert.True(t, got.Equal(job))
}

func TestUnmarshalJob_WrongPrecision(t *testing.T) {
	_, err := UnmarshalJob("plugininput_begin 1000 1 1 0 shapelist_begin shapelist_end plugininput_end")
	assert.ErrorIs(t, err, ErrCorruptData)
}

func TestResultRoundTrip(t *testing.T) {
	a := model.NewContainer(model.Precise(1), model.Precise(1))
	a.Append(testSquare("s"))
	b := model.NewContainer(model.Precise(1), model.Precise(1))
	result := model.PackingResult{Sheets: []model.Container{a, b}}

	wire, err := MarshalResult(result)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(wire, "pluginoutput_begin 2 sheetlist_begin sheet_begin "))

	got, err := UnmarshalResult(wire)
	require.NoError(t, err)
	require.Len(t, got.Sheets, 2)
	assert.Equal(t, 1, got.Sheets[0].Len())
	assert.True(t, got.Sheets[1].IsEmpty())

	empty, err := UnmarshalResult("pluginoutput_begin 0 sheetlist_begin sheetlist_end pluginoutput_end")
	require.NoError(t, err)
	assert.Empty(t, empty.Sheets)
}

func TestMetadataRoundTrip(t *testing.T) {
	m := model.WorkerMetadata{Name: "typewriter", Type: "greedy", Author: "Jane Doe / John Roe", License: "LGPL3+"}

	wire, err := MarshalMetadata(m)
	require.NoError(t, err)
	assert.Equal(t, "pluginmetadata_begin text_begin typewriter text_end text_begin greedy text_end "+
		"text_begin Jane Doe / John Roe text_end text_begin LGPL3+ text_end pluginmetadata_end ", wire)

	got, err := UnmarshalMetadata(wire)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	_, err = UnmarshalMetadata("pluginmetadata_begin text_begin a text_end pluginmetadata_end")
	assert.ErrorIs(t, err, ErrCorruptData)
}

func TestCommandLines(t *testing.T) {
	assert.Equal(t, "give_metadata \n", GiveMetadataLine())
	assert.Equal(t, "terminate 500 \n", TerminateLine(500))

	job := model.NewPackingJob(model.Precise(1), model.Precise(1), testSquare("s"))
	line, err := BakeSheetsLine(job)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "bake_sheets plugininput_begin "))
	assert.True(t, strings.HasSuffix(line, "\n"))

	cmd, err := ParseCommand(line)
	require.NoError(t, err)
	assert.Equal(t, CmdBakeSheets, cmd.Name)
	assert.Equal(t, 1, len(cmd.Job.Shapes))

	cmd, err = ParseCommand(TerminateLine(250))
	require.NoError(t, err)
	assert.Equal(t, Command{Name: CmdTerminate, Msec: 250}, cmd)

	cmd, err = ParseCommand(GiveMetadataLine())
	require.NoError(t, err)
	assert.Equal(t, CmdGiveMetadata, cmd.Name)
}

func TestParseCommand_Negative(t *testing.T) {
	for _, line := range []string{"", "dance \n", "terminate \n", "terminate -1 \n", "give_metadata extra \n", "bake_sheets garbage \n"} {
		_, err := ParseCommand(line)
		assert.ErrorIs(t, err, ErrCorruptData, "line %q", line)
	}
}
