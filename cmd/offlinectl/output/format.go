package output

import (
	"fmt"
	"io"
	"strings"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("invalid output format %q (valid: table, json)", s)
	}
}

// Printer renders command results in the selected format.
type Printer struct {
	out    io.Writer
	format Format
}

func NewPrinter(out io.Writer, format Format) *Printer {
	return &Printer{out: out, format: format}
}

func (p *Printer) Format() Format {
	return p.format
}

// Print renders data as a table when it implements TableRenderer and the
// format is table. Everything else is printed as JSON.
func (p *Printer) Print(data any) error {
	if p.format == FormatTable {
		if tr, ok := data.(TableRenderer); ok {
			return PrintTable(p.out, tr)
		}
	}
	return PrintJSON(p.out, data)
}

// Success prints a one-line confirmation. It is silent in JSON mode so the
// output stays machine readable.
func (p *Printer) Success(format string, args ...any) {
	if p.format == FormatJSON {
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}
