package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

type OutputFormat string

const (
	OutputTable OutputFormat = "table"
	OutputJSON  OutputFormat = "json"
)

var _ pflag.Value = (*OutputFormat)(nil)

func (f *OutputFormat) String() string { return string(*f) }

func (f *OutputFormat) Set(v string) error {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(v))) {
	case OutputTable:
		*f = OutputTable
	case OutputJSON:
		*f = OutputJSON
	default:
		return fmt.Errorf("invalid output format %q (want table or json)", v)
	}
	return nil
}

func (f *OutputFormat) Type() string { return "format" }

// printer writes either the JSON encoding of a value or its rendered
// table form, depending on the resolved --output flag.
type printer struct {
	format *OutputFormat
}

func (p *printer) print(w io.Writer, v any, render func() string) error {
	if *p.format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := io.WriteString(w, render())
	return err
}
