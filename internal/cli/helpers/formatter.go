package helpers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
)

// OutputFormat represents the desired output format.
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatCSV  OutputFormat = "csv"
)

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("12"))

// Formatter renders command results.
//
// Table-like formats use the `header` struct tag to pick columns; a field
// tagged `format:"hex"` is printed as 0x-prefixed hexadecimal.
type Formatter interface {
	Format(data interface{}, writer io.Writer) error
}

// NewFormatter creates a new Formatter for the given format.
func NewFormatter(format OutputFormat, noColor bool) (Formatter, error) {
	switch format {
	case FormatText:
		return &TextFormatter{NoColor: noColor}, nil
	case FormatJSON:
		return &JSONFormatter{}, nil
	case FormatCSV:
		return &CSVFormatter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// JSONFormatter formats data as JSON.
type JSONFormatter struct{}

func (f *JSONFormatter) Format(data interface{}, writer io.Writer) error {
	enc := json.NewEncoder(writer)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// TextFormatter formats data as an aligned table with a styled header row.
type TextFormatter struct {
	NoColor bool
}

func (f *TextFormatter) Format(data interface{}, writer io.Writer) error {
	val, err := sliceValue(data)
	if err != nil || val.Len() == 0 {
		return err
	}
	headers := getHeaders(val.Index(0).Type())

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 3, ' ', 0)
	if _, err := fmt.Fprintln(w, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for i := 0; i < val.Len(); i++ {
		if _, err := fmt.Fprintln(w, strings.Join(getRowValues(val.Index(i)), "\t")); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	// Style after alignment; escape codes would skew tabwriter's widths.
	header, rows, _ := strings.Cut(buf.String(), "\n")
	if !f.NoColor {
		header = headerStyle.Render(header)
	}
	_, err = fmt.Fprintf(writer, "%s\n%s", header, rows)
	return err
}

// CSVFormatter formats data as CSV using struct tags.
type CSVFormatter struct{}

func (f *CSVFormatter) Format(data interface{}, writer io.Writer) error {
	val, err := sliceValue(data)
	if err != nil || val.Len() == 0 {
		return err
	}
	headers := getHeaders(val.Index(0).Type())

	w := csv.NewWriter(writer)
	if err := w.Write(headers); err != nil {
		return err
	}
	for i := 0; i < val.Len(); i++ {
		if err := w.Write(getRowValues(val.Index(i))); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func sliceValue(data interface{}) (reflect.Value, error) {
	val := reflect.ValueOf(data)
	if val.Kind() != reflect.Slice {
		return reflect.Value{}, fmt.Errorf("data must be a slice")
	}
	return val, nil
}

func getHeaders(t reflect.Type) []string {
	var headers []string
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("header")
		if tag != "" {
			headers = append(headers, tag)
		}
	}
	return headers
}

func getRowValues(v reflect.Value) []string {
	var values []string
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if field.Tag.Get("header") == "" {
			continue
		}
		val := v.Field(i)
		if field.Tag.Get("format") == "hex" {
			values = append(values, fmt.Sprintf("0x%x", val.Interface()))
			continue
		}
		values = append(values, fmt.Sprintf("%v", val.Interface()))
	}
	return values
}
