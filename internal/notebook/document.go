// Package notebook is the host document model the CLI hands to the
// protocol: a minimal .ipynb reader/writer plus a per-cell display
// target adapter. Only the fields the executor touches are modeled;
// notebook metadata is carried through opaquely.
package notebook

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// MultilineText is notebook text that appears in the wild as either a
// single JSON string or an array of line strings. It always marshals
// back as a single string.
type MultilineText string

// UnmarshalJSON accepts both representations.
func (m *MultilineText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = MultilineText(s)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err == nil {
		*m = MultilineText(strings.Join(lines, ""))
		return nil
	}
	return fmt.Errorf("text is neither a string nor a string array")
}

// MarshalJSON emits the single-string representation.
func (m MultilineText) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(m))
}

// CellOutput is one entry of a code cell's output sequence. The executor
// only ever writes stream/stdout entries; everything else an output
// carries (mime data bundles, error tracebacks, metadata) is held as raw
// JSON so richer entries from other tools round-trip untouched.
type CellOutput struct {
	OutputType string
	Name       string
	Text       MultilineText

	extra map[string]json.RawMessage
}

// UnmarshalJSON peels off the fields the executor understands and keeps
// the rest verbatim.
func (o *CellOutput) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := fields["output_type"]; ok {
		if err := json.Unmarshal(raw, &o.OutputType); err != nil {
			return fmt.Errorf("output_type: %w", err)
		}
		delete(fields, "output_type")
	}
	if raw, ok := fields["name"]; ok {
		if err := json.Unmarshal(raw, &o.Name); err != nil {
			return fmt.Errorf("output name: %w", err)
		}
		delete(fields, "name")
	}
	if raw, ok := fields["text"]; ok {
		if err := json.Unmarshal(raw, &o.Text); err != nil {
			return err
		}
		delete(fields, "text")
	}
	if len(fields) > 0 {
		o.extra = fields
	}
	return nil
}

// MarshalJSON recombines the typed fields with the preserved raw ones.
func (o CellOutput) MarshalJSON() ([]byte, error) {
	fields := make(map[string]json.RawMessage, len(o.extra)+3)
	for k, v := range o.extra {
		fields[k] = v
	}
	raw, err := json.Marshal(o.OutputType)
	if err != nil {
		return nil, err
	}
	fields["output_type"] = raw
	if o.Name != "" {
		if raw, err = json.Marshal(o.Name); err != nil {
			return nil, err
		}
		fields["name"] = raw
	}
	if o.Text != "" {
		if raw, err = o.Text.MarshalJSON(); err != nil {
			return nil, err
		}
		fields["text"] = raw
	}
	return json.Marshal(fields)
}

// Cell is one notebook cell.
type Cell struct {
	ID             string          `json:"id,omitempty"`
	CellType       string          `json:"cell_type"`
	Source         MultilineText   `json:"source"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	ExecutionCount *int            `json:"execution_count,omitempty"`
	Outputs        []CellOutput    `json:"outputs,omitempty"`
}

// Document is a parsed .ipynb file.
type Document struct {
	Cells         []Cell          `json:"cells"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	NBFormat      int             `json:"nbformat"`
	NBFormatMinor int             `json:"nbformat_minor"`
}

// Load reads and parses a notebook file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read notebook: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse notebook %s: %w", path, err)
	}
	return &doc, nil
}

// MarshalBytes serializes the document in Jupyter's one-space-indent
// convention, with a trailing newline.
func (d *Document) MarshalBytes() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", " ")
	if err != nil {
		return nil, fmt.Errorf("serialize notebook: %w", err)
	}
	return append(data, '\n'), nil
}

// Save writes the document back to path.
func (d *Document) Save(path string) error {
	data, err := d.MarshalBytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write notebook: %w", err)
	}
	return nil
}

// CellByID finds a cell by its stable identifier and returns it with its
// current positional index.
func (d *Document) CellByID(id string) (*Cell, int, bool) {
	for i := range d.Cells {
		if d.Cells[i].ID == id {
			return &d.Cells[i], i, true
		}
	}
	return nil, 0, false
}

// CellAt returns the cell at a positional index.
func (d *Document) CellAt(i int) (*Cell, bool) {
	if i < 0 || i >= len(d.Cells) {
		return nil, false
	}
	return &d.Cells[i], true
}
