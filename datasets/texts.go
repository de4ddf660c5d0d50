package datasets

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Canonical column names after renaming.
const (
	ColText   = "text"
	ColTarget = "target"
)

// columnAliases renames the spam corpus headers onto the canonical names.
// The tweet corpus already uses text/target.
var columnAliases = map[string]string{
	"message":  ColText,
	"category": ColTarget,
}

// TextDataset holds the rows of a labeled text CSV in memory.
type TextDataset struct {
	// Path of the CSV the rows were read from.
	Path string

	// Column indices of the canonical columns in the source header
	colIndex map[string]int

	examples []Example
	encoder  *LabelEncoder
}

// NewTextDataset reads the CSV at path. textCol and targetCol name source
// columns to use as text and target; when empty the built-in aliases apply.
func NewTextDataset(path, textCol, targetCol string) (*TextDataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open CSV %s: %v", ErrInvalidData, path, err)
	}
	defer file.Close()

	return readTextCSV(file, path, textCol, targetCol)
}

func readTextCSV(r io.Reader, path, textCol, targetCol string) (*TextDataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header of %s: %v", ErrInvalidData, path, err)
	}

	d := &TextDataset{Path: path}
	d.colIndex = renameColumns(header, textCol, targetCol)

	for _, col := range []string{ColText, ColTarget} {
		if _, ok := d.colIndex[col]; !ok {
			return nil, fmt.Errorf("%w: required column %q not found in %s", ErrInvalidData, col, path)
		}
	}

	textIdx, targetIdx := d.colIndex[ColText], d.colIndex[ColTarget]
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read row %d: %v", ErrInvalidData, row, err)
		}
		if textIdx >= len(record) || targetIdx >= len(record) {
			return nil, fmt.Errorf("%w: row %d has %d fields", ErrInvalidData, row, len(record))
		}
		category := strings.TrimSpace(record[targetIdx])
		if category == "" {
			return nil, fmt.Errorf("%w: row %d has an empty %s", ErrInvalidData, row, ColTarget)
		}
		if strings.TrimSpace(record[textIdx]) == "" {
			return nil, fmt.Errorf("%w: row %d has an empty %s", ErrInvalidData, row, ColText)
		}
		d.examples = append(d.examples, Example{Text: record[textIdx], Category: category})
	}
	if len(d.examples) == 0 {
		return nil, fmt.Errorf("%w: %s has no data rows", ErrInvalidData, path)
	}

	categories := make([]string, len(d.examples))
	for i, ex := range d.examples {
		categories[i] = ex.Category
	}
	d.encoder, err = NewLabelEncoder(categories)
	if err != nil {
		return nil, err
	}
	labels, err := d.encoder.Transform(categories)
	if err != nil {
		return nil, err
	}
	for i := range d.examples {
		d.examples[i].Label = labels[i]
	}
	return d, nil
}

// renameColumns normalizes header names and maps them onto the canonical
// columns. Explicit column names win over the aliases.
func renameColumns(header []string, textCol, targetCol string) map[string]int {
	explicit := make(map[string]string)
	if textCol != "" {
		explicit[normalize(textCol)] = ColText
	}
	if targetCol != "" {
		explicit[normalize(targetCol)] = ColTarget
	}
	assigned := make(map[string]bool)
	for _, canonical := range explicit {
		assigned[canonical] = true
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		name := normalize(col)
		if renamed, ok := explicit[name]; ok {
			colIndex[renamed] = i
			continue
		}
		if renamed, ok := columnAliases[name]; ok && !assigned[renamed] {
			name = renamed
		}
		if assigned[name] {
			continue
		}
		if _, taken := colIndex[name]; !taken {
			colIndex[name] = i
		}
	}
	return colIndex
}

func normalize(col string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
}

// Len returns the number of rows.
func (d *TextDataset) Len() int { return len(d.examples) }

// Example returns the row at index i.
func (d *TextDataset) Example(i int) (Example, error) {
	if i < 0 || i >= len(d.examples) {
		return Example{}, fmt.Errorf("index %d out of range [0, %d)", i, len(d.examples))
	}
	return d.examples[i], nil
}

// Texts returns the text column.
func (d *TextDataset) Texts() []string {
	out := make([]string, len(d.examples))
	for i, ex := range d.examples {
		out[i] = ex.Text
	}
	return out
}

// Labels returns the encoded target column.
func (d *TextDataset) Labels() []int {
	out := make([]int, len(d.examples))
	for i, ex := range d.examples {
		out[i] = ex.Label
	}
	return out
}

// Categories returns the class names ordered by label.
func (d *TextDataset) Categories() []string { return d.encoder.Classes() }

// Encoder returns the fitted label encoder.
func (d *TextDataset) Encoder() *LabelEncoder { return d.encoder }

// Subset returns the texts and labels at the given indices.
func (d *TextDataset) Subset(indices []int) ([]string, []int, error) {
	texts := make([]string, len(indices))
	labels := make([]int, len(indices))
	for i, idx := range indices {
		ex, err := d.Example(idx)
		if err != nil {
			return nil, nil, err
		}
		texts[i] = ex.Text
		labels[i] = ex.Label
	}
	return texts, labels, nil
}
