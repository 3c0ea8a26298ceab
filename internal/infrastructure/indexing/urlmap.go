package indexing

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/bafoeg-assistant/internal/core/ports"
)

// MappingKey is the storage key of the file name to URL mapping.
const MappingKey = "url_mapping.json"

// URLMapping maps knowledge base file names to their source URL.
type URLMapping map[string]string

// Files returns the mapped file names in lexical order.
func (m URLMapping) Files() []string {
	out := make([]string, 0, len(m))
	for file := range m {
		out = append(out, file)
	}
	sort.Strings(out)
	return out
}

// Merge copies other into m, overwriting existing entries.
func (m URLMapping) Merge(other URLMapping) {
	for file, url := range other {
		m[file] = url
	}
}

// ReadURLMapping loads url_mapping.json. A missing file yields an empty
// mapping.
func ReadURLMapping(ctx context.Context, storage ports.ObjectStorage) (URLMapping, error) {
	reader, err := storage.Open(ctx, MappingKey)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return URLMapping{}, nil
		}
		return nil, fmt.Errorf("open url mapping: %w", err)
	}
	defer reader.Close()

	mapping := URLMapping{}
	if err := json.NewDecoder(reader).Decode(&mapping); err != nil {
		return nil, fmt.Errorf("decode url mapping: %w", err)
	}
	return mapping, nil
}

func WriteURLMapping(ctx context.Context, storage ports.ObjectStorage, mapping URLMapping) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(mapping); err != nil {
		return fmt.Errorf("encode url mapping: %w", err)
	}
	if err := storage.Save(ctx, MappingKey, &buf); err != nil {
		return fmt.Errorf("write url mapping: %w", err)
	}
	return nil
}

// LoadURLSheet reads a URLs.csv or URLs.xlsx sheet with the columns
// file_name, url and doc_type. Only TXT and PDF rows are kept; the matching
// extension is appended when the file name lacks it.
func LoadURLSheet(path string) (URLMapping, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSXRows(path)
	default:
		rows, err = readCSVRows(path)
	}
	if err != nil {
		return nil, err
	}
	return mappingFromRows(rows)
}

func readCSVRows(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url sheet: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	var rows [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse url sheet: %w", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func readXLSXRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open url workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("url workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read url workbook: %w", err)
	}
	return rows, nil
}

func mappingFromRows(rows [][]string) (URLMapping, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("url sheet is empty")
	}

	columns := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, required := range []string{"file_name", "url", "doc_type"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("url sheet is missing column %q", required)
		}
	}

	cell := func(row []string, column string) string {
		i := columns[column]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	mapping := URLMapping{}
	for _, row := range rows[1:] {
		file := cell(row, "file_name")
		url := cell(row, "url")
		if file == "" || url == "" {
			continue
		}

		var ext string
		switch strings.ToUpper(cell(row, "doc_type")) {
		case "TXT":
			ext = ".txt"
		case "PDF":
			ext = ".pdf"
		default:
			continue
		}
		if !strings.HasSuffix(strings.ToLower(file), ext) {
			file += ext
		}
		mapping[file] = url
	}
	return mapping, nil
}
