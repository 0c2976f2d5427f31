// Package ingest reads question bank files into question records. It is the
// tabular-source collaborator in front of the bank: CSV is tried first, with
// XLSX as the fallback format, matching the layout the original bank files use.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pavelanni/quizbank/internal/model"
)

// ErrUnsupportedFormat is returned for bank files that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported bank file format")

// Options control how a bank file is interpreted.
type Options struct {
	// MaxOptionLabels caps the option columns read per question (5 or 6).
	MaxOptionLabels int
}

func (o Options) maxOptions() int {
	if o.MaxOptionLabels < 1 || o.MaxOptionLabels > len(model.OptionLabels) {
		return len(model.OptionLabels)
	}
	return o.MaxOptionLabels
}

// columns maps header names to record fields. Both the Chinese headers of the
// original bank files and their English equivalents are recognized.
type columns struct {
	qtype       int
	prompt      int
	answer      int
	explanation int
	options     []int // indexed by label position, -1 when the column is absent
}

func resolveColumns(header []string, maxOptions int) (columns, error) {
	cols := columns{qtype: -1, prompt: -1, answer: -1, explanation: -1}
	cols.options = make([]int, maxOptions)
	for i := range cols.options {
		cols.options[i] = -1
	}

	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "题型", "type":
			cols.qtype = i
		case "题目", "prompt", "question":
			cols.prompt = i
		case "答案", "answer", "correct_answer":
			cols.answer = i
		case "解析", "explanation":
			cols.explanation = i
		default:
			for j, label := range model.OptionLabels[:maxOptions] {
				if optionHeader(name, label) {
					cols.options[j] = i
				}
			}
		}
	}

	switch {
	case cols.qtype < 0:
		return cols, fmt.Errorf("bank header: missing type column")
	case cols.prompt < 0:
		return cols, fmt.Errorf("bank header: missing prompt column")
	case cols.answer < 0:
		return cols, fmt.Errorf("bank header: missing answer column")
	}
	return cols, nil
}

func optionHeader(name, label string) bool {
	name = strings.TrimSpace(name)
	return strings.EqualFold(name, "option"+label) || name == "选项"+label
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func recordFromRow(row []string, cols columns, rowNum int) (model.QuestionRecord, error) {
	qt, err := model.ParseQuestionType(cell(row, cols.qtype))
	if err != nil {
		return model.QuestionRecord{}, fmt.Errorf("row %d: %w", rowNum, err)
	}
	rec := model.QuestionRecord{
		Type:          qt,
		Prompt:        cell(row, cols.prompt),
		CorrectAnswer: cell(row, cols.answer),
		Explanation:   cell(row, cols.explanation),
	}
	for j, col := range cols.options {
		text := cell(row, col)
		if text == "" {
			continue
		}
		rec.Options = append(rec.Options, model.Option{Label: model.OptionLabels[j], Text: text})
	}
	return rec, nil
}

// ReadCSV parses a CSV bank. The first row is the header; blank cells
// normalize to empty text and blank option slots are dropped.
func ReadCSV(r io.Reader, opts Options) ([]model.QuestionRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read bank header: %w", err)
	}
	cols, err := resolveColumns(header, opts.maxOptions())
	if err != nil {
		return nil, err
	}

	var records []model.QuestionRecord
	for rowNum := 2; ; rowNum++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read bank row %d: %w", rowNum, err)
		}
		rec, err := recordFromRow(row, cols, rowNum)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadXLSX parses the first sheet of an Excel workbook as a bank table.
func ReadXLSX(path string, opts Options) ([]model.QuestionRecord, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("workbook %s: empty sheet", path)
	}

	cols, err := resolveColumns(rows[0], opts.maxOptions())
	if err != nil {
		return nil, err
	}
	var records []model.QuestionRecord
	for i, row := range rows[1:] {
		rec, err := recordFromRow(row, cols, i+2)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// LoadFile reads a bank file, dispatching on extension.
func LoadFile(path string, opts Options) ([]model.QuestionRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open bank file %s: %w", path, err)
		}
		defer f.Close()
		return ReadCSV(f, opts)
	case ".xlsx":
		return ReadXLSX(path, opts)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}
