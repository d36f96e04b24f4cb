package bank

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/khota/quizrunner/internal/domain"
)

const optionSeparator = "|"

// SpreadsheetConfig describes how a bank is read from a workbook.
//
// Each row holds one question in the columns:
// id, prompt, options (separated by "|"), correct option (1-based), explanation, difficulty, category, points.
type SpreadsheetConfig struct {
	BankID           string
	Title            string
	TimeLimitMinutes int
	// Sheet defaults to the first sheet of the workbook.
	Sheet      string
	SkipHeader bool
}

// ImportSpreadsheet reads a bank from an .xlsx workbook.
func ImportSpreadsheet(file string, c SpreadsheetConfig) (domain.Bank, error) {
	b := domain.Bank{
		ID:               c.BankID,
		Title:            c.Title,
		TimeLimitMinutes: c.TimeLimitMinutes,
	}

	f, err := excelize.OpenFile(file)
	if err != nil {
		return b, fmt.Errorf("open workbook %s: %w", file, err)
	}
	defer f.Close()

	sheet := c.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return b, fmt.Errorf("read sheet %q of %s: %w", sheet, file, err)
	}

	if c.SkipHeader && len(rows) > 0 {
		rows = rows[1:]
	}

	for i, row := range rows {
		if isBlank(row) {
			continue
		}

		q, err := parseRow(row)
		if err != nil {
			return b, fmt.Errorf("%w: %s row %d: %v", ErrInvalid, sheet, i+1, err)
		}
		b.Questions = append(b.Questions, q)
	}

	if err := ValidateBank(b); err != nil {
		return b, err
	}

	return b, nil
}

func parseRow(row []string) (domain.Question, error) {
	col := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	q := domain.Question{
		ID:          col(0),
		Prompt:      col(1),
		Explanation: col(4),
		Difficulty:  domain.Difficulty(strings.ToLower(col(5))),
		Category:    col(6),
		Points:      1,
	}

	for _, o := range strings.Split(col(2), optionSeparator) {
		if o = strings.TrimSpace(o); o != "" {
			q.Options = append(q.Options, o)
		}
	}

	correct, err := strconv.Atoi(col(3))
	if err != nil {
		return q, fmt.Errorf("correct option %q: %w", col(3), err)
	}
	q.CorrectIndex = correct - 1

	if p := col(7); p != "" {
		q.Points, err = strconv.Atoi(p)
		if err != nil {
			return q, fmt.Errorf("points %q: %w", p, err)
		}
	}

	return q, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
