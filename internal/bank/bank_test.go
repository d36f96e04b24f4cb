package bank_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/khota/quizrunner/internal/bank"
	"github.com/khota/quizrunner/internal/domain"
)

func TestValidateQuestions(t *testing.T) {
	valid := func() domain.Question {
		return domain.Question{
			ID:           "q1",
			Prompt:       "ما عاصمة مصر؟",
			Options:      []string{"القاهرة", "الإسكندرية", "أسوان"},
			CorrectIndex: 0,
			Difficulty:   domain.DifficultyEasy,
			Points:       1,
		}
	}

	tests := map[string]struct {
		arrange func() []domain.Question
		wantErr string
	}{
		"valid question": {
			arrange: func() []domain.Question { return []domain.Question{valid()} },
		},
		"empty bank": {
			arrange: func() []domain.Question { return nil },
			wantErr: "no questions",
		},
		"correct index past the last option": {
			arrange: func() []domain.Question {
				q := valid()
				q.CorrectIndex = 3
				return []domain.Question{q}
			},
			wantErr: "correct_index",
		},
		"negative correct index": {
			arrange: func() []domain.Question {
				q := valid()
				q.CorrectIndex = -1
				return []domain.Question{q}
			},
			wantErr: "correct_index",
		},
		"unknown difficulty": {
			arrange: func() []domain.Question {
				q := valid()
				q.Difficulty = "impossible"
				return []domain.Question{q}
			},
			wantErr: "difficulty",
		},
		"single option": {
			arrange: func() []domain.Question {
				q := valid()
				q.Options = []string{"a"}
				q.CorrectIndex = 0
				return []domain.Question{q}
			},
			wantErr: "options",
		},
		"empty option text": {
			arrange: func() []domain.Question {
				q := valid()
				q.Options = []string{"a", ""}
				return []domain.Question{q}
			},
			wantErr: "options",
		},
		"missing prompt": {
			arrange: func() []domain.Question {
				q := valid()
				q.Prompt = ""
				return []domain.Question{q}
			},
			wantErr: "prompt",
		},
		"zero points": {
			arrange: func() []domain.Question {
				q := valid()
				q.Points = 0
				return []domain.Question{q}
			},
			wantErr: "points",
		},
		"duplicate ids": {
			arrange: func() []domain.Question { return []domain.Question{valid(), valid()} },
			wantErr: "duplicates",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := bank.ValidateQuestions(tt.arrange())
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, bank.ErrInvalid)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

const yamlBank = `
id: geo
title: الجغرافيا
time_limit_minutes: 10
questions:
  - id: q1
    prompt: ما عاصمة مصر؟
    options: [القاهرة, الإسكندرية]
    correct_index: 0
    explanation: القاهرة هي العاصمة
    difficulty: easy
    category: capitals
    points: 1
  - id: q2
    prompt: أطول نهر في العالم؟
    options: [النيل, الأمازون, الفرات]
    correct_index: 0
    difficulty: medium
    points: 2
`

func TestLoadFile(t *testing.T) {
	file := writeFile(t, "geo.yaml", yamlBank)

	b, err := bank.LoadFile(file)
	require.NoError(t, err)

	assert.Equal(t, "geo", b.ID)
	assert.Equal(t, 10, b.TimeLimitMinutes)
	require.Len(t, b.Questions, 2)
	assert.Equal(t, domain.Question{
		ID:           "q1",
		Prompt:       "ما عاصمة مصر؟",
		Options:      []string{"القاهرة", "الإسكندرية"},
		CorrectIndex: 0,
		Explanation:  "القاهرة هي العاصمة",
		Difficulty:   domain.DifficultyEasy,
		Category:     "capitals",
		Points:       1,
	}, b.Questions[0])
}

func TestLoadFile_RejectsUnknownKeys(t *testing.T) {
	file := writeFile(t, "bad.yaml", yamlBank+"colour: blue\n")

	_, err := bank.LoadFile(file)
	require.ErrorIs(t, err, bank.ErrInvalid)
}

func TestLoadFile_RejectsInvalidQuestion(t *testing.T) {
	file := writeFile(t, "bad.json", `{"id":"b","questions":[{"id":"q1","prompt":"p","options":["a","b"],"correct_index":2,"difficulty":"easy","points":1}]}`)

	_, err := bank.LoadFile(file)
	require.ErrorIs(t, err, bank.ErrInvalid)
}

func TestImportSpreadsheet(t *testing.T) {
	file := writeWorkbook(t, "grammar.xlsx", [][]any{
		{"id", "prompt", "options", "correct", "explanation", "difficulty", "category", "points"},
		{"g1", "جمع كتاب؟", "كتب | كتابات | كاتب", 1, "جمع تكسير", "Easy", "plural", 2},
		{},
		{"g2", "مفرد أقلام؟", "قلم|أقلام", 1, "", "medium", "", ""},
	})

	b, err := bank.ImportSpreadsheet(file, bank.SpreadsheetConfig{
		BankID:     "grammar",
		SkipHeader: true,
	})
	require.NoError(t, err)

	require.Len(t, b.Questions, 2)
	assert.Equal(t, []string{"كتب", "كتابات", "كاتب"}, b.Questions[0].Options)
	assert.Equal(t, 0, b.Questions[0].CorrectIndex)
	assert.Equal(t, domain.DifficultyEasy, b.Questions[0].Difficulty)
	assert.Equal(t, 2, b.Questions[0].Points)
	assert.Equal(t, 1, b.Questions[1].Points, "blank points default to 1")
}

func TestImportSpreadsheet_BadCorrectColumn(t *testing.T) {
	file := writeWorkbook(t, "bad.xlsx", [][]any{
		{"g1", "p", "a|b", "first", "", "easy", "", 1},
	})

	_, err := bank.ImportSpreadsheet(file, bank.SpreadsheetConfig{BankID: "bad"})
	require.ErrorIs(t, err, bank.ErrInvalid)
}

func TestRegistry_LoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "geo.yaml"), []byte(yamlBank), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignored"), 0o600))
	saveWorkbook(t, filepath.Join(dir, "grammar.xlsx"), [][]any{
		{"id", "prompt", "options", "correct", "explanation", "difficulty", "category", "points"},
		{"g1", "p", "a|b", 2, "", "hard", "", 1},
	})

	r := bank.NewRegistry()
	n, err := r.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	banks := r.List()
	require.Len(t, banks, 2)
	assert.Equal(t, "geo", banks[0].ID)
	assert.Equal(t, "grammar", banks[1].ID)

	g, ok := r.Get("grammar")
	require.True(t, ok)
	assert.Equal(t, 1, g.Questions[0].CorrectIndex)
}

func TestRegistry_Add_Duplicate(t *testing.T) {
	r := bank.NewRegistry()
	b := domain.Bank{
		ID: "b1",
		Questions: []domain.Question{
			{ID: "q1", Prompt: "p", Options: []string{"a", "b"}, Difficulty: domain.DifficultyHard, Points: 1},
		},
	}

	require.NoError(t, r.Add(b))
	require.ErrorIs(t, r.Add(b), bank.ErrInvalid)

	_, ok := r.Get("missing")
	assert.False(t, ok)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	file := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	return file
}

func writeWorkbook(t *testing.T, name string, rows [][]any) string {
	t.Helper()

	file := filepath.Join(t.TempDir(), name)
	saveWorkbook(t, file, rows)
	return file
}

func saveWorkbook(t *testing.T, file string, rows [][]any) {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(file))
}

func ExampleValidateBank() {
	err := bank.ValidateBank(domain.Bank{ID: "empty"})
	fmt.Println(err)
	// Output: bank "empty": invalid question bank: no questions
}
