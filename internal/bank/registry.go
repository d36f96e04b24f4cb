package bank

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/khota/quizrunner/internal/domain"
)

// Registry is an in-memory catalogue of validated banks. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	banks map[string]domain.Bank
}

func NewRegistry() *Registry {
	return &Registry{banks: make(map[string]domain.Bank)}
}

// Add validates b and adds it to the registry. Bank IDs must be unique.
func (r *Registry) Add(b domain.Bank) error {
	if err := ValidateBank(b); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.banks[b.ID]; ok {
		return fmt.Errorf("%w: duplicate bank id %q", ErrInvalid, b.ID)
	}
	r.banks[b.ID] = b

	return nil
}

func (r *Registry) Get(id string) (domain.Bank, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.banks[id]
	return b, ok
}

// List returns all banks sorted by ID.
func (r *Registry) List() []domain.Bank {
	r.mu.RLock()
	defer r.mu.RUnlock()

	banks := make([]domain.Bank, 0, len(r.banks))
	for _, b := range r.banks {
		banks = append(banks, b)
	}
	slices.SortFunc(banks, func(a, b domain.Bank) int {
		return strings.Compare(a.ID, b.ID)
	})

	return banks
}

// LoadDir loads every bank file in dir. Spreadsheets take their bank ID from the file name.
// It stops at the first invalid bank and returns the number of banks loaded before it.
func (r *Registry) LoadDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read bank dir: %w", err)
	}

	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		file := filepath.Join(dir, e.Name())
		ext := strings.ToLower(filepath.Ext(e.Name()))

		var b domain.Bank
		switch ext {
		case ".yaml", ".yml", ".json", ".toml":
			b, err = LoadFile(file)
		case ".xlsx":
			b, err = ImportSpreadsheet(file, SpreadsheetConfig{
				BankID:     strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
				SkipHeader: true,
			})
		default:
			continue
		}
		if err != nil {
			return n, err
		}

		if err := r.Add(b); err != nil {
			return n, fmt.Errorf("%s: %w", file, err)
		}
		n++
	}

	return n, nil
}
