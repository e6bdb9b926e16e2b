package repositories

import (
	"context"
	"fmt"
	"sync"

	"github.com/tiv91/intimshopbot/models"
)

// fakeSheets is an in-memory spreadsheet used by the catalog and order tests.
type fakeSheets struct {
	mu       sync.Mutex
	titles   []string
	rows     map[string][][]interface{}
	appended map[string][][]interface{}
	err      error
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{
		rows:     make(map[string][][]interface{}),
		appended: make(map[string][][]interface{}),
	}
}

func (f *fakeSheets) addSheet(title string, rows ...[]interface{}) {
	f.titles = append(f.titles, title)
	f.rows[title] = rows
}

func (f *fakeSheets) SheetTitles(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]string{}, f.titles...), nil
}

func (f *fakeSheets) Rows(_ context.Context, sheet string) ([][]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	rows, ok := f.rows[sheet]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrCategoryNotFound, sheet)
	}
	return rows, nil
}

func (f *fakeSheets) AppendRow(_ context.Context, sheet string, row []interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.appended[sheet] = append(f.appended[sheet], row)
	return nil
}
