// Package memory is a ReportWriter that keeps reports in memory, for
// development and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"rently/internal/report"
	ports "rently/internal/sheets"
)

type Store struct {
	mu      sync.Mutex
	reports map[string][]report.MonthRow
	writes  int
}

var _ ports.ReportWriter = (*Store)(nil)

func New() *Store {
	return &Store{reports: make(map[string][]report.MonthRow)}
}

// WriteMonthlyReport replaces the stored report and returns a synthetic ref.
func (s *Store) WriteMonthlyReport(_ context.Context, ownerID string, rows []report.MonthRow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[ownerID] = slices.Clone(rows)
	s.writes++
	return fmt.Sprintf("mem:%s:%d", ownerID, s.writes), nil
}

// Report returns the last report written for ownerID.
func (s *Store) Report(ownerID string) ([]report.MonthRow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.reports[ownerID]
	return slices.Clone(rows), ok
}

// Writes counts every WriteMonthlyReport call.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
