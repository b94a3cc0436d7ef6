// Package memory keeps exported summaries in process, for tests and for
// running without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"emianalyzer/internal/report"
	"emianalyzer/internal/sheets"
)

type Sheet struct {
	mu   sync.Mutex
	name string
	rows [][]any
}

var _ sheets.SummaryWriter = (*Sheet)(nil)

func New(name string) *Sheet {
	if name == "" {
		name = "Users"
	}
	return &Sheet{name: name}
}

// AppendUserSummary mirrors the Google client: header on first write.
func (s *Sheet) AppendUserSummary(_ context.Context, rows []report.UserRow, generatedAt time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := sheets.SummaryValues(rows, generatedAt)
	if len(s.rows) == 0 {
		values = append([][]any{sheets.SummaryHeader}, values...)
	}
	if len(values) == 0 {
		return "", nil
	}
	first := len(s.rows) + 1
	s.rows = append(s.rows, values...)
	return sheets.A1Range(s.name, fmt.Sprintf("A%d:L%d", first, len(s.rows))), nil
}

// Rows returns a copy of everything written so far, header included.
func (s *Sheet) Rows() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.rows))
	for i, row := range s.rows {
		out[i] = append([]any(nil), row...)
	}
	return out
}
