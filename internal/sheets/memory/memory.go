package memory

import (
	"context"
	"fmt"
	"sync"

	"getricher/internal/core"
	ports "getricher/internal/sheets"
)

// maxReports bounds the retained history; older reports are dropped first.
const maxReports = 50

// Store keeps the most recent exported vendor reports in memory.
type Store struct {
	mu      sync.Mutex
	reports []core.VendorReport
	written int
}

var _ ports.VendorReportWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// WriteVendorReport stores the report and returns a synthetic reference.
func (s *Store) WriteVendorReport(_ context.Context, r core.VendorReport) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.Vendors = append([]core.VendorSpending(nil), r.Vendors...)
	s.reports = append(s.reports, r)
	if len(s.reports) > maxReports {
		s.reports = append([]core.VendorReport(nil), s.reports[len(s.reports)-maxReports:]...)
	}
	s.written++
	return fmt.Sprintf("mem:%d", s.written), nil
}

// Reports returns the retained reports, oldest first.
func (s *Store) Reports() []core.VendorReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.VendorReport(nil), s.reports...)
}
