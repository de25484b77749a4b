package sheets

import (
	"context"

	"getricher/internal/core"
)

// Ports for outbound adapters.
type (
	// VendorReportWriter exports a vendor breakdown and returns a reference
	// to where it was written.
	VendorReportWriter interface {
		WriteVendorReport(ctx context.Context, r core.VendorReport) (ref string, err error)
	}
)
