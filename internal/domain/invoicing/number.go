package invoicing

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hwmix/backend/internal/domain/shared"
)

// serialWidth is the zero-padded width of the trailing serial segment.
const serialWidth = 6

// invoiceDateLayout formats the date segment of an invoice number (yyMMdd).
const invoiceDateLayout = "060102"

// FormatInvoiceNumber builds an invoice number from its segments:
// {SHORT_CODE}-{yyMMdd}-{company prefix}-{serial}. The company segment uses
// the first eight hex characters of the company UUID so numbers stay
// readable while remaining company-scoped.
func FormatInvoiceNumber(typeCode string, companyID uuid.UUID, at time.Time, serial int64) string {
	return fmt.Sprintf("%s-%s-%s-%0*d",
		ShortCodeFor(typeCode),
		at.Format(invoiceDateLayout),
		CompanySegment(companyID),
		serialWidth, serial,
	)
}

// CompanySegment derives the company segment of an invoice number
func CompanySegment(companyID uuid.UUID) string {
	return companyID.String()[:8]
}

// ParseSerial extracts the numeric serial from the last six characters of an
// invoice number. Returns 0 for an empty number (no previous invoice).
func ParseSerial(invoiceNumber string) (int64, error) {
	if invoiceNumber == "" {
		return 0, nil
	}
	if len(invoiceNumber) < serialWidth {
		return 0, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number too short to carry a serial")
	}
	serial, err := strconv.ParseInt(invoiceNumber[len(invoiceNumber)-serialWidth:], 10, 64)
	if err != nil {
		return 0, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number serial is not numeric")
	}
	return serial, nil
}
