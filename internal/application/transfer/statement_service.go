package transfer

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/horizonbank/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
	"github.com/horizonbank/backend/internal/infrastructure/telemetry"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// StatementService renders a monthly account statement from the ledger
// and archives the rendered document durably.
type StatementService struct {
	transactions ledger.TransactionRepository
	accounts     ledger.AccountRepository
	archive      StatementArchive
	printer      *message.Printer
}

// NewStatementService creates a new StatementService
func NewStatementService(
	transactions ledger.TransactionRepository,
	accounts ledger.AccountRepository,
	archive StatementArchive,
) *StatementService {
	return &StatementService{
		transactions: transactions,
		accounts:     accounts,
		archive:      archive,
		printer:      message.NewPrinter(language.AmericanEnglish),
	}
}

// Statement is a rendered monthly statement and its archive location
type Statement struct {
	Key         string    `json:"key"`
	OwnerID     uuid.UUID `json:"owner_id"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	RowCount    int       `json:"row_count"`
	Body        string    `json:"-"`
}

// GenerateMonthly renders the statement for one identity and calendar
// month, archives it, and returns the result
func (s *StatementService) GenerateMonthly(
	ctx context.Context,
	ownerID uuid.UUID,
	year int,
	month time.Month,
) (*Statement, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "statement", "generate_monthly")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrOwnerID, ownerID.String())

	account, err := s.accounts.FindByOwnerID(ctx, ownerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	rows, _, err := s.transactions.List(ctx, ledger.TransactionFilter{
		OwnerID: &ownerID,
		From:    &start,
		To:      &end,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	body := s.render(account, rows, start, end)
	key := fmt.Sprintf("statements/%s/%04d-%02d.txt", ownerID, year, int(month))

	if s.archive != nil {
		if err := s.archive.Put(ctx, key, []byte(body), "text/plain; charset=utf-8"); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to archive statement: %w", err)
		}
	}

	return &Statement{
		Key:         key,
		OwnerID:     ownerID,
		PeriodStart: start,
		PeriodEnd:   end,
		RowCount:    len(rows),
		Body:        body,
	}, nil
}

func (s *StatementService) render(
	account *ledger.Account,
	rows []*ledger.Transaction,
	start, end time.Time,
) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "HORIZON BANK STATEMENT\n")
	fmt.Fprintf(&buf, "Account holder: %s\n", account.DisplayName)
	fmt.Fprintf(&buf, "Period: %s to %s\n\n",
		start.Format("2006-01-02"), end.AddDate(0, 0, -1).Format("2006-01-02"))

	fmt.Fprintf(&buf, "Closing balances:\n")
	fmt.Fprintf(&buf, "  Checking: %s\n", s.money(account.Checking))
	fmt.Fprintf(&buf, "  Savings:  %s\n", s.money(account.Savings))
	fmt.Fprintf(&buf, "  Crypto:   %s units\n\n", account.Crypto.String())

	fmt.Fprintf(&buf, "%-12s %-12s %-10s %14s  %s\n",
		"Date", "Type", "Account", "Amount", "Description")
	for _, row := range rows {
		fmt.Fprintf(&buf, "%-12s %-12s %-10s %14s  %s\n",
			row.Timestamp.Format("2006-01-02"),
			row.Type,
			row.AccountKind,
			s.money(row.Amount),
			row.Description)
	}
	if len(rows) == 0 {
		fmt.Fprintf(&buf, "No activity in this period.\n")
	}
	return buf.String()
}

// money renders a signed amount with locale-aware grouping. The digits
// come from the decimal itself so the rendering stays exact.
func (s *StatementService) money(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	abs := rounded.Abs()
	fixed := abs.StringFixed(2)

	sign := ""
	if rounded.IsNegative() {
		sign = "-"
	}
	// The printer only groups the integer part; the fraction is appended
	// verbatim from the fixed-point string.
	return sign + s.printer.Sprintf("$%d", abs.IntPart()) + fixed[len(fixed)-3:]
}
