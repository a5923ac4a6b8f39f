package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iwvelando/loan-arrears/internal/simulation"
	"github.com/iwvelando/loan-arrears/pkg/datetime"
	"github.com/iwvelando/loan-arrears/pkg/format"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// errInputClosed is returned when the prompt runs out of input before the
// loan is settled.
var errInputClosed = errors.New("input closed before the loan was settled")

// promptSource asks a person for each month's payment decision.
type promptSource struct {
	in  *bufio.Scanner
	out io.Writer
	p   *message.Printer
}

func newPromptSource(in io.Reader, out io.Writer) *promptSource {
	return &promptSource{
		in:  bufio.NewScanner(in),
		out: out,
		p:   message.NewPrinter(language.English),
	}
}

func (s *promptSource) readLine(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	_, _ = s.p.Fprint(s.out, prompt)
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", err
		}
		return "", errInputClosed
	}
	return strings.TrimSpace(s.in.Text()), nil
}

// RequestMonthlyPayment shows the quote and reads an amount and an optional
// payment date. A blank amount is a missed month; malformed input is asked
// again.
func (s *promptSource) RequestMonthlyPayment(ctx context.Context, quote simulation.Quote) (simulation.Payment, error) {
	_, _ = s.p.Fprintf(s.out, "\nMonth %d, due %s\n", quote.MonthIndex, datetime.FormatDate(quote.DueDate))
	_, _ = s.p.Fprintf(s.out, "  Balance:              %s\n", format.Currency(quote.BalanceBefore))
	_, _ = s.p.Fprintf(s.out, "  Interest this month:  %s\n", format.Currency(quote.InterestAccrued))
	_, _ = s.p.Fprintf(s.out, "  Expected installment: %s\n", format.Currency(quote.ExpectedInstallment))
	if quote.PastOriginalTerm {
		_, _ = s.p.Fprintf(s.out, "  The original term has ended; the whole balance is due.\n")
	}

	var amount decimal.Decimal
	for {
		line, err := s.readLine(ctx, "Amount paid (blank if the payment was missed): ")
		if err != nil {
			return simulation.Payment{}, err
		}
		if line == "" {
			return simulation.Missed(), nil
		}
		amount, err = parseAmount(line)
		if err != nil {
			_, _ = s.p.Fprintf(s.out, "  %v, try again\n", err)
			continue
		}
		if amount.IsNegative() {
			_, _ = s.p.Fprintf(s.out, "  Negative amounts are treated as 0\n")
			amount = decimal.Zero
		}
		break
	}

	for {
		line, err := s.readLine(ctx, "Paid on (YYYY-MM-DD, blank if on time): ")
		if err != nil {
			return simulation.Payment{}, err
		}
		if line == "" {
			return simulation.Paid(amount), nil
		}
		paidOn, err := datetime.ParseDate(line)
		if err != nil {
			_, _ = s.p.Fprintf(s.out, "  %v, try again\n", err)
			continue
		}
		return simulation.PaidOn(amount, paidOn), nil
	}
}

// askDate reads a date, asking again until it parses.
func (s *promptSource) askDate(ctx context.Context, prompt string) (time.Time, error) {
	for {
		line, err := s.readLine(ctx, prompt)
		if err != nil {
			return time.Time{}, err
		}
		date, err := datetime.ParseDate(line)
		if err == nil {
			return date, nil
		}
		_, _ = s.p.Fprintf(s.out, "  %v, try again\n", err)
	}
}

// parseAmount accepts plain or currency-formatted input such as "$1,234.50".
func parseAmount(line string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(line)
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q is not an amount", line)
	}
	return amount, nil
}
