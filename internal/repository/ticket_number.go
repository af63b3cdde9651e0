package repository

import (
	"context"
	"fmt"
)

// TicketNumberGenerator allocates human-readable ticket numbers. Next must
// be called through the same unit of work as the insert that consumes the
// number: outside a serialized context two racing creations can read the
// same maximum. The unique index on tickets.ticket_number turns that race
// into a failed transaction rather than a duplicate number.
type TicketNumberGenerator interface {
	Next(ctx context.Context, q Querier) (string, error)
}

type ticketNumberGenerator struct{}

// NewTicketNumberGenerator returns the MAX(suffix)+1 generator.
func NewTicketNumberGenerator() TicketNumberGenerator {
	return ticketNumberGenerator{}
}

func (ticketNumberGenerator) Next(ctx context.Context, q Querier) (string, error) {
	const query = `
        SELECT COALESCE(MAX(SUBSTRING(ticket_number FROM 5)::BIGINT), 0)
        FROM tickets`
	var current int64
	if err := q.QueryRow(ctx, query).Scan(&current); err != nil {
		return "", err
	}
	return FormatTicketNumber(current + 1), nil
}

// FormatTicketNumber renders the TKT- prefix with a suffix zero-padded to
// five digits. Past 99999 the suffix simply grows.
func FormatTicketNumber(n int64) string {
	return fmt.Sprintf("TKT-%05d", n)
}
