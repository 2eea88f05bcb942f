package usecase

import (
	"context"

	"github.com/edhedges/receive-kit/internal/domain"
)

// LogFetcher retrieves and decodes the receipt logs for every record's
// transaction. The returned slice is index-aligned with records; a fetch
// failure fails the whole call with no partial result.
type LogFetcher interface {
	FetchLogs(ctx context.Context, records []domain.DataRecord) ([][]domain.DecodedLog, error)
}
