package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edhedges/receive-kit/internal/domain"
)

// Client fetches transaction receipts from the configured provider and
// decodes their logs. One Client serves all requests; connections are opened
// per FetchLogs call.
type Client struct {
	providerURL string
	decoder     *EventDecoder
	timeout     time.Duration
	log         zerolog.Logger
}

func NewClient(providerURL string, decoder *EventDecoder, timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		providerURL: providerURL,
		decoder:     decoder,
		timeout:     timeout,
		log:         logger.With().Str("component", "chain").Logger(),
	}
}

// FetchLogs retrieves and decodes the receipt logs of every record's
// transaction concurrently. The result is index-aligned with records no
// matter which fetch finishes first. Any failed fetch fails the whole call;
// sibling fetches are cancelled and no partial result is returned.
func (c *Client) FetchLogs(ctx context.Context, records []domain.DataRecord) ([][]domain.DecodedLog, error) {
	eth, err := ethclient.DialContext(ctx, c.providerURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", domain.ErrChainUnavailable, c.providerURL, err)
	}
	defer eth.Close()

	results := make([][]domain.DecodedLog, len(records))
	g, gctx := errgroup.WithContext(ctx)
	for i, record := range records {
		i, record := i, record
		g.Go(func() error {
			logs, err := c.fetchOne(gctx, eth, record.Tx())
			if err != nil {
				return err
			}
			results[i] = logs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Client) fetchOne(ctx context.Context, eth *ethclient.Client, tx string) ([]domain.DecodedLog, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	receipt, err := eth.TransactionReceipt(ctx, common.HexToHash(tx))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("%w: tx %s", domain.ErrReceiptNotFound, tx)
		}
		return nil, fmt.Errorf("%w: receipt %s: %v", domain.ErrChainUnavailable, tx, err)
	}

	decoded := c.decoder.Decode(receipt.Logs)
	c.log.Debug().Str("tx", tx).Int("raw_logs", len(receipt.Logs)).Int("decoded", len(decoded)).Msg("fetched receipt")
	return decoded, nil
}
