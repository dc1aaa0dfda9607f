package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"payout-invoice-backend/internal/models"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type valuesFetcher func(ctx context.Context, spreadsheetID, rangeName string) ([][]interface{}, error)

// SheetsSource reads ranges through the Google Sheets API with a service account.
// The API client is created on first use, so a missing credentials file fails the
// request rather than startup. Repeated failures open the breaker and later calls
// fail fast until it half-opens.
type SheetsSource struct {
	credentialsFile string
	logger          *zap.Logger
	breaker         *gobreaker.CircuitBreaker

	mu      sync.Mutex
	fetch   valuesFetcher
	connect func(ctx context.Context) (valuesFetcher, error)
}

func NewSheetsSource(credentialsFile string, logger *zap.Logger) *SheetsSource {
	s := &SheetsSource{
		credentialsFile: credentialsFile,
		logger:          logger,
		breaker:         newSheetsBreaker(logger),
	}
	s.connect = s.dial
	return s
}

func newSheetsBreaker(logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "google-sheets",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

func (s *SheetsSource) FetchTable(ctx context.Context, spreadsheetID, rangeName string) (models.Table, error) {
	fetch, err := s.fetcher()
	if err != nil {
		return models.Table{}, err
	}

	out, err := s.breaker.Execute(func() (interface{}, error) {
		return fetch(ctx, spreadsheetID, rangeName)
	})
	if err != nil {
		s.logger.Error("sheet fetch failed",
			zap.String("spreadsheet_id", spreadsheetID),
			zap.String("range", rangeName),
			zap.Error(err))
		return models.Table{}, fmt.Errorf("%w: %s %s: %v", ErrSourceUnavailable, spreadsheetID, rangeName, err)
	}

	values := out.([][]interface{})
	if len(values) == 0 {
		return models.Table{}, fmt.Errorf("%w: %s %s", ErrNoData, spreadsheetID, rangeName)
	}
	table := newTable(cellsToStrings(values[0]), valuesToStrings(values[1:]))
	fillBlankAmounts(table)
	s.logger.Debug("sheet fetched",
		zap.String("spreadsheet_id", spreadsheetID),
		zap.String("range", rangeName),
		zap.Int("rows", table.Len()))
	return table, nil
}

// fetcher returns the cached client, building it on first use. The client outlives
// any single request, so it is built with a background context.
func (s *SheetsSource) fetcher() (valuesFetcher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetch != nil {
		return s.fetch, nil
	}
	fetch, err := s.connect(context.Background())
	if err != nil {
		return nil, err
	}
	s.fetch = fetch
	return fetch, nil
}

func (s *SheetsSource) dial(ctx context.Context) (valuesFetcher, error) {
	srv, err := sheets.NewService(ctx,
		option.WithCredentialsFile(s.credentialsFile),
		option.WithScopes(sheets.SpreadsheetsReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create sheets client: %v", ErrSourceUnavailable, err)
	}
	return func(ctx context.Context, spreadsheetID, rangeName string) ([][]interface{}, error) {
		resp, err := srv.Spreadsheets.Values.Get(spreadsheetID, rangeName).Context(ctx).Do()
		if err != nil {
			return nil, err
		}
		return resp.Values, nil
	}, nil
}

func valuesToStrings(values [][]interface{}) [][]string {
	out := make([][]string, 0, len(values))
	for _, row := range values {
		out = append(out, cellsToStrings(row))
	}
	return out
}

func cellsToStrings(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		if v == nil {
			continue
		}
		out[i] = fmt.Sprint(v)
	}
	return out
}
