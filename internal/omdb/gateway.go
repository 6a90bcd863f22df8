package omdb

import (
	"context"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Clark-Hu/cinerate/internal/domain"
)

// MaxDetails caps how many search matches are expanded into detail records.
const MaxDetails = 5

// Result is what a search returns to API callers. Count always equals len(Results).
type Result struct {
	Results []json.RawMessage `json:"results"`
	Count   int               `json:"count"`
}

// Gateway turns a free-text query into up to MaxDetails detailed OMDb records.
type Gateway struct {
	client Client
	logger zerolog.Logger
}

// NewGateway wraps client.
func NewGateway(client Client, logger zerolog.Logger) *Gateway {
	return &Gateway{
		client: client,
		logger: logger.With().Str("component", "omdb_gateway").Logger(),
	}
}

// Search looks query up and fetches details for the first MaxDetails matches concurrently.
// Matches whose detail call fails are left out; the rest keep search order.
func (g *Gateway) Search(ctx context.Context, query string) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, domain.ErrBadRequest
	}

	found, err := g.client.Search(ctx, query)
	if err != nil {
		return Result{}, &domain.UnavailableError{Service: "omdb", Err: err}
	}
	if !found.Found || len(found.Matches) == 0 {
		if found.Error != "" {
			g.logger.Debug().Str("query", query).Str("omdb_error", found.Error).Msg("omdb search returned no results")
		}
		return Result{Results: []json.RawMessage{}, Count: 0}, nil
	}

	matches := found.Matches
	if len(matches) > MaxDetails {
		matches = matches[:MaxDetails]
	}

	slots := make([]json.RawMessage, len(matches))
	var group errgroup.Group
	group.SetLimit(MaxDetails)
	for i, match := range matches {
		i, match := i, match
		group.Go(func() error {
			detail, err := g.client.Detail(ctx, match.IMDbID)
			if err != nil {
				g.logger.Debug().Err(err).Str("imdb_id", match.IMDbID).Msg("dropping omdb detail")
				return nil
			}
			slots[i] = detail
			return nil
		})
	}
	_ = group.Wait()

	results := make([]json.RawMessage, 0, len(slots))
	for _, detail := range slots {
		if detail != nil {
			results = append(results, detail)
		}
	}
	return Result{Results: results, Count: len(results)}, nil
}
