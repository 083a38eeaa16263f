package page

import (
	"context"
	"errors"
	"fmt"

	"querybridge/internal/cache"
	"querybridge/internal/result"
)

// Size is the fixed system-wide page length in rows.
const Size = 100

// Pager reconstructs staged results from the cache and slices them.
// It never touches the database: every page is cut from the snapshot
// taken at execution time, so all pages of one result are mutually
// consistent even if the underlying table changes between requests.
type Pager struct {
	store cache.Store
}

func NewPager(store cache.Store) *Pager {
	return &Pager{store: store}
}

// GetPage returns the zero-based page of the staged result id. An
// out-of-range page yields an empty slice with hasNextPage=false; an
// unknown or expired id fails with ErrResultNotFound, which is terminal
// since the staged data cannot be regenerated without re-executing.
func (p *Pager) GetPage(ctx context.Context, id string, pageIndex int) (*result.PageResponse, error) {
	if pageIndex < 0 {
		return nil, fmt.Errorf("%w: %d", result.ErrInvalidPageIndex, pageIndex)
	}

	payload, err := p.store.Get(ctx, result.StageKey(id))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, fmt.Errorf("%w: %s", result.ErrResultNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch staged result %s: %w", id, err)
	}

	staged, err := result.DecodeStaged(payload)
	if err != nil {
		return nil, err
	}

	totalRows := len(staged.Rows)
	totalPages := (totalRows + Size - 1) / Size

	start := pageIndex * Size
	end := start + Size

	var rows []result.Row
	switch {
	case start >= totalRows:
		rows = []result.Row{}
		end = totalRows
	case end > totalRows:
		end = totalRows
		rows = staged.Rows[start:end]
	default:
		rows = staged.Rows[start:end]
	}

	return &result.PageResponse{
		Rows:   rows,
		Fields: staged.Fields,
		Metadata: result.PageMetadata{
			TotalRows:       totalRows,
			TotalPages:      totalPages,
			PageSize:        Size,
			CurrentPage:     pageIndex,
			HasNextPage:     end < totalRows,
			HasPreviousPage: start > 0,
		},
	}, nil
}
