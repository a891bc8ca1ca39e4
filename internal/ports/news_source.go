package ports

import (
	"context"

	"github.com/marketsignal/newsmatch/internal/domain"
)

// NewsSource polls one external news feed. Implementations must give each
// item a stable ID, unique within the source.
type NewsSource interface {
	// FetchLatest returns the most recent items available from the source.
	FetchLatest(ctx context.Context) ([]domain.NewsItem, error)

	// Name is the source's identifier, used as domain.Article.Source.
	Name() string
}
