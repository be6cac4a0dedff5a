package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"news_pusher/internal/domain"
	"news_pusher/internal/feishu"
)

type Source interface {
	URL() string
	Fetch(ctx context.Context) ([]byte, error)
}

type Parser interface {
	Parse(page []byte) ([]domain.NewsItem, error)
}

type Formatter interface {
	Format(items []domain.NewsItem) feishu.Message
}

type Pusher interface {
	Send(ctx context.Context, msg feishu.Message) error
}

type StateStore interface {
	Load(ctx context.Context) (*domain.SeenSet, error)
	Save(ctx context.Context, set *domain.SeenSet) error
}

// Publisher mirrors delivered items elsewhere. It is optional.
type Publisher interface {
	Publish(ctx context.Context, runID string, item domain.NewsItem) error
	Close() error
}
