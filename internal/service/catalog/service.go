package catalog

import (
	"context"
	"fmt"
	"math"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"storefront/internal/cache"
	"storefront/internal/domain"
	"storefront/internal/logger"
)

const defaultChunkSize = 50

type itemRepo interface {
	Count(ctx context.Context, search string) (int64, error)
	List(ctx context.Context, search string, sort domain.Sort, offset, limit int) ([]domain.Item, error)
	GetByID(ctx context.Context, id int64) (*domain.Item, error)
}

// Service serves catalog pages out of a growing per-key prefix cache and
// item cards out of an LRU.
type Service struct {
	items     itemRepo
	pages     cache.PageStore
	cards     *lru.Cache[int64, domain.ItemCard]
	chunkSize int
	logger    *zap.Logger
}

type Options struct {
	// ChunkSize bounds a single fetch while extending a cached prefix.
	ChunkSize int
	// CardCacheSize bounds the item card cache.
	CardCacheSize int
}

func New(items itemRepo, pages cache.PageStore, opts Options, l *zap.Logger) (*Service, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.CardCacheSize <= 0 {
		opts.CardCacheSize = 1024
	}
	cards, err := lru.New[int64, domain.ItemCard](opts.CardCacheSize)
	if err != nil {
		return nil, err
	}
	return &Service{
		items:     items,
		pages:     pages,
		cards:     cards,
		chunkSize: opts.ChunkSize,
		logger:    logger.OrNop(l).Named("catalog"),
	}, nil
}

type PageQuery struct {
	Search     string
	Sort       domain.Sort
	PageNumber int // 1-based
	PageSize   int
}

// Key is the cache key for a search text and sort mode.
func Key(search string, sort domain.Sort) string {
	return normalize(search) + "|" + string(sort)
}

func normalize(search string) string {
	return strings.TrimSpace(strings.ToLower(search))
}

// Page returns one page of the listing for q. The total is counted once per
// key and rows are fetched only past the end of the cached prefix.
func (s *Service) Page(ctx context.Context, q PageQuery) (domain.Page[domain.ItemListDto], error) {
	if q.PageNumber < 1 || q.PageSize <= 0 || int64(q.PageNumber-1) > (math.MaxInt64-int64(q.PageSize))/int64(q.PageSize) {
		return domain.Page[domain.ItemListDto]{}, domain.ErrInvalidPage
	}
	if q.Sort == "" {
		q.Sort = domain.SortNone
	}
	search := normalize(q.Search)
	key := Key(search, q.Sort)

	entry, found, err := s.pages.Load(ctx, key)
	if err != nil {
		return domain.Page[domain.ItemListDto]{}, fmt.Errorf("load page %s: %w", key, err)
	}
	if !found {
		entry = domain.EmptyCachedPage()
	}
	expected := entry.Version
	dirty := false

	total := entry.Total
	if total == domain.TotalUnknown {
		if total, err = s.items.Count(ctx, search); err != nil {
			return domain.Page[domain.ItemListDto]{}, fmt.Errorf("count items: %w", err)
		}
		dirty = true
	}

	start := int64(q.PageNumber-1) * int64(q.PageSize)
	neededUpTo := min(start+int64(q.PageSize), total)

	items := entry.Items
	if int64(len(items)) < neededUpTo {
		if items, err = s.extend(ctx, search, q.Sort, items, int(neededUpTo)); err != nil {
			return domain.Page[domain.ItemListDto]{}, err
		}
		dirty = true
	}

	if dirty {
		stored, err := s.pages.Store(ctx, key, expected, domain.CachedPage{Total: total, Items: items})
		if err != nil {
			return domain.Page[domain.ItemListDto]{}, fmt.Errorf("store page %s: %w", key, err)
		}
		entry = stored
	}

	return domain.Page[domain.ItemListDto]{
		Content:       window(entry.Items, start, int64(q.PageSize)),
		PageNumber:    q.PageNumber,
		PageSize:      q.PageSize,
		TotalElements: entry.Total,
	}, nil
}

// extend returns a new slice holding prefix followed by rows fetched until it
// reaches upTo or the catalog runs out. prefix itself is never modified.
func (s *Service) extend(ctx context.Context, search string, sort domain.Sort, prefix []domain.ItemListDto, upTo int) ([]domain.ItemListDto, error) {
	grown := make([]domain.ItemListDto, len(prefix), upTo)
	copy(grown, prefix)

	for len(grown) < upTo {
		limit := min(upTo-len(grown), s.chunkSize)
		chunk, err := s.items.List(ctx, search, sort, len(grown), limit)
		if err != nil {
			return nil, fmt.Errorf("list items offset=%d: %w", len(grown), err)
		}
		for _, it := range chunk {
			grown = append(grown, it.ListView())
		}
		if len(chunk) < limit {
			s.logger.Debug("catalog exhausted before expected total",
				zap.String("search", search),
				zap.String("sort", string(sort)),
				zap.Int("have", len(grown)),
				zap.Int("want", upTo),
			)
			break
		}
	}
	return grown, nil
}

func window(items []domain.ItemListDto, start, size int64) []domain.ItemListDto {
	n := int64(len(items))
	if start < 0 || start >= n {
		return []domain.ItemListDto{}
	}
	end := min(start+size, n)
	out := make([]domain.ItemListDto, end-start)
	copy(out, items[start:end])
	return out
}

// ItemCard returns the single item view, reading through the card cache.
func (s *Service) ItemCard(ctx context.Context, id int64) (domain.ItemCard, error) {
	if card, ok := s.cards.Get(id); ok {
		return card, nil
	}
	it, err := s.items.GetByID(ctx, id)
	if err != nil {
		return domain.ItemCard{}, err
	}
	card := it.Card()
	s.cards.Add(id, card)
	return card, nil
}
