// Package articles wires the article search core into the operations callers
// use: posting articles, listing them, title/content/condition/term lookups
// and view aggregation.
package articles

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/articles/internal/config"
	"github.com/hyperjump/articles/internal/docstore"
	"github.com/hyperjump/articles/internal/indexer"
	"github.com/hyperjump/articles/internal/metrics"
	"github.com/hyperjump/articles/internal/models"
	"github.com/hyperjump/articles/internal/query"
	"github.com/hyperjump/articles/internal/search"
	"github.com/hyperjump/articles/internal/storage"
	"github.com/hyperjump/articles/internal/store"
	"github.com/hyperjump/articles/pkg/utils"
	"go.uber.org/zap"
)

// TitleMode selects how a title lookup matches.
type TitleMode string

const (
	// TitleMatch matches any analyzed token of the title.
	TitleMatch TitleMode = "match"
	// TitleTerm matches the whole title exactly, case-sensitive.
	TitleTerm TitleMode = "term"
	// TitlePrefix matches titles starting with the given text, case-sensitive.
	TitlePrefix TitleMode = "prefix"
	// TitlePhrase matches the tokens contiguous and in order.
	TitlePhrase TitleMode = "phrase"
)

// Service holds the initialized components behind the article operations.
type Service struct {
	cfg     *config.Config
	rows    *storage.SQLiteStorage
	docs    *docstore.Store
	client  store.Client
	indexer *indexer.Indexer
	engine  *search.Engine
	logger  *zap.Logger
}

// Status summarizes the article index.
type Status struct {
	Index          string `json:"index"`
	Articles       int64  `json:"articles"`
	DiskUsageBytes int64  `json:"disk_usage_bytes"`
	InMemory       bool   `json:"in_memory"`
}

// New opens the row database and the article indices described by cfg. A nil
// logger is replaced by one built from cfg.Debug.
func New(cfg *config.Config, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		l, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l
	}
	rows, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	indexPath := cfg.Storage.BleveIndexPath
	if cfg.Storage.InMemory {
		indexPath = ""
	}
	docs := docstore.New(rows, indexPath, docstore.WithLogger(logger))

	metrics.RegisterStoreMetrics()
	client := store.NewInstrumentedClient(docs, logger)

	idxOpts := []indexer.IndexerOption{}
	engineOpts := []search.EngineOption{search.WithLogger(logger)}
	if cfg.Debug {
		idxOpts = append(idxOpts, indexer.WithLogger(logger))
	}

	return &Service{
		cfg:     cfg,
		rows:    rows,
		docs:    docs,
		client:  client,
		indexer: indexer.NewIndexer(client, idxOpts...),
		engine:  search.NewEngine(client, &cfg.Search, &cfg.Scan, engineOpts...),
		logger:  logger,
	}, nil
}

// Close releases the indices and the row database.
func (s *Service) Close() error {
	docsErr := s.docs.Close()
	rowsErr := s.rows.Close()
	if docsErr != nil {
		return docsErr
	}
	return rowsErr
}

// Post provisions the article index if needed and upserts articles into it.
func (s *Service) Post(ctx context.Context, articles []*models.Article) (*store.BulkResponse, error) {
	if err := s.indexer.EnsureIndex(ctx, s.cfg.Index.Name); err != nil {
		return nil, err
	}
	return s.indexer.UpsertAll(ctx, s.cfg.Index.Name, articles)
}

// GetAll returns every article through a cursor scan.
func (s *Service) GetAll(ctx context.Context) ([]*models.Article, error) {
	return s.engine.ScanAll(ctx, s.cfg.Index.Name, query.MatchAll(), s.cfg.Scan.PageSize, s.cfg.Scan.CursorTimeout)
}

// Recent returns the newest articles, at most limit (configured default when 0).
func (s *Service) Recent(ctx context.Context, limit int) ([]*models.Article, error) {
	return s.engine.Search(ctx, s.cfg.Index.Name, query.MatchAll(), models.DefaultSort, 0, limit)
}

// Get returns one article by id.
func (s *Service) Get(ctx context.Context, id string) (*models.Article, error) {
	return s.engine.Get(ctx, s.cfg.Index.Name, id)
}

// GetByTitle looks articles up by title, newest first. An empty mode means TitleMatch.
func (s *Service) GetByTitle(ctx context.Context, title string, mode TitleMode) ([]*models.Article, error) {
	var f query.Filters
	switch mode {
	case TitleMatch, "":
		f.Title = title
	case TitleTerm:
		f.TitleExact = title
	case TitlePrefix:
		f.TitlePrefix = title
	case TitlePhrase:
		f.TitlePhrase = title
	default:
		return nil, fmt.Errorf("unknown title mode %q", mode)
	}
	return s.engine.Search(ctx, s.cfg.Index.Name, query.Compose(f), models.DefaultSort, 0, s.cfg.Search.TitleLimit)
}

// GetByContent returns articles whose content contains the phrase, newest first.
func (s *Service) GetByContent(ctx context.Context, content string) ([]*models.Article, error) {
	expr := query.Compose(query.Filters{ContentPhrase: content})
	return s.engine.Search(ctx, s.cfg.Index.Name, expr, models.DefaultSort, 0, 0)
}

// GetByCondition returns articles matching every filter set in title,
// content and publishDate. A nil publishDate leaves the date unfiltered.
func (s *Service) GetByCondition(ctx context.Context, title, content string, publishDate *time.Time) ([]*models.Article, error) {
	return s.Find(ctx, query.Filters{Title: title, Content: content, PublishDate: publishDate}, models.DefaultSort, 0, 0)
}

// Find returns one page of articles matching f.
func (s *Service) Find(ctx context.Context, f query.Filters, sort models.Sort, offset, limit int) ([]*models.Article, error) {
	return s.engine.Search(ctx, s.cfg.Index.Name, query.Compose(f), sort, offset, limit)
}

// GetByTerm returns articles with content whose title, content or author
// contains term as a phrase.
func (s *Service) GetByTerm(ctx context.Context, term string) ([]*models.Article, error) {
	return s.engine.Search(ctx, s.cfg.Index.Name, query.MultiFieldMatch(term), models.DefaultSort, 0, 0)
}

// Aggregation sums and averages total views over articles that have content.
func (s *Service) Aggregation(ctx context.Context) (*models.ArticleAggregation, error) {
	return s.engine.Aggregate(ctx, s.cfg.Index.Name, query.Exists(models.FieldContent), models.FieldTotalViews)
}

// Status reports the article count and on-disk footprint.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	count, err := s.rows.CountArticles(ctx, s.cfg.Index.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to count articles: %w", err)
	}
	st := &Status{
		Index:    s.cfg.Index.Name,
		Articles: count,
		InMemory: s.cfg.Storage.InMemory,
	}
	if !s.cfg.Storage.InMemory {
		diskBytes, err := storage.DiskUsageBytes(s.cfg.Storage.DatabasePath, s.cfg.Storage.BleveIndexPath)
		if err != nil {
			s.logger.Warn("status: disk usage failed", zap.Error(err))
		} else {
			st.DiskUsageBytes = diskBytes
		}
	}
	return st, nil
}
