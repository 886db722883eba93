package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"divorce-wizard/internal/common/logger"
	"divorce-wizard/internal/models"
)

var ErrPostNotFound = errors.New("POST_NOT_FOUND")

const (
	DefaultLatest   = 3
	DefaultPageSize = 10
	MaxPageSize     = 50
	searchSize      = 20
)

// Querier runs GROQ queries. CMSClient satisfies it.
type Querier interface {
	Query(ctx context.Context, groq string, params map[string]interface{}, out interface{}) error
}

// Page is one page of the blog listing.
type Page struct {
	Posts    []models.BlogPost `json:"posts"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
	Total    int               `json:"total"`
}

// Service serves blog content from the CMS, cached in Redis, and searched in
// Elasticsearch. cache and search may be nil.
type Service struct {
	cms    Querier
	cache  *Cache
	search *SearchIndex
	log    logger.Logger
}

func NewService(cms Querier, cache *Cache, search *SearchIndex, log logger.Logger) *Service {
	return &Service{cms: cms, cache: cache, search: search, log: log}
}

// Latest returns the n most recently published posts.
func (s *Service) Latest(ctx context.Context, n int) ([]models.BlogPost, error) {
	if n <= 0 {
		n = DefaultLatest
	}
	key := fmt.Sprintf("latest:%d", n)
	var posts []models.BlogPost
	if s.cached(ctx, key, &posts) {
		return posts, nil
	}

	groq := fmt.Sprintf("%s | order(publishedAt desc) [0...%d] %s", publishedPosts, n, postProjection)
	if err := s.cms.Query(ctx, groq, nil, &posts); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []models.BlogPost{}
	}
	s.store(ctx, key, posts)
	return posts, nil
}

// List returns a page of posts, newest first. Pages start at 1.
func (s *Service) List(ctx context.Context, page, size int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	key := fmt.Sprintf("list:%d:%d", page, size)
	var out Page
	if s.cached(ctx, key, &out) {
		return &out, nil
	}

	start := (page - 1) * size
	groq := fmt.Sprintf(`{"posts": %s | order(publishedAt desc) [%d...%d] %s, "total": count(%s)}`,
		publishedPosts, start, start+size, postProjection, publishedPosts)
	var result struct {
		Posts []models.BlogPost `json:"posts"`
		Total int               `json:"total"`
	}
	if err := s.cms.Query(ctx, groq, nil, &result); err != nil {
		return nil, err
	}

	out = Page{Posts: result.Posts, Page: page, PageSize: size, Total: result.Total}
	if out.Posts == nil {
		out.Posts = []models.BlogPost{}
	}
	s.store(ctx, key, out)
	return &out, nil
}

// Post returns one post with its body as plain text.
func (s *Service) Post(ctx context.Context, slug string) (*models.BlogPost, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, ErrPostNotFound
	}
	key := "post:" + slug
	var post models.BlogPost
	if s.cached(ctx, key, &post) {
		return &post, nil
	}

	var found *models.BlogPost
	groq := fmt.Sprintf(`%s[slug.current == $slug][0] %s`, publishedPosts, postWithBodyProjection)
	if err := s.cms.Query(ctx, groq, map[string]interface{}{"slug": slug}, &found); err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, slug)
	}
	s.store(ctx, key, found)
	return found, nil
}

// Search runs a full-text query against the index.
func (s *Service) Search(ctx context.Context, query string) ([]models.BlogPost, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.BlogPost{}, nil
	}
	return s.search.Search(ctx, query, searchSize)
}

// Reindex loads every published post from the CMS into the search index and
// drops the cache.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	var posts []models.BlogPost
	groq := fmt.Sprintf("%s | order(publishedAt desc) %s", publishedPosts, postWithBodyProjection)
	if err := s.cms.Query(ctx, groq, nil, &posts); err != nil {
		return 0, err
	}

	n, err := s.search.Reindex(ctx, posts)
	if err != nil {
		return n, err
	}
	if err := s.cache.Flush(ctx); err != nil {
		s.log.Warn("failed to flush blog cache", map[string]interface{}{"error": err.Error()})
	}
	s.log.Info("blog reindexed", map[string]interface{}{"posts": n})
	return n, nil
}

func (s *Service) cached(ctx context.Context, key string, out interface{}) bool {
	hit, err := s.cache.Get(ctx, key, out)
	if err != nil {
		s.log.Warn("blog cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		return false
	}
	return hit
}

func (s *Service) store(ctx context.Context, key string, v interface{}) {
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.log.Warn("blog cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
	}
}
