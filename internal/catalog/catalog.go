// Package catalog resolves a spoken book title, optionally narrowed by
// author, to a library item on the media server.
package catalog

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/maauso/audiobook-skill/internal/abs"
)

var (
	// ErrTitleRequired is returned when the query names no title.
	ErrTitleRequired = errors.New("catalog: title is required")
	// ErrNoMatch is returned when no audiobook matches the query.
	ErrNoMatch = errors.New("catalog: no matching book")
)

// Query is a spoken title and author. The resolved forms are the platform's
// entity-resolved values and may be empty.
type Query struct {
	Title          string
	ResolvedTitle  string
	Author         string
	ResolvedAuthor string
}

// Resolver finds library items for spoken queries.
type Resolver struct {
	client abs.Client
	logger *slog.Logger
}

// Option is a function that configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a Resolver.
func NewResolver(client abs.Client, opts ...Option) *Resolver {
	r := &Resolver{client: client, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type outcome struct {
	id  string
	err error
}

// Resolve returns the ID of the best matching audiobook. When the query has
// a resolved title, the resolved pair is tried first and the raw pair is
// searched concurrently as a fallback.
func (r *Resolver) Resolve(ctx context.Context, q Query) (string, error) {
	if strings.TrimSpace(q.Title) == "" && strings.TrimSpace(q.ResolvedTitle) == "" {
		return "", ErrTitleRequired
	}

	libraryIDs, err := r.audiobookLibraries(ctx)
	if err != nil {
		return "", err
	}
	if len(libraryIDs) == 0 {
		return "", ErrNoMatch
	}

	if q.ResolvedTitle == "" {
		return r.match(ctx, libraryIDs, q.Title, q.Author)
	}
	if q.Title == "" {
		return r.match(ctx, libraryIDs, q.ResolvedTitle, q.ResolvedAuthor)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	raw := make(chan outcome, 1)
	go func() {
		id, err := r.match(ctx, libraryIDs, q.Title, q.Author)
		raw <- outcome{id: id, err: err}
	}()

	id, err := r.match(ctx, libraryIDs, q.ResolvedTitle, q.ResolvedAuthor)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNoMatch) {
		r.logger.Warn("resolved title lookup failed", slog.String("error", err.Error()))
	}
	o := <-raw
	return o.id, o.err
}

// audiobookLibraries returns the IDs of book libraries flagged audiobooks-only.
func (r *Resolver) audiobookLibraries(ctx context.Context) ([]string, error) {
	libs, err := r.client.Libraries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list libraries: %w", err)
	}
	var ids []string
	for _, l := range libs {
		if l.MediaType == abs.MediaTypeBook && l.Settings.AudiobooksOnly {
			ids = append(ids, l.ID)
		}
	}
	return ids, nil
}

// match narrows candidates by author when one is given and matches, else
// searches every library for title, then picks the best title match.
func (r *Resolver) match(ctx context.Context, libraryIDs []string, title, author string) (string, error) {
	var (
		items []abs.LibraryItem
		err   error
	)
	if author != "" {
		items, err = r.authorItems(ctx, libraryIDs, author)
		if err != nil {
			return "", err
		}
	}
	if items == nil {
		items, err = r.searchItems(ctx, libraryIDs, title)
		if err != nil {
			return "", err
		}
	}

	candidates := make([]Candidate, 0, len(items))
	for _, it := range items {
		candidates = append(candidates, Candidate{ID: it.ID, Text: it.Title()})
	}
	id, ok, err := BestMatch(title, candidates)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoMatch
	}
	r.logger.Info("book matched",
		slog.String("query", title),
		slog.String("author", author),
		slog.String("item_id", id),
	)
	return id, nil
}

// authorItems returns the items of the author best matching name across all
// libraries, or nil when no author matches.
func (r *Resolver) authorItems(ctx context.Context, libraryIDs []string, name string) ([]abs.LibraryItem, error) {
	var (
		mu      sync.Mutex
		authors = make(map[string]abs.AuthorRef)
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, libID := range libraryIDs {
		g.Go(func() error {
			fd, err := r.client.LibraryFilterData(gctx, libID)
			if err != nil {
				return fmt.Errorf("filter data for library %s: %w", libID, err)
			}
			mu.Lock()
			defer mu.Unlock()
			for _, a := range fd.Authors {
				authors[a.ID] = a
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(authors))
	for _, a := range authors {
		candidates = append(candidates, Candidate{ID: a.ID, Text: a.Name})
	}
	authorID, ok, err := BestMatch(name, candidates)
	if err != nil || !ok {
		return nil, err
	}

	a, err := r.client.Author(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("get author %s: %w", authorID, err)
	}
	return a.LibraryItems, nil
}

// searchItems returns the first book hit of every library for title.
func (r *Resolver) searchItems(ctx context.Context, libraryIDs []string, title string) ([]abs.LibraryItem, error) {
	var (
		mu    sync.Mutex
		found = make(map[string]abs.LibraryItem)
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, libID := range libraryIDs {
		g.Go(func() error {
			res, err := r.client.Search(gctx, libID, title)
			if err != nil {
				return fmt.Errorf("search library %s: %w", libID, err)
			}
			if len(res.Book) == 0 {
				return nil
			}
			first := res.Book[0].LibraryItem
			mu.Lock()
			found[first.ID] = first
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]abs.LibraryItem, 0, len(found))
	for _, it := range found {
		items = append(items, it)
	}
	slices.SortFunc(items, func(a, b abs.LibraryItem) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return items, nil
}
