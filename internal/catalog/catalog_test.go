package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/audiobook-skill/internal/abs"
)

// fakeClient serves catalog endpoints from fixed data.
type fakeClient struct {
	abs.Client

	libraries  []abs.Library
	filterData map[string]*abs.FilterData
	authors    map[string]*abs.AuthorWithItems
	search     map[string][]abs.LibraryItem // keyed by library
	searchErr  error

	mu       sync.Mutex
	searched []string
}

func (f *fakeClient) Libraries(context.Context) ([]abs.Library, error) {
	return f.libraries, nil
}

func (f *fakeClient) LibraryFilterData(_ context.Context, libraryID string) (*abs.FilterData, error) {
	if fd, ok := f.filterData[libraryID]; ok {
		return fd, nil
	}
	return &abs.FilterData{}, nil
}

func (f *fakeClient) Author(_ context.Context, authorID string) (*abs.AuthorWithItems, error) {
	a, ok := f.authors[authorID]
	if !ok {
		return nil, &abs.RemoteError{Op: "get author", StatusCode: 404}
	}
	return a, nil
}

func (f *fakeClient) Search(_ context.Context, libraryID, q string) (*abs.SearchResults, error) {
	f.mu.Lock()
	f.searched = append(f.searched, libraryID+":"+q)
	f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	res := &abs.SearchResults{}
	for _, it := range f.search[libraryID] {
		if strings.Contains(Fold(it.Title()), Fold(q)) {
			res.Book = append(res.Book, abs.SearchHit{LibraryItem: it})
		}
	}
	return res, nil
}

func book(id, title string) abs.LibraryItem {
	return abs.LibraryItem{ID: id, MediaType: abs.MediaTypeBook, Media: abs.Media{Metadata: abs.BookMetadata{Title: title}}}
}

func newFake() *fakeClient {
	return &fakeClient{
		libraries: []abs.Library{
			{ID: "lib-books", MediaType: abs.MediaTypeBook, Settings: abs.LibrarySettings{AudiobooksOnly: true}},
			{ID: "lib-more", MediaType: abs.MediaTypeBook, Settings: abs.LibrarySettings{AudiobooksOnly: true}},
			{ID: "lib-ebooks", MediaType: abs.MediaTypeBook},
			{ID: "lib-pods", MediaType: abs.MediaTypePodcast, Settings: abs.LibrarySettings{AudiobooksOnly: true}},
		},
		filterData: map[string]*abs.FilterData{
			"lib-books": {Authors: []abs.AuthorRef{{ID: "au-herbert", Name: "Frank Herbert"}}},
			"lib-more":  {Authors: []abs.AuthorRef{{ID: "au-austen", Name: "Jane Austen"}, {ID: "au-herbert", Name: "Frank Herbert"}}},
		},
		authors: map[string]*abs.AuthorWithItems{
			"au-herbert": {ID: "au-herbert", Name: "Frank Herbert", LibraryItems: []abs.LibraryItem{
				book("li-dune", "Dune"),
				book("li-messiah", "Dune Messiah"),
			}},
			"au-austen": {ID: "au-austen", Name: "Jane Austen", LibraryItems: []abs.LibraryItem{
				book("li-emma", "Emma"),
			}},
		},
		search: map[string][]abs.LibraryItem{
			"lib-books": {book("li-dune", "Dune"), book("li-messiah", "Dune Messiah")},
			"lib-more":  {book("li-mis", "Les Misérables")},
		},
	}
}

func newTestResolver(c abs.Client) *Resolver {
	return NewResolver(c, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestResolve_SearchesAudiobookLibrariesOnly(t *testing.T) {
	fake := newFake()
	r := newTestResolver(fake)

	id, err := r.Resolve(context.Background(), Query{Title: "dune"})
	require.NoError(t, err)
	assert.Equal(t, "li-dune", id)
	assert.ElementsMatch(t, []string{"lib-books:dune", "lib-more:dune"}, fake.searched)
}

func TestResolve_IgnoresDiacritics(t *testing.T) {
	r := newTestResolver(newFake())

	id, err := r.Resolve(context.Background(), Query{Title: "les miserables"})
	require.NoError(t, err)
	assert.Equal(t, "li-mis", id)
}

func TestResolve_AuthorNarrowsCandidates(t *testing.T) {
	fake := newFake()
	r := newTestResolver(fake)

	id, err := r.Resolve(context.Background(), Query{Title: "dune messiah", Author: "frank herbert"})
	require.NoError(t, err)
	assert.Equal(t, "li-messiah", id)
	assert.Empty(t, fake.searched)
}

func TestResolve_UnknownAuthorFallsBackToSearch(t *testing.T) {
	fake := newFake()
	r := newTestResolver(fake)

	id, err := r.Resolve(context.Background(), Query{Title: "dune", Author: "nobody known"})
	require.NoError(t, err)
	assert.Equal(t, "li-dune", id)
	assert.NotEmpty(t, fake.searched)
}

func TestResolve_AuthorWithoutTitleMatch(t *testing.T) {
	r := newTestResolver(newFake())

	_, err := r.Resolve(context.Background(), Query{Title: "dune", Author: "jane austen"})
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestResolve_ResolvedTitleFirst(t *testing.T) {
	r := newTestResolver(newFake())

	id, err := r.Resolve(context.Background(), Query{Title: "doom", ResolvedTitle: "Dune Messiah"})
	require.NoError(t, err)
	assert.Equal(t, "li-messiah", id)
}

func TestResolve_RawTitleWhenResolvedMisses(t *testing.T) {
	r := newTestResolver(newFake())

	id, err := r.Resolve(context.Background(), Query{Title: "emma", Author: "austen", ResolvedTitle: "Emmanuelle"})
	require.NoError(t, err)
	assert.Equal(t, "li-emma", id)
}

func TestResolve_Errors(t *testing.T) {
	t.Run("no title", func(t *testing.T) {
		_, err := newTestResolver(newFake()).Resolve(context.Background(), Query{Author: "frank herbert"})
		assert.ErrorIs(t, err, ErrTitleRequired)
	})

	t.Run("no audiobook libraries", func(t *testing.T) {
		fake := newFake()
		fake.libraries = fake.libraries[2:]
		_, err := newTestResolver(fake).Resolve(context.Background(), Query{Title: "dune"})
		assert.ErrorIs(t, err, ErrNoMatch)
	})

	t.Run("search failure", func(t *testing.T) {
		fake := newFake()
		fake.searchErr = &abs.RemoteError{Op: "search", StatusCode: 500}
		_, err := newTestResolver(fake).Resolve(context.Background(), Query{Title: "dune"})
		require.Error(t, err)
		assert.True(t, abs.IsServerError(err))
		assert.False(t, errors.Is(err, ErrNoMatch))
	})
}

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Les Misérables ", want: "les miserables"},
		{in: "  Dune   Messiah", want: "dune messiah"},
		{in: "Cien años de soledad", want: "cien anos de soledad"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Fold(tt.in), "Fold(%q)", tt.in)
	}
}

func TestBestMatch(t *testing.T) {
	candidates := []Candidate{
		{ID: "hp", Text: "Harry Potter and the Philosopher's Stone"},
		{ID: "spy", Text: "Harriet the Spy"},
		{ID: "dune", Text: "Dune"},
	}

	tests := []struct {
		name   string
		phrase string
		wantID string
		wantOK bool
	}{
		{"exact", "dune", "dune", true},
		{"typo", "harry poter", "hp", true},
		{"partial title", "philosopher's stone", "hp", true},
		{"unrelated", "the shining", "", false},
		{"empty", "  ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok, err := BestMatch(tt.phrase, candidates)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestBestMatch_TiesGoToLowestID(t *testing.T) {
	candidates := []Candidate{
		{ID: "li-c", Text: "Dune Messiah"},
		{ID: "li-a", Text: "Dune Messiah"},
		{ID: "li-b", Text: "Dune Messiah"},
	}

	for _, phrase := range []string{"dune messiah", "dune mesiah"} {
		t.Run(phrase, func(t *testing.T) {
			for range 10 {
				id, ok, err := BestMatch(phrase, candidates)
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, "li-a", id)
			}
		})
	}
	assert.Equal(t, "li-c", candidates[0].ID, "input order is left untouched")
}

func TestResolve_DuplicateTitlesAcrossLibrariesAreStable(t *testing.T) {
	fake := newFake()
	fake.search = map[string][]abs.LibraryItem{
		"lib-books": {book("li-z-emma", "Emma")},
		"lib-more":  {book("li-a-emma", "Emma")},
	}
	r := newTestResolver(fake)

	for range 10 {
		id, err := r.Resolve(context.Background(), Query{Title: "emma"})
		require.NoError(t, err)
		assert.Equal(t, "li-a-emma", id)
	}
}
