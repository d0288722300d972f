package catalog

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"golang.org/x/text/unicode/norm"
)

const textField = "text"

// Candidate is one named thing a spoken phrase may refer to.
type Candidate struct {
	ID   string
	Text string
}

// Fold lowercases s, strips diacritics and collapses whitespace.
// "Les Misérables " -> "les miserables".
func Fold(s string) string {
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

func buildMatchMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = en.AnalyzerName
	docMapping.AddFieldMappingsAt(textField, textFieldMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// BestMatch returns the ID of the candidate that best matches phrase.
// An exact match after folding wins outright. Otherwise every word of the
// phrase must match a word of the candidate within one edit; among those the
// highest scoring candidate wins, with whole-phrase matches boosted. Ties go
// to the lowest ID.
func BestMatch(phrase string, candidates []Candidate) (string, bool, error) {
	folded := Fold(phrase)
	if folded == "" || len(candidates) == 0 {
		return "", false, nil
	}
	candidates = slices.Clone(candidates)
	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		return cmp.Compare(a.ID, b.ID)
	})
	for _, c := range candidates {
		if Fold(c.Text) == folded {
			return c.ID, true, nil
		}
	}

	index, err := bleve.NewMemOnly(buildMatchMapping())
	if err != nil {
		return "", false, fmt.Errorf("create match index: %w", err)
	}
	defer func() { _ = index.Close() }()

	batch := index.NewBatch()
	for _, c := range candidates {
		if err := batch.Index(c.ID, map[string]any{textField: Fold(c.Text)}); err != nil {
			return "", false, fmt.Errorf("index candidate %s: %w", c.ID, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		return "", false, fmt.Errorf("index candidates: %w", err)
	}

	words := bleve.NewMatchQuery(folded)
	words.SetField(textField)
	words.SetFuzziness(1)
	words.SetOperator(query.MatchQueryOperatorAnd)

	phraseQuery := bleve.NewMatchPhraseQuery(folded)
	phraseQuery.SetField(textField)
	phraseQuery.SetBoost(2.0)

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(words, phraseQuery), 1, 0, false)
	// Equal scores fall back to the lowest ID.
	req.SortBy([]string{"-_score", "_id"})
	res, err := index.Search(req)
	if err != nil {
		return "", false, fmt.Errorf("search candidates: %w", err)
	}
	if len(res.Hits) == 0 {
		return "", false, nil
	}
	return res.Hits[0].ID, true, nil
}
