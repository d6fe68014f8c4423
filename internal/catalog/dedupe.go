package catalog

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/listenupapp/yearlist-server/internal/domain"
)

// fold lowercases s, strips diacritics and collapses whitespace.
// "Beyoncé  " and "BEYONCE" fold to the same string.
func fold(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(cases.Fold().String(out)), " ")
}

// SimplifyTitle drops edition markers in parentheses or brackets.
// "Random Access Memories (Deluxe Edition)" -> "random access memories".
func SimplifyTitle(title string) string {
	if i := strings.IndexAny(title, "(["); i >= 0 {
		title = title[:i]
	}
	return fold(title)
}

// DedupeKey identifies albums that are the same release in different
// editions: explicit, clean, deluxe and remastered versions share a key.
func DedupeKey(a domain.Album) string {
	return SimplifyTitle(a.Title) + "\x00" + fold(a.Artist)
}

// Dedupe keeps the first album for each DedupeKey, preserving order.
func Dedupe(albums []domain.Album) []domain.Album {
	seen := make(map[string]struct{}, len(albums))
	out := make([]domain.Album, 0, len(albums))
	for _, a := range albums {
		key := DedupeKey(a)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}

// RankByQuery moves albums whose title or artist fuzzily contains every
// character of query, in order, ahead of the rest. Closer matches come
// first; ties and non-matches keep provider order.
func RankByQuery(query string, albums []domain.Album) {
	q := fold(query)
	score := func(a domain.Album) int {
		best := -1
		for _, field := range []string{fold(a.Title), fold(a.Artist), fold(a.Artist + " " + a.Title)} {
			if d := fuzzy.RankMatchNormalizedFold(q, field); d >= 0 && (best < 0 || d < best) {
				best = d
			}
		}
		if best < 0 {
			return int(^uint(0) >> 1)
		}
		return best
	}

	scores := make(map[string]int, len(albums))
	for _, a := range albums {
		scores[a.ID] = score(a)
	}
	slices.SortStableFunc(albums, func(a, b domain.Album) int {
		return cmp.Compare(scores[a.ID], scores[b.ID])
	})
}
