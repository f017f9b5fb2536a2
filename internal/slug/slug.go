// Package slug turns book and chapter titles into URL path segments.
//
// Slugs are persisted on the record when it is created or renamed (see
// Unique for the collision policy). Match exists for rows written before the
// slug column was introduced and resolves them by recomputing slugs over
// their titles.
//
// # Usage
//
//	s := slug.Slugify("O Monarca do Céu") // "o-monarca-do-ceu"
//	label := slug.Deslugify(s)           // "O Monarca Do Ceu"
package slug

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxAttempts bounds the numeric suffixes Unique will try.
const MaxAttempts = 100

// Fallback replaces a base slug that came out empty.
const Fallback = "untitled"

// ErrExhausted is returned by Unique when every candidate is taken.
var ErrExhausted = errors.New("slug: no free candidate")

var (
	disallowed  = regexp.MustCompile(`[^a-z0-9\s-]`)
	whitespace  = regexp.MustCompile(`\s+`)
	hyphens     = regexp.MustCompile(`-+`)
	validSlug   = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	wordStarter = regexp.MustCompile(`(^|\s)\p{Ll}`)
)

// Slugify converts a title into a lowercase ASCII slug.
//
// The input is decomposed (NFD) and stripped of combining marks, then
// lowercased. Unicode spaces become ASCII spaces, anything outside [a-z0-9],
// whitespace and hyphens is dropped, and whitespace and hyphen runs collapse
// to a single hyphen. The result never starts or ends with
// a hyphen and is empty for punctuation-only input.
func Slugify(input string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	result, _, err := transform.String(t, input)
	if err != nil {
		result = input
	}

	result = strings.ToLower(result)
	result = strings.Map(foldSpace, result)
	result = disallowed.ReplaceAllString(result, "")
	result = strings.TrimSpace(result)
	result = whitespace.ReplaceAllString(result, "-")
	result = hyphens.ReplaceAllString(result, "-")

	return strings.Trim(result, "-")
}

// foldSpace maps Unicode spaces such as U+00A0 and U+3000 to ' ', since \s
// only matches ASCII whitespace.
func foldSpace(r rune) rune {
	if unicode.IsSpace(r) {
		return ' '
	}
	return r
}

// Deslugify builds a display label from a slug: hyphens become spaces and
// every word starts with an upper-case letter. Casing, diacritics and
// punctuation of the original title are gone, so the label must not be used
// to look anything up.
func Deslugify(s string) string {
	label := strings.ReplaceAll(s, "-", " ")
	return wordStarter.ReplaceAllStringFunc(label, strings.ToUpper)
}

// IsValid reports whether s is a non-empty, well-formed slug.
func IsValid(s string) bool {
	return validSlug.MatchString(s)
}

// Match returns the first candidate whose title slugifies to target.
// Candidates are scanned in slice order, so callers decide the tie-break by
// ordering them (by primary key in the repositories).
func Match[T any](candidates []T, target string, title func(T) string) (T, bool) {
	var zero T
	if target == "" {
		return zero, false
	}
	for _, c := range candidates {
		if Slugify(title(c)) == target {
			return c, true
		}
	}
	return zero, false
}

// Unique returns base if it is free, otherwise base-2, base-3 and so on up to
// MaxAttempts candidates. An empty base is replaced by Fallback first.
func Unique(base string, taken func(string) (bool, error)) (string, error) {
	if base == "" {
		base = Fallback
	}

	for i := 1; i <= MaxAttempts; i++ {
		candidate := base
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}

		used, err := taken(candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !used {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w for %q after %d attempts", ErrExhausted, base, MaxAttempts)
}
