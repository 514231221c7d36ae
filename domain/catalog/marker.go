package catalog

import "strings"

// InsertPrefix marks every row created by the insert benchmarks. Cleanup
// deletes by this prefix, so inserts and cleanup must share it.
const InsertPrefix = "insert_test__"

// TitleSuffixSeparator separates a movie's original title from the suffix
// appended by the update benchmark.
const TitleSuffixSeparator = "---"

// TitleSuffix returns the suffix the update benchmark appends to the title of
// the movie with the given id: the separator and the first 8 characters of id.
func TitleSuffix(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return TitleSuffixSeparator + id
}

// OriginalTitle strips everything from the first separator on, which is what
// the title reset does in SQL with split_part.
func OriginalTitle(title string) string {
	before, _, _ := strings.Cut(title, TitleSuffixSeparator)
	return before
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// MarkerPattern returns a LIKE pattern matching strings that start with
// prefix. Wildcards inside prefix are escaped so "_" in the marker matches
// only a literal underscore.
func MarkerPattern(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

// HasMarker reports whether s carries the insert marker.
func HasMarker(s string) bool {
	return strings.HasPrefix(s, InsertPrefix)
}
