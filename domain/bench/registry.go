package bench

import "slices"

// Benchmark names.
const (
	GetUser         = "get_user"
	GetMovie        = "get_movie"
	GetPerson       = "get_person"
	UpdateMovie     = "update_movie"
	InsertUser      = "insert_user"
	InsertMovie     = "insert_movie"
	InsertMoviePlus = "insert_movie_plus"
)

// Benchmarks lists every benchmark in canonical order.
var Benchmarks = []string{
	GetUser,
	GetMovie,
	GetPerson,
	UpdateMovie,
	InsertUser,
	InsertMovie,
	InsertMoviePlus,
}

var mutating = []string{UpdateMovie, InsertUser, InsertMovie, InsertMoviePlus}

// IsKnown reports whether name is a registered benchmark.
func IsKnown(name string) bool {
	return slices.Contains(Benchmarks, name)
}

// IsMutating reports whether the benchmark writes to the database and so
// needs setup and cleanup around a run.
func IsMutating(name string) bool {
	return slices.Contains(mutating, name)
}
