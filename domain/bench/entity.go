package bench

import (
	"github.com/emergent-company/moviebench/domain/catalog"
)

// MovieSeed is the argument of one insert_movie invocation: the marker prefix
// and four existing person ids. People[0] directs, People[1:] act.
type MovieSeed struct {
	Prefix string   `json:"prefix" yaml:"prefix"`
	People []string `json:"people" yaml:"people"`
}

// MovieSeedPeople is the number of person ids an insert_movie seed carries.
const MovieSeedPeople = 4

// IDs holds the fixture arguments for every benchmark, keyed in JSON by
// benchmark name.
type IDs struct {
	GetUser         []string    `json:"get_user"`
	GetMovie        []string    `json:"get_movie"`
	GetPerson       []string    `json:"get_person"`
	UpdateMovie     []string    `json:"update_movie"`
	InsertUser      []string    `json:"insert_user"`
	InsertMovie     []MovieSeed `json:"insert_movie"`
	InsertMoviePlus []string    `json:"insert_movie_plus"`
}

// Args returns the fixture arguments for the named benchmark, or nil for an
// unknown name.
func (ids IDs) Args(name string) []any {
	switch name {
	case GetUser:
		return toAny(ids.GetUser)
	case GetMovie:
		return toAny(ids.GetMovie)
	case GetPerson:
		return toAny(ids.GetPerson)
	case UpdateMovie:
		return toAny(ids.UpdateMovie)
	case InsertUser:
		return toAny(ids.InsertUser)
	case InsertMovie:
		return toAny(ids.InsertMovie)
	case InsertMoviePlus:
		return toAny(ids.InsertMoviePlus)
	default:
		return nil
	}
}

func toAny[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// ReviewMovie is the movie embedded in a user's review.
type ReviewMovie struct {
	ID        string   `json:"id"`
	Image     string   `json:"image"`
	Title     string   `json:"title"`
	AvgRating *float64 `json:"avg_rating"`
}

type UserReview struct {
	ID     string      `json:"id"`
	Body   string      `json:"body"`
	Rating int         `json:"rating"`
	Movie  ReviewMovie `json:"movie"`
}

// UserDetail is the get_user result.
type UserDetail struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Image         string       `json:"image"`
	LatestReviews []UserReview `json:"latest_reviews"`
}

type ReviewAuthor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

type MovieReview struct {
	ID     string       `json:"id"`
	Body   string       `json:"body"`
	Rating int          `json:"rating"`
	Author ReviewAuthor `json:"author"`
}

// MovieDetail is the get_movie result.
type MovieDetail struct {
	ID          string              `json:"id"`
	Image       string              `json:"image"`
	Title       string              `json:"title"`
	Year        int                 `json:"year"`
	Description string              `json:"description"`
	AvgRating   *float64            `json:"avg_rating"`
	Directors   []catalog.PersonRef `json:"directors"`
	Cast        []catalog.PersonRef `json:"cast"`
	Reviews     []MovieReview       `json:"reviews"`
}

// PersonDetail is the get_person result.
type PersonDetail struct {
	ID       string             `json:"id"`
	FullName string             `json:"full_name"`
	Image    string             `json:"image"`
	Bio      string             `json:"bio"`
	ActedIn  []catalog.MovieRef `json:"acted_in"`
	Directed []catalog.MovieRef `json:"directed"`
}

// MovieTitle is the update_movie result.
type MovieTitle struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// UserSummary is the insert_user result.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// InsertedMovie is the insert_movie and insert_movie_plus result.
type InsertedMovie struct {
	ID          string              `json:"id"`
	Image       string              `json:"image"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Year        int                 `json:"year"`
	Directors   []catalog.PersonRef `json:"directors"`
	Cast        []catalog.PersonRef `json:"cast"`
}
