package catalog

import (
	"time"

	"github.com/uptrace/bun"
)

// Movie is a row of the movies table. AvgRating is only populated by
// queries that select avg_rating(movie).
type Movie struct {
	bun.BaseModel `bun:"table:movies,alias:movie"`

	ID          string   `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Image       string   `bun:"image,notnull" json:"image"`
	Title       string   `bun:"title,notnull" json:"title"`
	Year        int      `bun:"year,notnull" json:"year"`
	Description string   `bun:"description,notnull" json:"description"`
	AvgRating   *float64 `bun:"avg_rating,scanonly" json:"avg_rating"`
}

// Person is a row of the persons table. FullName is computed by full_name(person).
type Person struct {
	bun.BaseModel `bun:"table:persons,alias:person"`

	ID         string `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	FirstName  string `bun:"first_name,notnull" json:"first_name"`
	MiddleName string `bun:"middle_name,notnull" json:"middle_name"`
	LastName   string `bun:"last_name,notnull" json:"last_name"`
	Image      string `bun:"image,notnull" json:"image"`
	Bio        string `bun:"bio,notnull" json:"bio"`
	FullName   string `bun:"full_name,scanonly" json:"full_name"`
}

// Director links a person to a movie they directed.
type Director struct {
	bun.BaseModel `bun:"table:directors,alias:director"`

	ID        string `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	ListOrder *int   `bun:"list_order" json:"list_order"`
	PersonID  string `bun:"person_id,notnull,type:uuid" json:"person_id"`
	MovieID   string `bun:"movie_id,notnull,type:uuid" json:"movie_id"`
}

// Actor links a person to a movie they appear in.
type Actor struct {
	bun.BaseModel `bun:"table:actors,alias:actor"`

	ID        string `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	ListOrder *int   `bun:"list_order" json:"list_order"`
	PersonID  string `bun:"person_id,notnull,type:uuid" json:"person_id"`
	MovieID   string `bun:"movie_id,notnull,type:uuid" json:"movie_id"`
}

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID    string `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Name  string `bun:"name,notnull" json:"name"`
	Image string `bun:"image,notnull" json:"image"`
}

type Review struct {
	bun.BaseModel `bun:"table:reviews,alias:review"`

	ID           string    `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Body         string    `bun:"body,notnull" json:"body"`
	Rating       int       `bun:"rating,notnull" json:"rating"`
	CreationTime time.Time `bun:"creation_time,notnull,default:now()" json:"creation_time"`
	AuthorID     string    `bun:"author_id,notnull,type:uuid" json:"author_id"`
	MovieID      string    `bun:"movie_id,notnull,type:uuid" json:"movie_id"`
}

// PersonRef is the person projection used in director and cast lists.
type PersonRef struct {
	ID       string `bun:"id" json:"id"`
	FullName string `bun:"full_name" json:"full_name"`
	Image    string `bun:"image" json:"image"`
}

// MovieRef is the movie projection used in a person's filmography.
type MovieRef struct {
	ID        string   `bun:"id" json:"id"`
	Image     string   `bun:"image" json:"image"`
	Title     string   `bun:"title" json:"title"`
	Year      int      `bun:"year" json:"year"`
	AvgRating *float64 `bun:"avg_rating" json:"avg_rating"`
}

// MovieReviewRow is one review of a movie joined with its author.
type MovieReviewRow struct {
	ID          string `bun:"id"`
	Body        string `bun:"body"`
	Rating      int    `bun:"rating"`
	AuthorID    string `bun:"author_id"`
	AuthorName  string `bun:"author_name"`
	AuthorImage string `bun:"author_image"`
}

// UserReviewRow is one row of the user-with-latest-reviews query. The review
// and movie columns are NULL when the user has written no reviews.
type UserReviewRow struct {
	ID                 string     `bun:"id"`
	Name               string     `bun:"name"`
	Image              string     `bun:"image"`
	ReviewID           *string    `bun:"review_id"`
	ReviewBody         *string    `bun:"review_body"`
	ReviewRating       *int       `bun:"review_rating"`
	ReviewCreationTime *time.Time `bun:"review_creation_time"`
	MovieID            *string    `bun:"movie_id"`
	MovieImage         *string    `bun:"movie_image"`
	MovieTitle         *string    `bun:"movie_title"`
	MovieAvgRating     *float64   `bun:"movie_avg_rating"`
}
