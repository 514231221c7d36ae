package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/emergent-company/moviebench/domain/catalog"
)

// Fixtures is a small, fully linked catalog.
//
//	Movies[0] directed by Persons[0], cast Persons[1] (order 1), Persons[2] (order 2), Persons[3] (no order)
//	Movies[1] directed by Persons[1] and Persons[0] (no order), cast Persons[4]
//	Movies[2] cast Persons[1]; no reviews
//	Users[0] reviewed Movies[0] and Movies[1]; Users[1] has no reviews
type Fixtures struct {
	Movies  []catalog.Movie
	Persons []catalog.Person
	Users   []catalog.User
	Reviews []catalog.Review
}

// Seed inserts the fixture catalog. Nothing it inserts carries the insert
// marker, so lifecycle resets leave it alone.
func Seed(ctx context.Context, db bun.IDB) (*Fixtures, error) {
	f := &Fixtures{
		Movies: []catalog.Movie{
			{Title: "Blade Runner", Image: "blade_runner.jpeg", Year: 1982, Description: "Replicants."},
			{Title: "Arrival", Image: "arrival.jpeg", Year: 2016, Description: "Heptapods."},
			{Title: "Alien", Image: "alien.jpeg", Year: 1979, Description: "In space."},
			{Title: "Dune", Image: "dune.jpeg", Year: 2021, Description: "Spice."},
		},
		Persons: []catalog.Person{
			{FirstName: "Ridley", LastName: "Scott", Image: "scott.jpeg", Bio: "Director."},
			{FirstName: "Denis", LastName: "Villeneuve", Image: "villeneuve.jpeg"},
			{FirstName: "Harrison", LastName: "Ford", Image: "ford.jpeg"},
			{FirstName: "Rutger", MiddleName: "Oelsen", LastName: "Hauer", Image: "hauer.jpeg"},
			{FirstName: "Amy", LastName: "Adams", Image: "adams.jpeg"},
			{FirstName: "Sigourney", LastName: "Weaver", Image: "weaver.jpeg"},
		},
		Users: []catalog.User{
			{Name: "critic", Image: "critic.png"},
			{Name: "lurker", Image: "lurker.png"},
			{Name: "fan", Image: "fan.png"},
			{Name: "casual", Image: "casual.png"},
		},
	}

	if _, err := db.NewInsert().Model(&f.Movies).Returning("id").Exec(ctx); err != nil {
		return nil, fmt.Errorf("seed movies: %w", err)
	}
	if _, err := db.NewInsert().Model(&f.Persons).Returning("id").Exec(ctx); err != nil {
		return nil, fmt.Errorf("seed persons: %w", err)
	}
	if _, err := db.NewInsert().Model(&f.Users).Returning("id").Exec(ctx); err != nil {
		return nil, fmt.Errorf("seed users: %w", err)
	}

	order := func(n int) *int { return &n }
	m, p := f.Movies, f.Persons
	directors := []catalog.Director{
		{PersonID: p[0].ID, MovieID: m[0].ID, ListOrder: order(1)},
		{PersonID: p[1].ID, MovieID: m[1].ID, ListOrder: order(1)},
		{PersonID: p[0].ID, MovieID: m[1].ID},
	}
	actors := []catalog.Actor{
		{PersonID: p[2].ID, MovieID: m[0].ID, ListOrder: order(2)},
		{PersonID: p[1].ID, MovieID: m[0].ID, ListOrder: order(1)},
		{PersonID: p[3].ID, MovieID: m[0].ID},
		{PersonID: p[4].ID, MovieID: m[1].ID, ListOrder: order(1)},
		{PersonID: p[1].ID, MovieID: m[2].ID, ListOrder: order(1)},
	}
	if _, err := db.NewInsert().Model(&directors).Exec(ctx); err != nil {
		return nil, fmt.Errorf("seed directors: %w", err)
	}
	if _, err := db.NewInsert().Model(&actors).Exec(ctx); err != nil {
		return nil, fmt.Errorf("seed actors: %w", err)
	}

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	u := f.Users
	f.Reviews = []catalog.Review{
		{Body: "Tears in rain.", Rating: 5, CreationTime: base, AuthorID: u[0].ID, MovieID: m[0].ID},
		{Body: "Slow but great.", Rating: 4, CreationTime: base.Add(time.Hour), AuthorID: u[0].ID, MovieID: m[1].ID},
		{Body: "Classic.", Rating: 3, CreationTime: base.Add(2 * time.Hour), AuthorID: u[2].ID, MovieID: m[0].ID},
		{Body: "Fine.", Rating: 4, CreationTime: base.Add(3 * time.Hour), AuthorID: u[3].ID, MovieID: m[3].ID},
	}
	if _, err := db.NewInsert().Model(&f.Reviews).Returning("id").Exec(ctx); err != nil {
		return nil, fmt.Errorf("seed reviews: %w", err)
	}

	return f, nil
}
