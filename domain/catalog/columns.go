package catalog

// Static field-to-column tables. Repositories name columns through these so
// that a renamed column is a compile error rather than a runtime one.

var MovieColumns = struct {
	ID, Image, Title, Year, Description string
}{"id", "image", "title", "year", "description"}

var PersonColumns = struct {
	ID, FirstName, MiddleName, LastName, Image, Bio string
}{"id", "first_name", "middle_name", "last_name", "image", "bio"}

var DirectorColumns = struct {
	ID, ListOrder, PersonID, MovieID string
}{"id", "list_order", "person_id", "movie_id"}

var ActorColumns = struct {
	ID, ListOrder, PersonID, MovieID string
}{"id", "list_order", "person_id", "movie_id"}

var UserColumns = struct {
	ID, Name, Image string
}{"id", "name", "image"}

var ReviewColumns = struct {
	ID, Body, Rating, CreationTime, AuthorID, MovieID string
}{"id", "body", "rating", "creation_time", "author_id", "movie_id"}
