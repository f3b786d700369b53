package domain

// Genre is a book category.
type Genre struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}
