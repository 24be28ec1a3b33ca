package model

type Post struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Date     string  `json:"date"`
	ImageURL *string `json:"image_url"`
}

// Image returns the post's image URL, or "" if it has none.
func (p Post) Image() string {
	if p.ImageURL == nil {
		return ""
	}
	return *p.ImageURL
}
