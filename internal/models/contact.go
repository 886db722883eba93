package models

type ContactRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Message string `json:"message"`
	Locale  string `json:"locale,omitempty"`
}

// BlogPost is the CMS projection served by the blog endpoints.
type BlogPost struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Excerpt     string   `json:"excerpt,omitempty"`
	Body        string   `json:"body,omitempty"`
	Author      string   `json:"author,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	ImageURL    string   `json:"imageUrl,omitempty"`
	PublishedAt string   `json:"publishedAt"`
}
