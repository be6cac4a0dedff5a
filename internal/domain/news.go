package domain

// NewsItem is a single entry extracted from the listing page.
type NewsItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Link  string `json:"link"`
}
