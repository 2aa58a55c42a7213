package newsapi

// APIResponse represents the /v2/everything response.
type APIResponse struct {
	Status       string       `json:"status"`
	TotalResults int          `json:"totalResults"`
	Articles     []APIArticle `json:"articles"`
	Code         string       `json:"code"`
	Message      string       `json:"message"`
}

type APIArticle struct {
	Source      APISource `json:"source"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	URL         string    `json:"url"`
	PublishedAt string    `json:"publishedAt"`
}

type APISource struct {
	ID   *string `json:"id"`
	Name string  `json:"name"`
}
