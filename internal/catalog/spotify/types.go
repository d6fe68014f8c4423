// Package spotify provides a catalog provider backed by the Spotify Web API
// using the client-credentials flow.
package spotify

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"` // seconds
}

type searchResponse struct {
	Albums struct {
		Items []albumItem `json:"items"`
	} `json:"albums"`
}

type albumItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	AlbumType   string   `json:"album_type"`
	ReleaseDate string   `json:"release_date"` // "2024", "2024-05" or "2024-05-17"
	Artists     []artist `json:"artists"`
	Images      []image  `json:"images"`
}

type artist struct {
	Name string `json:"name"`
}

type image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}
