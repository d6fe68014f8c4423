// Package itunes provides a catalog provider backed by the Apple iTunes Search API.
package itunes

// searchResponse is the raw iTunes API response.
type searchResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []searchResult `json:"results"`
}

// searchResult is a single album from iTunes search.
type searchResult struct {
	WrapperType      string `json:"wrapperType"`
	CollectionType   string `json:"collectionType"`
	CollectionID     int64  `json:"collectionId"`
	CollectionName   string `json:"collectionName"`
	ArtistName       string `json:"artistName"`
	ArtworkURL60     string `json:"artworkUrl60"`
	ArtworkURL100    string `json:"artworkUrl100"`
	TrackCount       int    `json:"trackCount,omitempty"`
	ReleaseDate      string `json:"releaseDate,omitempty"` // RFC 3339, e.g. 2024-05-17T07:00:00Z
	PrimaryGenreName string `json:"primaryGenreName,omitempty"`
}
