package domain

// Track describes the song currently bound to a room. The server never
// interprets these fields; they are stored and relayed as-is.
type Track struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	URL      string  `json:"url"`
	Source   string  `json:"source"`
	CoverURL string  `json:"cover_url,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}
