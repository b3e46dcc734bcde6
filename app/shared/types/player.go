package sharedtypes

// PlayerID identifies a player in the catalog.
type PlayerID = string

// Player holds the display attributes of a catalog player.
type Player struct {
	ID       PlayerID `json:"id"`
	Name     string   `json:"name"`
	FullName string   `json:"full_name,omitempty"`
	Slug     string   `json:"slug,omitempty"`
	Position string   `json:"position,omitempty"`
	Team     string   `json:"team,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
}
