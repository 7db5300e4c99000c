package archive

import "time"

// Entity is a finished download as stored in the history.
type Entity struct {
	Id        string    `json:"id"`
	Title     string    `json:"title"`
	Path      string    `json:"path"`
	Source    string    `json:"source"`
	FormatId  string    `json:"format_id"`
	Label     string    `json:"label"`
	Size      int64     `json:"size"`
	SizeHuman string    `json:"size_human"`
	CreatedAt time.Time `json:"created_at"`
}
