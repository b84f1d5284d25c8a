package models

// Level is a named group of lessons. Rank orders levels for display.
type Level struct {
	Label   string `json:"label"`
	Rank    int    `json:"rank"`
	Premium bool   `json:"premium"`
}
