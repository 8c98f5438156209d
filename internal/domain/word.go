package domain

import "time"

// Word is a slang dictionary entry
type Word struct {
	ID            string    `json:"id"`
	Word          string    `json:"word"`
	Definition    string    `json:"definition"`
	Example       string    `json:"example,omitempty"`
	Pronunciation string    `json:"pronunciation,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	CreatedBy     string    `json:"createdBy,omitempty"`
	IsTrending    bool      `json:"isTrending"`
	Categories    []string  `json:"categories"`
}

// Clone returns a deep copy
func (w *Word) Clone() *Word {
	c := *w
	c.Categories = append([]string(nil), w.Categories...)
	return &c
}
