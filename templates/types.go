// Package templates persists named, URL-matched transformation rule
// sets and replays them across sessions.
//
// A template is owned by the store once saved, independent of any
// document instance. Matching is exact-URL by default with a pluggable
// Matcher for glob patterns. Storage failures surface as explicit
// errors; nothing is dropped silently.
package templates

import (
	"github.com/hazyhaar/pagecraft/transform"
)

// Template is one named, persisted rule set.
type Template struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	URLPattern      string           `json:"urlPattern"`
	OriginalURL     string           `json:"originalUrl"`
	Title           string           `json:"title"`
	Transformations []transform.Rule `json:"transformations"`
	CreatedAt       int64            `json:"createdAt"`
	UpdatedAt       int64            `json:"updatedAt"`
	IsDefault       bool             `json:"isDefault"`
}
