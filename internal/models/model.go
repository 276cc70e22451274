package models

// Model is a read-only reference row describing a selectable language model.
// Tag is the provider-specific identifier sent with completion requests,
// Name the display label, Provider the configured backend serving the tag.
type Model struct {
	ID       int64  `json:"id"`
	Tag      string `json:"tag"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
}
