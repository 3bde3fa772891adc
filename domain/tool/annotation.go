// Package tool provides the domain model for the tools exposed to an agent.
package tool

// Annotations describe tool behavior for transports and clients.
type Annotations struct {
	// ReadOnly indicates the tool has no side effects.
	ReadOnly bool `json:"readOnly"`

	// Idempotent indicates multiple calls with the same input yield the same result.
	Idempotent bool `json:"idempotent"`

	// Tags are arbitrary labels for categorization.
	Tags []string `json:"tags,omitempty"`
}

// DefaultAnnotations returns annotations with safe defaults.
func DefaultAnnotations() Annotations {
	return Annotations{}
}

// HasTag reports whether the annotations carry the given tag.
func (a Annotations) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
