package model

// FormSchema groups the descriptors of one form.
type FormSchema struct {
	Name     string       `json:"name"`
	Title    string       `json:"title"`
	Resource string       `json:"resource,omitempty"`
	Fields   []Descriptor `json:"fields"`
}

// Descriptor returns the descriptor bound to path.
func (s FormSchema) Descriptor(path string) (Descriptor, bool) {
	for _, desc := range s.Fields {
		if desc.Path == path {
			return desc, true
		}
	}
	return Descriptor{}, false
}
