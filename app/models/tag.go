package models

import "fmt"

// Validate checks if the tag meets all validation requirements
func (t *Tag) Validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("tag %q: %w", t.Title, err)
	}
	return nil
}
