package model

import "fmt"

// DuplicateNameError reports two sibling containers sharing a title.
// Downstream rendering addresses parts and sections by title, so this
// fails the whole build rather than degrading.
type DuplicateNameError struct {
	Scope string // "test definition" or "test part"
	Title string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("%s: duplicate child title %q", e.Scope, e.Title)
}
