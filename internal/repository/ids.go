package repository

import "github.com/google/uuid"

// validID reports whether id can be a primary key. Ids come from URLs and
// token subjects; anything that is not a uuid cannot match a row.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
