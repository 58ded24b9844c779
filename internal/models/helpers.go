package models

import (
	"fmt"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// RecordIDString returns the string part of a SurrealDB record id. All
// tables here use string ids, so any other underlying type is a bug.
func RecordIDString(id surrealmodels.RecordID) (string, error) {
	s, ok := id.ID.(string)
	if !ok {
		return "", fmt.Errorf("record id %v has non-string type %T", id.ID, id.ID)
	}
	return s, nil
}
