package models

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// NewID returns a fresh record identifier in the same format the database assigns
func NewID() string {
	return bson.NewObjectID().Hex()
}

// ValidateID checks that id is a well-formed record identifier
func ValidateID(id string) error {
	if _, err := bson.ObjectIDFromHex(id); err != nil {
		return fmt.Errorf("invalid id %q: %w", id, err)
	}
	return nil
}
