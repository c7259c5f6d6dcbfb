package persistence

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IsValidID reports whether id is a 24-character hex ObjectID. Every
// backend issues ids in this format.
func IsValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

// Clock returns the current time. Stores stamp createdAt/updatedAt with it.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC().Truncate(time.Millisecond)
	}
	return c().UTC().Truncate(time.Millisecond)
}

// nextUpdate returns the updatedAt stamp for a write that follows prev. It
// is always at least one millisecond past prev, so two writes inside the
// same millisecond still produce increasing stamps.
func nextUpdate(now, prev time.Time) time.Time {
	if floor := prev.Add(time.Millisecond); now.Before(floor) {
		return floor.UTC()
	}
	return now
}
