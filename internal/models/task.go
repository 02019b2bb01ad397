package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task priorities
const (
	TaskPriorityP0 = "p0"
	TaskPriorityP1 = "p1"
	TaskPriorityP2 = "p2"
	TaskPriorityP3 = "p3"
)

// Task belongs to a DAG entity. Priority changes are part of the write
// surface and feed the invalidation catalog.
type Task struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DagID     string             `bson:"dag_id" json:"dagId" validate:"required"`
	Name      string             `bson:"name" json:"name" validate:"required"`
	Priority  string             `bson:"priority" json:"priority" validate:"required,oneof=p0 p1 p2 p3"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}
