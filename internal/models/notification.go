package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification channels
const (
	NotificationChannelEmail = "email"
	NotificationChannelSlack = "slack"
)

// NotificationConfig holds per-entity breach notification settings.
// Delivery itself runs as an external service; this backend only stores
// the configuration and invalidates dependent dashboard keys on change.
type NotificationConfig struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EntityID  string             `bson:"entity_id" json:"entityId" validate:"required"`
	Channel   string             `bson:"channel" json:"channel" validate:"required,oneof=email slack"`
	Target    string             `bson:"target" json:"target" validate:"required"`
	Enabled   bool               `bson:"enabled" json:"enabled"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}
