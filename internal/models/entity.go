package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Entity types under SLA monitoring
const (
	EntityTypeTable = "table"
	EntityTypeDag   = "dag"
)

// Entity statuses
const (
	EntityStatusHealthy  = "healthy"
	EntityStatusWarning  = "warning"
	EntityStatusBreached = "breached"
	EntityStatusPaused   = "paused"
)

// Entity is a monitored table or DAG with an SLA target.
type Entity struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name" validate:"required"`
	Type        string             `bson:"type" json:"type" validate:"required,oneof=table dag"`
	Tenant      string             `bson:"tenant" json:"tenant" validate:"required"`
	TeamID      string             `bson:"team_id" json:"teamId" validate:"required"`
	CurrentSLA  float64            `bson:"current_sla" json:"currentSla"`
	TargetSLA   float64            `bson:"target_sla" json:"targetSla"`
	Status      string             `bson:"status" json:"status"`
	LastRefresh time.Time          `bson:"last_refresh" json:"lastRefresh"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

// Team groups entities; many entities to one team.
type Team struct {
	ID     string `bson:"_id" json:"id"`
	Name   string `bson:"name" json:"name" validate:"required"`
	Tenant string `bson:"tenant" json:"tenant" validate:"required"`
}

// Tenant is the top-level grouping for entity queries.
type Tenant struct {
	Name string `bson:"_id" json:"name"`
}
