package storage

import (
	"time"

	"github.com/google/uuid"

	"github.com/KevinKickass/FlasherCore/internal/types"
)

// DeploymentRecord is one finished deploy or init request.
type DeploymentRecord struct {
	ID               uuid.UUID               `json:"id"`
	Operation        string                  `json:"operation"`
	Folder           string                  `json:"folder"`
	NodeName         string                  `json:"node_name"`
	Controller       string                  `json:"controller,omitempty"`
	Transport        string                  `json:"transport,omitempty"`
	Endpoint         string                  `json:"endpoint,omitempty"`
	Success          bool                    `json:"success"`
	Stage            string                  `json:"stage,omitempty"`
	Error            string                  `json:"error,omitempty"`
	Output           string                  `json:"output,omitempty"`
	Warning          string                  `json:"warning,omitempty"`
	Program          []string                `json:"program,omitempty"`
	Slots            types.Slots             `json:"slots"`
	ValidationErrors []types.ValidationError `json:"validation_errors,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	FinishedAt       time.Time               `json:"finished_at"`
}

// NodeDefinition is the last accepted slot selection of a node.
type NodeDefinition struct {
	Folder     string      `json:"folder"`
	NodeName   string      `json:"node_name"`
	Controller string      `json:"controller"`
	Slots      types.Slots `json:"slots"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
