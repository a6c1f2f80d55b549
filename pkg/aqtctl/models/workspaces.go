package models

import "time"

type ResourceType string

const (
	ResourceTypeDevice    ResourceType = "device"
	ResourceTypeSimulator ResourceType = "simulator"
)

type ResourceStatus string

const (
	ResourceStatusOnline      ResourceStatus = "online"
	ResourceStatusOffline     ResourceStatus = "offline"
	ResourceStatusMaintenance ResourceStatus = "maintenance"
	ResourceStatusUnavailable ResourceStatus = "unavailable"
)

// WorkspaceResource is a resource as listed within a workspace.
type WorkspaceResource struct {
	ID   string       `json:"id" yaml:"id"`
	Name string       `json:"name" yaml:"name"`
	Type ResourceType `json:"type" yaml:"type"`
}

type Workspace struct {
	ID                      string              `json:"id" yaml:"id"`
	AcceptingJobSubmissions bool                `json:"accepting_job_submissions" yaml:"accepting_job_submissions"`
	JobsBeingProcessed      bool                `json:"jobs_being_processed" yaml:"jobs_being_processed"`
	Resources               []WorkspaceResource `json:"resources" yaml:"resources"`
}

// ResourceDetails is the public description of a single resource.
type ResourceDetails struct {
	ID              string         `json:"id" yaml:"id"`
	Name            string         `json:"name" yaml:"name"`
	Type            ResourceType   `json:"type" yaml:"type"`
	Status          ResourceStatus `json:"status" yaml:"status"`
	AvailableQubits int            `json:"available_qubits" yaml:"available_qubits"`
	StatusUpdatedAt time.Time      `json:"status_updated_at" yaml:"status_updated_at"`
}
