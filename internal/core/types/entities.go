package types

import (
	"encoding/json"
	"time"
)

// PMAEntity is the base interface that all PMA entities must implement
type PMAEntity interface {
	// Basic identification
	GetID() string
	GetType() PMAEntityType
	GetFriendlyName() string
	GetIcon() string

	// State management
	GetState() PMAEntityState
	GetAttributes() map[string]interface{}
	GetLastUpdated() time.Time

	// Control
	CanControl() bool
	GetAvailableActions() []string

	// Source tracking
	GetMetadata() *PMAMetadata
	GetSource() PMASourceType

	IsAvailable() bool

	// Serialization
	ToJSON() ([]byte, error)
}

// PMABaseEntity provides a base implementation of PMAEntity
type PMABaseEntity struct {
	ID           string                 `json:"id"`
	Type         PMAEntityType          `json:"type"`
	FriendlyName string                 `json:"friendly_name"`
	Icon         string                 `json:"icon,omitempty"`
	State        PMAEntityState         `json:"state"`
	Attributes   map[string]interface{} `json:"attributes"`
	LastUpdated  time.Time              `json:"last_updated"`
	DeviceID     *string                `json:"device_id,omitempty"`
	Metadata     *PMAMetadata           `json:"metadata"`
	Available    bool                   `json:"available"`
}

// Implement PMAEntity interface for PMABaseEntity
func (e *PMABaseEntity) GetID() string                         { return e.ID }
func (e *PMABaseEntity) GetType() PMAEntityType                { return e.Type }
func (e *PMABaseEntity) GetFriendlyName() string               { return e.FriendlyName }
func (e *PMABaseEntity) GetIcon() string                       { return e.Icon }
func (e *PMABaseEntity) GetState() PMAEntityState              { return e.State }
func (e *PMABaseEntity) GetAttributes() map[string]interface{} { return e.Attributes }
func (e *PMABaseEntity) GetLastUpdated() time.Time             { return e.LastUpdated }
func (e *PMABaseEntity) GetMetadata() *PMAMetadata             { return e.Metadata }
func (e *PMABaseEntity) IsAvailable() bool                     { return e.Available }

func (e *PMABaseEntity) GetSource() PMASourceType {
	if e.Metadata != nil {
		return e.Metadata.Source
	}
	return SourcePMA
}

func (e *PMABaseEntity) CanControl() bool {
	return e.Available && len(e.GetAvailableActions()) > 0
}

// GetAvailableActions is empty for read-only entities.
func (e *PMABaseEntity) GetAvailableActions() []string {
	return []string{}
}

func (e *PMABaseEntity) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PMASwitchEntity is an on/off control.
type PMASwitchEntity struct {
	*PMABaseEntity
}

func (s *PMASwitchEntity) GetAvailableActions() []string {
	return []string{ActionTurnOn, ActionTurnOff, ActionToggle}
}

func (s *PMASwitchEntity) CanControl() bool { return s.Available }

// PMAButtonEntity triggers a one-shot command.
type PMAButtonEntity struct {
	*PMABaseEntity
}

func (b *PMAButtonEntity) GetAvailableActions() []string {
	return []string{ActionPress}
}

func (b *PMAButtonEntity) CanControl() bool { return b.Available }

// PMASensorEntity implementation
type PMASensorEntity struct {
	*PMABaseEntity
	Unit            string    `json:"unit,omitempty"`
	DeviceClass     string    `json:"device_class,omitempty"`
	NumericValue    *float64  `json:"numeric_value,omitempty"`
	StringValue     string    `json:"string_value,omitempty"`
	LastMeasurement time.Time `json:"last_measurement"`
}

func (s *PMASensorEntity) ToJSON() ([]byte, error) {
	return json.Marshal(s)
}

// PMABinarySensorEntity reports a boolean condition as on/off.
type PMABinarySensorEntity struct {
	*PMABaseEntity
	DeviceClass string `json:"device_class,omitempty"`
}

func (b *PMABinarySensorEntity) ToJSON() ([]byte, error) {
	return json.Marshal(b)
}

// BoolState maps a flag to StateOn or StateOff.
func BoolState(on bool) PMAEntityState {
	if on {
		return StateOn
	}
	return StateOff
}
