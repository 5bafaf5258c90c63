package entities

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/frostdev-ops/fileflows-bridge/internal/adapters/fileflows"
	"github.com/frostdev-ops/fileflows-bridge/internal/core/coordinator"
	"github.com/frostdev-ops/fileflows-bridge/internal/core/types"
)

var (
	ErrEntityNotFound    = errors.New("entity not found")
	ErrUnsupportedAction = errors.New("action not supported by entity")
)

// Controller is the part of the coordinator the entity layer reads from and
// routes actions to.
type Controller interface {
	Snapshot() *coordinator.Snapshot
	Status() coordinator.Status
	Pause(ctx context.Context, minutes int) error
	Resume(ctx context.Context) error
	Restart(ctx context.Context) error
	SetNodeEnabled(ctx context.Context, uid string, enabled bool) error
	SetLibraryEnabled(ctx context.Context, uid string, enabled bool) error
	SetFlowEnabled(ctx context.Context, uid string, enabled bool) error
	RescanLibrary(ctx context.Context, uid string) error
	RescanAll(ctx context.Context) error
	RunTask(ctx context.Context, uid string) error
}

// Service maps the current Snapshot onto PMA entities
type Service struct {
	coord  Controller
	logger *logrus.Logger
}

// NewService creates a new entity service
func NewService(coord Controller, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		coord:  coord,
		logger: logger,
	}
}

// GetAll returns every entity for the current Snapshot
func (s *Service) GetAll() []types.PMAEntity {
	entries := s.build()
	result := make([]types.PMAEntity, len(entries))
	for i, e := range entries {
		result[i] = e.entity
	}
	return result
}

// GetByType returns the entities of one type
func (s *Service) GetByType(entityType types.PMAEntityType) []types.PMAEntity {
	var result []types.PMAEntity
	for _, e := range s.build() {
		if e.entity.GetType() == entityType {
			result = append(result, e.entity)
		}
	}
	return result
}

// GetByID retrieves an entity by ID
func (s *Service) GetByID(entityID string) (types.PMAEntity, error) {
	e, ok := s.find(entityID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, entityID)
	}
	return e.entity, nil
}

// ExecuteAction routes an action on a switch or button to the matching
// control command. The result reflects the command outcome; the entity
// state itself changes with the next refresh.
func (s *Service) ExecuteAction(ctx context.Context, action types.PMAControlAction) (*types.PMAControlResult, error) {
	start := time.Now()
	requestID := uuid.New().String()
	if action.Context != nil && action.Context.ID != "" {
		requestID = action.Context.ID
	}

	logger := s.logger.WithFields(logrus.Fields{
		"entity_id":  action.EntityID,
		"action":     action.Action,
		"request_id": requestID,
	})

	e, ok := s.find(action.EntityID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntityNotFound, action.EntityID)
	}

	result := &types.PMAControlResult{
		EntityID:   action.EntityID,
		Action:     action.Action,
		Attributes: map[string]interface{}{"request_id": requestID},
	}
	finish := func(err error) (*types.PMAControlResult, error) {
		result.ProcessedAt = time.Now()
		result.Duration = time.Since(start)
		if err != nil {
			result.Error = actionError(action, err)
			return result, err
		}
		result.Success = true
		return result, nil
	}

	if e.control == nil || !supports(e.entity, action.Action) {
		err := fmt.Errorf("%w: %s on %s", ErrUnsupportedAction, action.Action, action.EntityID)
		logger.Warn("Rejected entity action")
		return finish(err)
	}

	newState, err := e.control(ctx, action)
	if err != nil {
		logger.WithError(err).Error("Entity action failed")
		return finish(err)
	}

	result.NewState = newState
	logger.WithField("new_state", newState).Info("Entity action executed")
	return finish(nil)
}

func supports(entity types.PMAEntity, action string) bool {
	for _, a := range entity.GetAvailableActions() {
		if a == action {
			return true
		}
	}
	return false
}

func actionError(action types.PMAControlAction, err error) *types.PMAError {
	code := "COMMAND_FAILED"
	retryable := false
	switch {
	case errors.Is(err, ErrUnsupportedAction):
		code = "UNSUPPORTED_ACTION"
	case fileflows.IsConnectionError(err):
		code = "CONNECTION_ERROR"
		retryable = true
	case fileflows.IsAuthError(err):
		code = "AUTH_ERROR"
	case fileflows.IsProtocolError(err):
		code = "PROTOCOL_ERROR"
	}
	return &types.PMAError{
		Code:      code,
		Message:   err.Error(),
		Source:    string(types.SourceFileFlows),
		EntityID:  action.EntityID,
		Timestamp: time.Now(),
		Retryable: retryable,
	}
}

// control performs an action and returns the state the entity is expected
// to reach.
type control func(ctx context.Context, action types.PMAControlAction) (types.PMAEntityState, error)

type entry struct {
	entity  types.PMAEntity
	control control
}

func (s *Service) find(entityID string) (entry, bool) {
	for _, e := range s.build() {
		if e.entity.GetID() == entityID {
			return e, true
		}
	}
	return entry{}, false
}

// EntityID builds the id of an entity: fileflows_<type>_<key>, with the key
// lowercased and every run of other characters folded into one underscore.
func EntityID(entityType types.PMAEntityType, key string) string {
	var b strings.Builder
	underscore := false
	for _, r := range strings.ToLower(key) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore && b.Len() > 0 {
			b.WriteByte('_')
			underscore = true
		}
	}
	return "fileflows_" + string(entityType) + "_" + strings.TrimSuffix(b.String(), "_")
}

// switchControl turns an on/off setter into a switch control. Toggle reads
// the state the switch currently shows.
func switchControl(current types.PMAEntityState, set func(ctx context.Context, on bool, action types.PMAControlAction) error) control {
	return func(ctx context.Context, action types.PMAControlAction) (types.PMAEntityState, error) {
		var on bool
		switch action.Action {
		case types.ActionTurnOn:
			on = true
		case types.ActionTurnOff:
			on = false
		case types.ActionToggle:
			on = current != types.StateOn
		}
		if err := set(ctx, on, action); err != nil {
			return "", err
		}
		return types.BoolState(on), nil
	}
}

func buttonControl(press func(ctx context.Context) error) control {
	return func(ctx context.Context, _ types.PMAControlAction) (types.PMAEntityState, error) {
		return "", press(ctx)
	}
}

// pauseMinutes reads the optional "minutes" parameter of a turn_off on the
// processing switch. Zero pauses indefinitely.
func pauseMinutes(action types.PMAControlAction) int {
	if action.Parameters == nil {
		return 0
	}
	minutes := cast.ToInt(action.Parameters["minutes"])
	if minutes < 0 {
		return 0
	}
	return minutes
}
