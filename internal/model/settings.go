package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrNonExistentSetting is returned for an unknown action or one that does
	// not support the requested direction.
	ErrNonExistentSetting = errors.New("non-existent setting")

	// ErrInvalidSettingValue is returned when the payload does not fit the action.
	ErrInvalidSettingValue = errors.New("invalid setting value")
)

// SettingAction names a settings operation exposed to clients.
type SettingAction string

// Setting actions.
const (
	// SettingNotifDisable reads or sets the global mute flag.
	SettingNotifDisable SettingAction = "notif.disable"
	// SettingNotifIgnore reads the list of muted kinds.
	SettingNotifIgnore SettingAction = "notif.ignore"
	// SettingNotifIgnoreAdd mutes one kind.
	SettingNotifIgnoreAdd SettingAction = "notif.ignore.add"
	// SettingNotifIgnoreDel unmutes one kind.
	SettingNotifIgnoreDel SettingAction = "notif.ignore.del"
	// SettingNotifAll reads the whole notification settings object.
	SettingNotifAll SettingAction = "notif.all"
)

var (
	readableSettings = []SettingAction{SettingNotifDisable, SettingNotifIgnore, SettingNotifAll}
	writableSettings = []SettingAction{SettingNotifDisable, SettingNotifIgnoreAdd, SettingNotifIgnoreDel}
)

// SettingOp is a parsed, typed settings mutation.
type SettingOp struct {
	Action  SettingAction
	Enabled bool
	Kind    EventKind
}

// ParseSettingOp validates a write request. value is the raw JSON payload sent
// by the client: a boolean for notif.disable, an event kind string otherwise.
func ParseSettingOp(action string, value json.RawMessage) (SettingOp, error) {
	a := SettingAction(action)
	if !slices.Contains(writableSettings, a) {
		return SettingOp{}, fmt.Errorf("%w: %s", ErrNonExistentSetting, action)
	}

	op := SettingOp{Action: a}
	switch a {
	case SettingNotifDisable:
		if err := json.Unmarshal(value, &op.Enabled); err != nil {
			return SettingOp{}, fmt.Errorf("%w: %s expects a boolean", ErrInvalidSettingValue, action)
		}
	default:
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return SettingOp{}, fmt.Errorf("%w: %s expects an event kind", ErrInvalidSettingValue, action)
		}
		kind, err := ParseEventKind(s)
		if err != nil {
			return SettingOp{}, fmt.Errorf("%w: %w", ErrInvalidSettingValue, err)
		}
		op.Kind = kind
	}
	return op, nil
}

// Apply mutates s according to the operation. Removing a kind that is not
// muted fails with ErrNonExistentSetting; adding one twice is a no-op.
func (op SettingOp) Apply(s *NotificationSettings) error {
	switch op.Action {
	case SettingNotifDisable:
		s.DisableAll = op.Enabled
	case SettingNotifIgnoreAdd:
		if !s.Ignores(op.Kind) {
			s.Ignore = append(s.Ignore, op.Kind)
		}
	case SettingNotifIgnoreDel:
		idx := slices.Index(s.Ignore, op.Kind)
		if idx < 0 {
			return fmt.Errorf("%w: %s is not ignored", ErrNonExistentSetting, op.Kind)
		}
		s.Ignore = slices.Delete(s.Ignore, idx, idx+1)
	default:
		return fmt.Errorf("%w: %s", ErrNonExistentSetting, op.Action)
	}
	return nil
}

// ReadSetting returns the current value of a readable setting.
func ReadSetting(s NotificationSettings, action string) (any, error) {
	a := SettingAction(action)
	if !slices.Contains(readableSettings, a) {
		return nil, fmt.Errorf("%w: %s", ErrNonExistentSetting, action)
	}

	switch a {
	case SettingNotifDisable:
		return s.DisableAll, nil
	case SettingNotifIgnore:
		return ignoreList(s), nil
	default:
		return NotificationSettings{DisableAll: s.DisableAll, Ignore: ignoreList(s)}, nil
	}
}

// ignoreList copies the muted kinds, never returning nil so clients get [].
func ignoreList(s NotificationSettings) []EventKind {
	if s.Ignore == nil {
		return []EventKind{}
	}
	return slices.Clone(s.Ignore)
}
