package cart

import (
	"strings"

	"storefront/internal/domain"
)

// Action is one of the three cart mutations.
type Action uint8

const (
	ActionAdd Action = iota + 1
	ActionRemove
	ActionDelete
)

// ParseAction maps the wire names plus, minus and delete to an Action.
func ParseAction(v string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "plus":
		return ActionAdd, nil
	case "minus":
		return ActionRemove, nil
	case "delete":
		return ActionDelete, nil
	default:
		return 0, domain.ErrInvalidAction
	}
}

func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "plus"
	case ActionRemove:
		return "minus"
	case ActionDelete:
		return "delete"
	default:
		return "unknown"
	}
}
