// Package notify delivers domain events to users and staff roles.
package notify

import (
	"context"
	"errors"
)

// RoleAdmin addresses every admin and moderator.
const RoleAdmin = "admin"

// Event is a single outbound notification. Exactly one of UserID or Role
// addresses the recipient.
type Event struct {
	UserID  uint                   `json:"user_id,omitempty"`
	Role    string                 `json:"role,omitempty"`
	Type    string                 `json:"type"`
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// ToUser builds an event addressed to a single user.
func ToUser(userID uint, typ, title, message string, data map[string]interface{}) Event {
	return Event{UserID: userID, Type: typ, Title: title, Message: message, Data: data}
}

// ToRole builds an event addressed to everyone holding role.
func ToRole(role, typ, title, message string, data map[string]interface{}) Event {
	return Event{Role: role, Type: typ, Title: title, Message: message, Data: data}
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Fanout delivers every event to all sinks and reports the joined failures.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }
