package feedback

import "github.com/mbolis/quick-feedback/model"

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Role   model.Role
	Name   string
	Email  string
}

func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == model.RoleAdmin
}

// Ref is the actor as it is recorded on the records it touches.
func (a *Actor) Ref() *model.UserRef {
	if a == nil {
		return nil
	}
	return &model.UserRef{ID: a.UserID, Name: a.Name, Email: a.Email}
}

// CanAccess reports whether actor may read or mutate form: its owner or any admin.
func CanAccess(actor *Actor, form *model.Form) bool {
	if actor == nil || form == nil {
		return false
	}
	return actor.IsAdmin() || form.CreatedBy == actor.UserID
}

// Authorize is CanAccess as an error, ErrForbidden when access is denied.
func Authorize(actor *Actor, form *model.Form) error {
	if !CanAccess(actor, form) {
		return ErrForbidden
	}
	return nil
}

// CanReadNotification reports whether actor is the recipient of n.
func CanReadNotification(actor *Actor, n *model.Notification) bool {
	return actor != nil && n != nil && n.Recipient == actor.UserID
}
