package console

import (
	"fmt"

	"github.com/Triaksa-Space/be-admin-console/domain/bulk"
	"github.com/Triaksa-Space/be-admin-console/domain/user"
)

// Action is the closed set of bulk actions. Each variant carries only the
// data its confirm dialog and request need.
type Action interface {
	Operation() bulk.Operation
	isAction()
}

type (
	Ban        struct{}
	Unban      struct{}
	Activate   struct{}
	Deactivate struct{}
	Delete     struct{}
	AssignRole struct{ Role user.Role }
)

func (Ban) Operation() bulk.Operation        { return bulk.OpBan }
func (Unban) Operation() bulk.Operation      { return bulk.OpUnban }
func (Activate) Operation() bulk.Operation   { return bulk.OpActivate }
func (Deactivate) Operation() bulk.Operation { return bulk.OpDeactivate }
func (Delete) Operation() bulk.Operation     { return bulk.OpDelete }
func (AssignRole) Operation() bulk.Operation { return bulk.OpAssignRole }

func (Ban) isAction()        {}
func (Unban) isAction()      {}
func (Activate) isAction()   {}
func (Deactivate) isAction() {}
func (Delete) isAction()     {}
func (AssignRole) isAction() {}

// ActionFor builds the variant for op. role is only used by assign_role.
func ActionFor(op bulk.Operation, role user.Role) (Action, error) {
	switch op {
	case bulk.OpBan:
		return Ban{}, nil
	case bulk.OpUnban:
		return Unban{}, nil
	case bulk.OpActivate:
		return Activate{}, nil
	case bulk.OpDeactivate:
		return Deactivate{}, nil
	case bulk.OpDelete:
		return Delete{}, nil
	case bulk.OpAssignRole:
		if role.ID == "" {
			return nil, fmt.Errorf("assign_role needs a role")
		}
		return AssignRole{Role: role}, nil
	}
	return nil, fmt.Errorf("unknown operation %q", op)
}

// Confirm describes the confirmation dialog for an action.
type Confirm struct {
	Title        string
	Message      string
	ConfirmLabel string
	Destructive  bool
	AsksReason   bool
	AsksForce    bool
}

func DescribeConfirm(a Action, count int) Confirm {
	switch a := a.(type) {
	case Ban:
		return Confirm{
			Title:        "Ban users",
			Message:      fmt.Sprintf("Ban %d user(s)? They will be signed out and unable to log in.", count),
			ConfirmLabel: "Ban",
			Destructive:  true,
			AsksReason:   true,
		}
	case Unban:
		return Confirm{
			Title:        "Unban users",
			Message:      fmt.Sprintf("Unban %d user(s) and restore their access?", count),
			ConfirmLabel: "Unban",
		}
	case Activate:
		return Confirm{
			Title:        "Activate users",
			Message:      fmt.Sprintf("Activate %d user(s)?", count),
			ConfirmLabel: "Activate",
		}
	case Deactivate:
		return Confirm{
			Title:        "Deactivate users",
			Message:      fmt.Sprintf("Deactivate %d user(s)? They will not be able to log in until reactivated.", count),
			ConfirmLabel: "Deactivate",
			AsksReason:   true,
		}
	case Delete:
		return Confirm{
			Title:        "Delete users",
			Message:      fmt.Sprintf("Permanently delete %d user(s)? This cannot be undone.", count),
			ConfirmLabel: "Delete",
			Destructive:  true,
			AsksForce:    true,
		}
	case AssignRole:
		return Confirm{
			Title:        "Assign role",
			Message:      fmt.Sprintf("Assign the %s role to %d user(s)?", a.Role.Name, count),
			ConfirmLabel: "Assign",
		}
	default:
		panic(fmt.Sprintf("console: unhandled action %T", a))
	}
}
