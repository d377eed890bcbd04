package permission

import (
	"fmt"
	"sort"
)

// Named permissions.
const (
	RBACManage     = "rbac:manage"
	UsersRead      = "users:read"
	UsersManage    = "users:manage"
	ReportsView    = "reports:view"
	PaymentsCreate = "payments:create"
	PaymentsManage = "payments:manage"
)

// Actions used by the resource:action pattern.
const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Definition is a registered permission.
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var named = []Definition{
	{RBACManage, "Allows managing roles and permissions."},
	{UsersRead, "Allows reading all user data."},
	{UsersManage, "Allows creating, editing, and deleting users."},
	{ReportsView, "Allows viewing admin reports."},
	{PaymentsCreate, "Allows creating payments."},
	{PaymentsManage, "Allows capturing and refunding payments."},
}

// crudResources are guarded by inferred checks.
var crudResources = []string{"profiles", "users", "payments"}

var registry = build()

func build() map[string]string {
	r := make(map[string]string)
	for _, resource := range crudResources {
		for _, action := range []string{ActionRead, ActionCreate, ActionUpdate, ActionDelete} {
			r[Name(resource, action)] = fmt.Sprintf("Allows the %s action on %s.", action, resource)
		}
	}
	for _, d := range named {
		r[d.Name] = d.Description
	}
	return r
}

// Name joins a resource and an action.
func Name(resource, action string) string {
	return resource + ":" + action
}

// All returns every registered permission sorted by name.
func All() []Definition {
	defs := make([]Definition, 0, len(registry))
	for name, desc := range registry {
		defs = append(defs, Definition{Name: name, Description: desc})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Names returns every registered permission name, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsValid reports whether name is registered.
func IsValid(name string) bool {
	_, ok := registry[name]
	return ok
}

// Describe returns the description of a registered permission.
func Describe(name string) (string, bool) {
	desc, ok := registry[name]
	return desc, ok
}

// UnknownError is returned when a permission name is not registered.
type UnknownError struct {
	Value string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("'%s' is not a valid permission", e.Value)
}

// Validate checks every name against the registry and reports the first
// unknown one.
func Validate(names []string) error {
	for _, name := range names {
		if !IsValid(name) {
			return &UnknownError{Value: name}
		}
	}
	return nil
}
