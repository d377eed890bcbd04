package policy

import (
	"gopkg.in/yaml.v3"
)

// Statement is a single entry of a policy file.
type Statement interface {
	Kind() Kind
}

// Role declares a role. Permissions is nil when the file leaves them out.
type Role struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Permissions []string `yaml:"permissions,omitempty,flow"`
}

func (Role) Kind() Kind { return KindRole }

// UnmarshalYAML for Role handles both scalar (just the name) and mapping forms
func (r *Role) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		r.Name = value.Value
		return nil
	}
	type roleAlias Role
	return value.Decode((*roleAlias)(r))
}

// Grant assigns Role to every member.
type Grant struct {
	Role    string   `yaml:"role"`
	Members []string `yaml:"members,flow"`
}

func (Grant) Kind() Kind { return KindGrant }

// UnmarshalYAML for Grant handles both "member" and "members" fields
func (g *Grant) UnmarshalYAML(value *yaml.Node) error {
	role, members, err := decodeMembership(value)
	g.Role, g.Members = role, members
	return err
}

// Revoke unassigns Role from every member.
type Revoke struct {
	Role    string   `yaml:"role"`
	Members []string `yaml:"members,flow"`
}

func (Revoke) Kind() Kind { return KindRevoke }

// UnmarshalYAML for Revoke handles both "member" and "members" fields
func (r *Revoke) UnmarshalYAML(value *yaml.Node) error {
	role, members, err := decodeMembership(value)
	r.Role, r.Members = role, members
	return err
}

func decodeMembership(value *yaml.Node) (string, []string, error) {
	var raw struct {
		Role    string   `yaml:"role"`
		Member  string   `yaml:"member"`
		Members []string `yaml:"members"`
	}
	if err := value.Decode(&raw); err != nil {
		return "", nil, err
	}
	// If members (plural) is provided, use it; otherwise use member (singular)
	if len(raw.Members) > 0 {
		return raw.Role, raw.Members, nil
	}
	if raw.Member != "" {
		return raw.Role, []string{raw.Member}, nil
	}
	return raw.Role, nil, nil
}

// Delete removes a role.
type Delete struct {
	Role string `yaml:"role"`
}

func (Delete) Kind() Kind { return KindDelete }

// UnmarshalYAML for Delete handles both scalar (just the role) and mapping forms
func (d *Delete) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		d.Role = value.Value
		return nil
	}
	type deleteAlias Delete
	return value.Decode((*deleteAlias)(d))
}
