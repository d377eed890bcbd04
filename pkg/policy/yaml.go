package policy

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/doodlesbykumbi/saasgate/pkg/permission"
)

// Statements is a policy document.
type Statements []Statement

// UnmarshalYAML decodes each tagged entry into its statement type.
func (s *Statements) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: policy must be a sequence of statements", value.Line)
	}

	statements := make(Statements, 0, len(value.Content))
	for _, item := range value.Content {
		kind, ok := kindForTag(item.Tag)
		if !ok {
			return fmt.Errorf("line %d: unknown statement tag %q", item.Line, item.Tag)
		}

		var (
			statement Statement
			err       error
		)
		switch kind {
		case KindRole:
			var r Role
			err = item.Decode(&r)
			statement = r
		case KindGrant:
			var g Grant
			err = item.Decode(&g)
			statement = g
		case KindRevoke:
			var r Revoke
			err = item.Decode(&r)
			statement = r
		case KindDelete:
			var d Delete
			err = item.Decode(&d)
			statement = d
		}
		if err != nil {
			return fmt.Errorf("line %d: %s: %w", item.Line, kind.Tag(), err)
		}
		statements = append(statements, statement)
	}

	*s = statements
	return nil
}

// MarshalYAML writes each statement as a tagged node.
func (s Statements) MarshalYAML() (interface{}, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, statement := range s {
		node, err := marshalWithTag(statement)
		if err != nil {
			return nil, err
		}
		seq.Content = append(seq.Content, node)
	}
	return seq, nil
}

func marshalWithTag(statement Statement) (*yaml.Node, error) {
	node := &yaml.Node{}
	if err := node.Encode(statement); err != nil {
		return nil, err
	}

	// Emit `- !role Support` rather than a one-key mapping for bare names
	switch v := statement.(type) {
	case Role:
		if v.Description == "" && v.Permissions == nil {
			node = &yaml.Node{Kind: yaml.ScalarNode, Value: v.Name}
		} else if v.Permissions != nil && len(v.Permissions) == 0 {
			// omitempty drops an explicit empty list, which clears a role
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: "permissions"},
				&yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle},
			)
		}
	case Delete:
		node = &yaml.Node{Kind: yaml.ScalarNode, Value: v.Role}
	}

	node.Tag = statement.Kind().Tag()
	node.Style = yaml.TaggedStyle
	return node, nil
}

// Parse decodes and validates a policy document. An empty document yields
// no statements.
func Parse(data []byte) (Statements, error) {
	var statements Statements
	if err := yaml.Unmarshal(data, &statements); err != nil {
		return nil, err
	}
	if err := statements.Validate(); err != nil {
		return nil, err
	}
	return statements, nil
}

// Validate checks the statements without touching the database: names are
// present, permissions are registered and no role is declared twice.
func (s Statements) Validate() error {
	declared := map[string]bool{}
	for i, statement := range s {
		var err error
		switch v := statement.(type) {
		case Role:
			switch {
			case strings.TrimSpace(v.Name) == "":
				err = fmt.Errorf("role name is required")
			case declared[v.Name]:
				err = fmt.Errorf("role %q is declared more than once", v.Name)
			default:
				declared[v.Name] = true
				err = permission.Validate(v.Permissions)
			}
		case Grant:
			err = validateMembership(v.Role, v.Members)
		case Revoke:
			err = validateMembership(v.Role, v.Members)
		case Delete:
			if strings.TrimSpace(v.Role) == "" {
				err = fmt.Errorf("role is required")
			}
		}
		if err != nil {
			return fmt.Errorf("statement %d (%s): %w", i+1, statement.Kind().Tag(), err)
		}
	}
	return nil
}

func validateMembership(role string, members []string) error {
	if strings.TrimSpace(role) == "" {
		return fmt.Errorf("role is required")
	}
	if len(members) == 0 {
		return fmt.Errorf("at least one member is required")
	}
	for _, m := range members {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("member email must not be empty")
		}
	}
	return nil
}
