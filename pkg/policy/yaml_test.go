package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestStatementsMarshal(t *testing.T) {
	testCases := []struct {
		name     string
		policy   Statements
		expected string
	}{
		{
			name:   "bare-role",
			policy: Statements{Role{Name: "Support"}},
			expected: `- !role Support
`,
		},
		{
			name:   "role",
			policy: Statements{Role{Name: "Support", Description: "Customer support"}},
			expected: `- !role
  name: Support
  description: Customer support
`,
		},
		{
			name:   "grant",
			policy: Statements{Grant{Role: "Support", Members: []string{"alice@example.com", "bob@example.com"}}},
			expected: `- !grant
  role: Support
  members: [alice@example.com, bob@example.com]
`,
		},
		{
			name:   "delete",
			policy: Statements{Delete{Role: "Legacy"}},
			expected: `- !delete Legacy
`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := yaml.Marshal(tc.policy)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, string(out))

			parsed, err := Parse(out)
			require.NoError(t, err)
			assert.Equal(t, tc.policy, parsed)
		})
	}
}

func TestStatementsRoundTrip(t *testing.T) {
	policy := Statements{
		Role{Name: "Support", Permissions: []string{"users:read", "reports:view"}},
		Role{Name: "Nobody", Permissions: []string{}},
		Revoke{Role: "Support", Members: []string{"carol@example.com"}},
	}
	out, err := yaml.Marshal(policy)
	require.NoError(t, err)

	parsed, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, policy, parsed)
}

func TestParse(t *testing.T) {
	t.Run("all statement forms", func(t *testing.T) {
		statements, err := Parse([]byte(`
- !role
  name: Support
  permissions: [users:read]
- !role Auditor
- !grant
  role: Support
  member: alice@example.com
- !revoke
  role: Auditor
  members: [bob@example.com]
- !delete
  role: Legacy
`))
		require.NoError(t, err)
		assert.Equal(t, Statements{
			Role{Name: "Support", Permissions: []string{"users:read"}},
			Role{Name: "Auditor"},
			Grant{Role: "Support", Members: []string{"alice@example.com"}},
			Revoke{Role: "Auditor", Members: []string{"bob@example.com"}},
			Delete{Role: "Legacy"},
		}, statements)
	})

	t.Run("an empty permission list is kept apart from a missing one", func(t *testing.T) {
		statements, err := Parse([]byte("- !role\n  name: Support\n  permissions: []\n"))
		require.NoError(t, err)
		role := statements[0].(Role)
		assert.NotNil(t, role.Permissions)
		assert.Empty(t, role.Permissions)
	})

	t.Run("empty document", func(t *testing.T) {
		statements, err := Parse(nil)
		require.NoError(t, err)
		assert.Empty(t, statements)
	})

	errorCases := []struct {
		name   string
		input  string
		errMsg string
	}{
		{"not a sequence", "role: Support\n", "must be a sequence"},
		{"unknown tag", "- !user alice\n", `unknown statement tag "!user"`},
		{"untagged entry", "- name: Support\n", "unknown statement tag"},
		{"unknown permission", "- !role\n  name: Support\n  permissions: [secrets:steal]\n", "'secrets:steal' is not a valid permission"},
		{"missing role name", "- !role\n  description: nameless\n", "role name is required"},
		{"duplicate role", "- !role Support\n- !role Support\n", `role "Support" is declared more than once`},
		{"grant without members", "- !grant\n  role: Support\n", "at least one member is required"},
		{"revoke without role", "- !revoke\n  member: alice@example.com\n", "role is required"},
		{"delete without role", "- !delete\n  role: \"\"\n", "role is required"},
	}
	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestKindTag(t *testing.T) {
	assert.Equal(t, "!role", KindRole.Tag())
	assert.Equal(t, "!revoke", KindRevoke.Tag())
	assert.Equal(t, "Kind(9)", Kind(9).String())

	kind, ok := kindForTag("!delete")
	assert.True(t, ok)
	assert.Equal(t, KindDelete, kind)

	_, ok = kindForTag("!policy")
	assert.False(t, ok)
	_, ok = kindForTag("!Grant")
	assert.False(t, ok)
	_, ok = kindForTag("grant")
	assert.False(t, ok)

	assert.Equal(t, []string{"role", "grant", "revoke", "delete"}, KindStrings())
	assert.False(t, Kind(9).IsAKind())
}
