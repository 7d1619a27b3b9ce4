package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePermission(t *testing.T) {
	t.Run("accepts_every_known_value", func(t *testing.T) {
		for _, p := range Permissions() {
			parsed, err := ParsePermission(string(p))
			require.NoError(t, err)
			assert.Equal(t, p, parsed)
		}
	})

	t.Run("rejects_unknown_tag", func(t *testing.T) {
		_, err := ParsePermission("owner")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "owner")
	})

	t.Run("rejects_empty_tag", func(t *testing.T) {
		_, err := ParsePermission("")
		require.Error(t, err)
	})
}

func TestPermissionLabel(t *testing.T) {
	assert.Equal(t, "Reader", PermissionReader.Label())
	assert.Equal(t, "Project Administrator", PermissionProjectAdmin.Label())
	assert.Equal(t, "Build Administrator", PermissionBuildAdmin.Label())
}

func TestPolicyValidate(t *testing.T) {
	valid := Policy{
		Organization: "aalcloud",
		Project:      "Platform",
		Group:        "Platform Devs",
		Permission:   PermissionContributor,
	}

	t.Run("valid_policy", func(t *testing.T) {
		require.NoError(t, valid.Validate())
	})

	t.Run("missing_organization", func(t *testing.T) {
		p := valid
		p.Organization = ""
		require.Error(t, p.Validate())
	})

	t.Run("missing_group", func(t *testing.T) {
		p := valid
		p.Group = ""
		require.Error(t, p.Validate())
	})

	t.Run("unknown_permission", func(t *testing.T) {
		p := valid
		p.Permission = "superuser"
		require.Error(t, p.Validate())
	})
}
