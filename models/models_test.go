package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"Submitter", "Moderator", "Analyst", "Searcher", "Administrator"} {
		role, err := ParseRole(valid)
		require.NoError(t, err)
		assert.Equal(t, Role(valid), role)
	}
	for _, invalid := range []string{"", "admin", "submitter", "SuperUser"} {
		_, err := ParseRole(invalid)
		assert.Error(t, err, "input %q", invalid)
	}
}

func TestOnlyAdministratorIsAdmin(t *testing.T) {
	assert.True(t, RoleAdministrator.IsAdmin())
	for _, role := range []Role{RoleSubmitter, RoleModerator, RoleAnalyst, RoleSearcher} {
		assert.False(t, role.IsAdmin())
	}
}

func TestParseEvidenceType(t *testing.T) {
	for _, valid := range []string{
		"Empirical Study", "Case Study", "Experimental",
		"Systematic Literature Review", "Meta Analysis",
		"Survey", "Theoretical", "Tool Evaluation",
	} {
		ev, err := ParseEvidenceType(valid)
		require.NoError(t, err)
		assert.Equal(t, EvidenceType(valid), ev)
	}
	for _, invalid := range []string{"", "empirical study", "Literature Review", "Strongly Supports"} {
		_, err := ParseEvidenceType(invalid)
		assert.Error(t, err, "input %q", invalid)
	}
}
