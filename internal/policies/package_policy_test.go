package policies

import (
	"testing"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryPolicyDefaultOrder(t *testing.T) {
	policy, err := NewRepositoryPolicy(RepositorySelection{Core: true, Extra: true, Community: true})
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"core", "extra", "community"}, policy.Enabled()); diff != "" {
		t.Fatalf("unexpected repositories (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0, policy.Priority("core"))
	assert.Equal(t, 2, policy.Priority("community"))
	assert.Equal(t, -1, policy.Priority("testing"))
}

func TestRepositoryPolicyCustomRepositoriesFollowStandardOnes(t *testing.T) {
	policy, err := NewRepositoryPolicy(RepositorySelection{
		Core:    true,
		Testing: true,
		Custom:  []string{" local ", "", "core", "local"},
	})
	require.NoError(t, err)
	if diff := cmp.Diff([]string{"core", "testing", "local"}, policy.Enabled()); diff != "" {
		t.Fatalf("unexpected repositories (-want +got):\n%s", diff)
	}
	assert.Equal(t, 2, policy.Priority("local"))
}

func TestRepositoryPolicyEnabledReturnsCopy(t *testing.T) {
	policy, err := NewRepositoryPolicy(RepositorySelection{Core: true})
	require.NoError(t, err)
	enabled := policy.Enabled()
	enabled[0] = "mutated"
	assert.Equal(t, []string{"core"}, policy.Enabled())
}

func TestRepositoryPolicyRejectsInvalidSelections(t *testing.T) {
	tests := []struct {
		name      string
		selection RepositorySelection
	}{
		{name: "nothing enabled", selection: RepositorySelection{}},
		{name: "path separator", selection: RepositorySelection{Core: true, Custom: []string{"../etc"}}},
		{name: "dot", selection: RepositorySelection{Custom: []string{"."}}},
		{name: "whitespace inside", selection: RepositorySelection{Custom: []string{"my repo"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRepositoryPolicy(tt.selection)
			require.Error(t, err)
			assert.Equal(t, errbuilder.CodeInvalidArgument, errbuilder.CodeOf(err))
		})
	}
}
