package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valgraph/valgraph/pkg/domain"
)

func TestRunStoreRoundTrip(t *testing.T) {
	s := NewRunStore()
	ctx := context.Background()

	state := domain.NewRunState("run-1", "flow", "ACME")
	state.TerminalReason = domain.TerminalComplete
	state.Append(domain.NodeRunResult{NodeID: "a", Iteration: 1, Status: domain.ResultSuccess})

	require.NoError(t, s.SaveRecord(ctx, state))

	got, err := s.GetRecord(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "flow", got.WorkflowID)
	assert.Len(t, got.History["a"], 1)

	ids, err := s.ListRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1"}, ids)

	require.NoError(t, s.DeleteRecord(ctx, "run-1"))
	_, err = s.GetRecord(ctx, "run-1")
	assert.Error(t, err)
	assert.Error(t, s.DeleteRecord(ctx, "run-1"))
}
