package workflow

import (
	"errors"
	"testing"

	"github.com/faisal-mohamed/rfdb-new/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// advance applies action a to current the way the workflow service does.
func advance(a Action, current models.WorkflowStatus) (models.WorkflowStatus, error) {
	r, err := Lookup(a)
	if err != nil {
		return "", err
	}
	if err := r.Check(current); err != nil {
		return "", err
	}
	return r.Next(current), nil
}

func TestNext_HappyPath(t *testing.T) {
	steps := []struct {
		action Action
		want   models.WorkflowStatus
	}{
		{ActionProcessV1, models.StatusV1Ready},
		{ActionStartEditV1, models.StatusV1Editing},
		{ActionSaveV1, models.StatusV1Editing},
		{ActionCompleteV1, models.StatusV1Completed},
		{ActionProcessV2, models.StatusV2Ready},
		{ActionStartEditV2, models.StatusV2Editing},
		{ActionSaveV2, models.StatusV2Editing},
		{ActionCompleteV2, models.StatusV2Completed},
		{ActionApprove, models.StatusApproved},
		{ActionGenerateDocument, models.StatusCompleted},
	}

	status := models.StatusUploaded
	for _, step := range steps {
		next, err := advance(step.action, status)
		require.NoError(t, err, "action %s from %s", step.action, status)
		assert.Equal(t, step.want, next, "action %s", step.action)
		status = next
	}
}

func TestNext_Rejections(t *testing.T) {
	tests := []struct {
		action  Action
		current models.WorkflowStatus
	}{
		{ActionStartEditV1, models.StatusUploaded},
		{ActionStartEditV1, models.StatusV1Editing},
		{ActionSaveV1, models.StatusV1Completed},
		{ActionCompleteV1, models.StatusUploaded},
		{ActionProcessV2, models.StatusV1Editing},
		{ActionProcessV2, models.StatusProcessingV2},
		{ActionProcessV2, models.StatusApproved},
		{ActionSaveV2, models.StatusV2Completed},
		{ActionApprove, models.StatusV2Editing},
		{ActionGenerateDocument, models.StatusV2Completed},
		{ActionGenerateDocument, models.StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(string(tt.action)+"_from_"+string(tt.current), func(t *testing.T) {
			_, err := advance(tt.action, tt.current)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrPrecondition))
			assert.Contains(t, err.Error(), string(tt.current))
		})
	}
}

func TestProcessV1_AllowedFromAnyStatus(t *testing.T) {
	for _, s := range models.WorkflowStatuses {
		next, err := advance(ActionProcessV1, s)
		require.NoError(t, err, s)
		assert.Equal(t, models.StatusV1Ready, next)
	}

	_, err := advance(ActionProcessV1, models.WorkflowStatus("ARCHIVED"))
	assert.ErrorIs(t, err, models.ErrPrecondition)
}

func TestRule_RevertTo(t *testing.T) {
	v1, err := Lookup(ActionProcessV1)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUploaded, v1.RevertTo(models.StatusUploaded))
	assert.Equal(t, models.StatusV2Ready, v1.RevertTo(models.StatusV2Ready))
	assert.Equal(t, models.StatusUploaded, v1.RevertTo(models.StatusProcessingV1))
	assert.Equal(t, models.StatusUploaded, v1.RevertTo(models.StatusProcessingV2))
	assert.Equal(t, models.StatusUploaded, v1.RevertTo(models.WorkflowStatus("ARCHIVED")))

	v2, err := Lookup(ActionProcessV2)
	require.NoError(t, err)
	assert.Equal(t, models.StatusV1Completed, v2.RevertTo(models.StatusV1Completed))
	assert.Equal(t, models.StatusV2Editing, v2.RevertTo(models.StatusV2Editing))
	assert.Equal(t, models.StatusV1Completed, v2.RevertTo(models.StatusProcessingV2))
	assert.Equal(t, models.StatusV1Completed, v2.RevertTo(models.StatusProcessingV1))
}

func TestRule_Check_NamesRequiredStatus(t *testing.T) {
	r, err := Lookup(ActionApprove)
	require.NoError(t, err)

	err = r.Check(models.StatusV2Ready)
	require.Error(t, err)
	assert.Equal(t, "approve requires document status V2_COMPLETED, current status is V2_READY", err.Error())
}

func TestLookup(t *testing.T) {
	assert.Len(t, Actions(), 10)
	for _, a := range Actions() {
		r, err := Lookup(a)
		require.NoError(t, err)
		assert.True(t, r.VersionType.Valid(), a)
		assert.Equal(t, r.External(), a == ActionProcessV1 || a == ActionProcessV2, a)
	}

	_, err := Lookup("delete_everything")
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.False(t, Action("delete_everything").Valid())
}
