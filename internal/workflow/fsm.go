// Package workflow holds the transition table of the document review
// workflow. Every action the service accepts is described by exactly one Rule.
package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/faisal-mohamed/rfdb-new/pkg/models"
)

// Action is a workflow command issued by a caller.
type Action string

const (
	ActionProcessV1        Action = "process_v1"
	ActionStartEditV1      Action = "start_edit_v1"
	ActionSaveV1           Action = "save_v1"
	ActionCompleteV1       Action = "complete_v1"
	ActionProcessV2        Action = "process_v2"
	ActionStartEditV2      Action = "start_edit_v2"
	ActionSaveV2           Action = "save_v2"
	ActionCompleteV2       Action = "complete_v2"
	ActionApprove          Action = "approve"
	ActionGenerateDocument Action = "generate_document"
)

// ErrUnknownAction is returned for an action name not in the table.
var ErrUnknownAction = errors.New("unknown workflow action")

// Rule describes one action: where it may start, what it touches and where it
// leaves the document.
type Rule struct {
	Action Action
	// VersionType is the version the action operates on.
	VersionType models.VersionType
	// From lists the statuses the action may start from. Empty means any.
	From []models.WorkflowStatus
	// Pending is held while an external call is in flight. Only set for the
	// extraction actions.
	Pending models.WorkflowStatus
	// To is the status after success. Empty leaves the status unchanged.
	To models.WorkflowStatus
	// Fallback is restored after a failed external call that started from a
	// stuck Pending status.
	Fallback models.WorkflowStatus
}

var table = []Rule{
	{
		Action:      ActionProcessV1,
		VersionType: models.Version1,
		Pending:     models.StatusProcessingV1,
		To:          models.StatusV1Ready,
		Fallback:    models.StatusUploaded,
	},
	{
		Action:      ActionStartEditV1,
		VersionType: models.Version1,
		From:        []models.WorkflowStatus{models.StatusV1Ready},
		To:          models.StatusV1Editing,
	},
	{
		Action:      ActionSaveV1,
		VersionType: models.Version1,
		From:        []models.WorkflowStatus{models.StatusV1Ready, models.StatusV1Editing},
	},
	{
		Action:      ActionCompleteV1,
		VersionType: models.Version1,
		From:        []models.WorkflowStatus{models.StatusV1Ready, models.StatusV1Editing},
		To:          models.StatusV1Completed,
	},
	{
		Action:      ActionProcessV2,
		VersionType: models.Version2,
		From: []models.WorkflowStatus{
			models.StatusV1Completed,
			models.StatusV2Ready,
			models.StatusV2Editing,
			models.StatusV2Completed,
		},
		Pending:  models.StatusProcessingV2,
		To:       models.StatusV2Ready,
		Fallback: models.StatusV1Completed,
	},
	{
		Action:      ActionStartEditV2,
		VersionType: models.Version2,
		From:        []models.WorkflowStatus{models.StatusV2Ready},
		To:          models.StatusV2Editing,
	},
	{
		Action:      ActionSaveV2,
		VersionType: models.Version2,
		From:        []models.WorkflowStatus{models.StatusV2Ready, models.StatusV2Editing},
	},
	{
		Action:      ActionCompleteV2,
		VersionType: models.Version2,
		From:        []models.WorkflowStatus{models.StatusV2Ready, models.StatusV2Editing},
		To:          models.StatusV2Completed,
	},
	{
		Action:      ActionApprove,
		VersionType: models.Version2,
		From:        []models.WorkflowStatus{models.StatusV2Completed},
		To:          models.StatusApproved,
	},
	{
		Action:      ActionGenerateDocument,
		VersionType: models.Version2,
		From:        []models.WorkflowStatus{models.StatusApproved},
		To:          models.StatusCompleted,
	},
}

// Actions returns every action in table order.
func Actions() []Action {
	out := make([]Action, len(table))
	for i, r := range table {
		out[i] = r.Action
	}
	return out
}

// Lookup returns the rule for an action.
func Lookup(a Action) (Rule, error) {
	for _, r := range table {
		if r.Action == a {
			return r, nil
		}
	}
	return Rule{}, fmt.Errorf("%w: %q", ErrUnknownAction, a)
}

// Valid reports whether a is in the table.
func (a Action) Valid() bool {
	_, err := Lookup(a)
	return err == nil
}

// Permits reports whether the action may start from status s.
func (r Rule) Permits(s models.WorkflowStatus) bool {
	if len(r.From) == 0 {
		return s.Valid()
	}
	for _, from := range r.From {
		if from == s {
			return true
		}
	}
	return false
}

// Check returns a *models.PreconditionError naming the required statuses when
// the action may not start from s.
func (r Rule) Check(s models.WorkflowStatus) error {
	if r.Permits(s) {
		return nil
	}
	required := make([]string, len(r.From))
	for i, from := range r.From {
		required[i] = string(from)
	}
	return models.NewPrecondition("%s requires document status %s, current status is %s",
		r.Action, strings.Join(required, " or "), s)
}

// External reports whether the action calls the extraction service.
func (r Rule) External() bool {
	return r.Pending != ""
}

// Next returns the status after a successful run starting from current.
func (r Rule) Next(current models.WorkflowStatus) models.WorkflowStatus {
	if r.To == "" {
		return current
	}
	return r.To
}

// RevertTo returns the status to restore after the external call failed. A
// document never returns to a processing status.
func (r Rule) RevertTo(previous models.WorkflowStatus) models.WorkflowStatus {
	if previous.Processing() || !previous.Valid() {
		return r.Fallback
	}
	return previous
}
