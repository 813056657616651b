package mcp

import (
	"errors"
	"strings"

	"github.com/faisal-mohamed/rfdb-new/pkg/models"
)

// describe flattens an error for a tool result. Validation failures list
// every problem so the assistant can fix its edit in one round trip.
func describe(err error) string {
	var invalid *models.InvalidContentError
	if errors.As(err, &invalid) {
		return "validation failed: " + strings.Join(invalid.Errors, "; ")
	}
	return err.Error()
}
