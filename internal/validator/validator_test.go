package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleQueueEntry struct {
	QueueExtension string `json:"queue_extension" validate:"required,len=4,numeric"`
	Callee         string `json:"callee" validate:"required,numeric"`
}

func TestValidate(t *testing.T) {
	valid := sampleQueueEntry{QueueExtension: "8001", Callee: "7014"}
	assert.NoError(t, Validate(valid))

	missing := sampleQueueEntry{QueueExtension: "8001"}
	err := Validate(missing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "callee")
	assert.Contains(t, err.Error(), "is required")

	tooShort := sampleQueueEntry{QueueExtension: "800", Callee: "7014"}
	err = Validate(tooShort)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be exactly 4 characters long")

	notNumeric := sampleQueueEntry{QueueExtension: "8abc", Callee: "7014"}
	err = Validate(notNumeric)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be numeric")
}

func TestValidateVar(t *testing.T) {
	assert.NoError(t, ValidateVar("7014", "required,numeric"))
	assert.Error(t, ValidateVar("", "required,numeric"))
	assert.Error(t, ValidateVar("70x4", "required,numeric"))
}
