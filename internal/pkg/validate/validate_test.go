package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Mode  string `validate:"required,oneof=scheduled manual"`
	Batch int    `validate:"gt=0"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(sample{Mode: "manual", Batch: 1}))
}

func TestStruct_ListsEveryFailedField(t *testing.T) {
	err := Struct(sample{Mode: "hourly"})
	assert.ErrorContains(t, err, "field 'sample.Mode' failed 'oneof'")
	assert.ErrorContains(t, err, "field 'sample.Batch' failed 'gt'")
}
