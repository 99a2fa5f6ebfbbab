package attrs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractString(t *testing.T) {
	attributes := []any{"decision", "approved", "count", 3, "reason", "domain_match", "dangling"}

	assert.Equal(t, "approved", ExtractString(attributes, "decision"))
	assert.Equal(t, "domain_match", ExtractString(attributes, "reason"))
	assert.Equal(t, "", ExtractString(attributes, "count"), "non-string values are ignored")
	assert.Equal(t, "", ExtractString(attributes, "dangling"), "a key without a value is ignored")
	assert.Equal(t, "", ExtractString(nil, "decision"))
}
