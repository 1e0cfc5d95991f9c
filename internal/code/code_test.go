package code

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "1000", Normalize(" 1000 "))
	assert.Equal(t, "AR-01", Normalize("ar 01"))
	assert.Equal(t, "", Normalize("   "))
}

func TestIsCode(t *testing.T) {
	for _, ok := range []string{"1000", "1000.10", "AR-01", "9"} {
		assert.True(t, IsCode(ok), ok)
	}
	for _, bad := range []string{"", "-100", "10 00", "abc", "123456789012345678901"} {
		assert.False(t, IsCode(bad), bad)
	}
}
