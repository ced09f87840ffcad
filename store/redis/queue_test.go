package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitHandle(t *testing.T) {
	idStr, version, err := splitHandle("job_01h2xcejqtf2nbrexx3vqjhp41:3")
	require.NoError(t, err)
	assert.Equal(t, "job_01h2xcejqtf2nbrexx3vqjhp41", idStr)
	assert.Equal(t, "3", version)
}

func TestSplitHandleMalformed(t *testing.T) {
	_, _, err := splitHandle("no-colon-here")
	assert.Error(t, err)
}

func TestKeyHelpers(t *testing.T) {
	assert.Equal(t, "coldrun:queue:ready", readyKey)
	assert.Equal(t, "coldrun:queue:msg:job_abc", msgKey("job_abc"))
}
