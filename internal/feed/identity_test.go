package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDForIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, IDFor("a@b.com"), IDFor("A@B.com"))
	assert.Equal(t, IDFor("a@b.com"), IDFor("  a@b.com "))
}

func TestIDForShape(t *testing.T) {
	id := IDFor("reader@example.com")
	assert.Len(t, id, IDLength)
	assert.Regexp(t, "^[0-9a-f]{16}$", id)
	assert.Equal(t, id, IDFor("reader@example.com"))
	assert.NotEqual(t, id, IDFor("other@example.com"))
}

func TestIDForKnownDigest(t *testing.T) {
	// sha256("test@example.com")
	assert.Equal(t, "973dfe463ec85785", IDFor("Test@Example.com"))
}
