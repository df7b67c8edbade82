package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	a := map[StudentID]ClassID{"s3": "B", "s1": "A", "s2": "B"}
	b := map[StudentID]ClassID{"s2": "B", "s3": "B", "s1": "A"}
	assert.Equal(t, "A:s1;B:s2,s3;", Fingerprint(a))
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.Empty(t, Fingerprint(nil))
}
