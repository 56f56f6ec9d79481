package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGradeBucketBoundaries(t *testing.T) {
	cases := []struct {
		grade  float64
		bucket string
	}{
		{100, "A"},
		{90, "A"},
		{89.999, "B"},
		{80, "B"},
		{79.5, "C"},
		{70, "C"},
		{69.999, "D"},
		{60, "D"},
		{59.999, "F"},
		{0, "F"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.bucket, GradeBucket(tc.grade), "grade %v", tc.grade)
	}
}

func TestGateSessionState(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Minute)
	past := now.Add(-time.Minute)

	assert.Equal(t, GateUnvalidated, GateSession{}.State(now))
	assert.Equal(t, GateLockedOut, GateSession{LockoutExpiry: &future}.State(now))
	assert.Equal(t, GateUnvalidated, GateSession{LockoutExpiry: &past}.State(now))
	assert.Equal(t, GateValidated, GateSession{ValidatedUntil: &future}.State(now))
	assert.Equal(t, GateUnvalidated, GateSession{ValidatedUntil: &past}.State(now))

	// An active lockout wins even while a validation window is open.
	assert.Equal(t, GateLockedOut, GateSession{LockoutExpiry: &future, ValidatedUntil: &future}.State(now))
}
