package validate

import "testing"

type fieldAngle struct {
	AngleDegrees float64 `stag:"min=-90,max=90"`
}

type pupilSpacing struct {
	Spacing float64 `stag:"min=0,max=1"`
}

type noTags struct {
	Anything float64
}

func TestRangeAcceptsInBounds(t *testing.T) {
	if err := Range(&fieldAngle{AngleDegrees: 45}); err != nil {
		t.Errorf("Range() error = %v, want nil", err)
	}
}

func TestRangeRejectsOutOfBounds(t *testing.T) {
	if err := Range(&fieldAngle{AngleDegrees: 91}); err == nil {
		t.Errorf("Range() with angle 91 should error")
	}
}

func TestRangeRejectsBelowMin(t *testing.T) {
	if err := Range(&pupilSpacing{Spacing: -0.1}); err == nil {
		t.Errorf("Range() with spacing -0.1 should error")
	}
}

func TestRangeIgnoresUntaggedFields(t *testing.T) {
	if err := Range(&noTags{Anything: 1e9}); err != nil {
		t.Errorf("Range() on an untagged field should never error, got %v", err)
	}
}
