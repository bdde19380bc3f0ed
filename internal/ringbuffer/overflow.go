package ringbuffer

import (
	"fmt"
	"strings"

	"github.com/tphakala/pcmring/internal/errors"
)

// OverflowPolicy selects what Push does when the ring cannot hold new data.
type OverflowPolicy int

const (
	// KeepPushing overwrites the oldest unread blocks.
	KeepPushing OverflowPolicy = iota
	// IgnorePushing drops the new blocks that do not fit.
	IgnorePushing
)

// String returns the configuration name of the policy
func (p OverflowPolicy) String() string {
	switch p {
	case KeepPushing:
		return "keep"
	case IgnorePushing:
		return "ignore"
	default:
		return fmt.Sprintf("OverflowPolicy(%d)", int(p))
	}
}

// ParseOverflowPolicy parses a policy name as used in configuration files
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "keep", "keep-pushing", "keeppushing", "keep_pushing":
		return KeepPushing, nil
	case "ignore", "ignore-pushing", "ignorepushing", "ignore_pushing":
		return IgnorePushing, nil
	default:
		return KeepPushing, errors.Newf("unknown overflow policy %q", s).
			Component(componentRingBuffer).
			Category(errors.CategoryValidation).
			Context("valid_values", "keep, ignore").
			Build()
	}
}
