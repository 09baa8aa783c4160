package profile

import (
	"errors"
	"fmt"
)

// Profile is one of the power profiles exposed by power-profiles-daemon.
// The zero value is not a valid profile and stands for "none".
type Profile int

const (
	Performance Profile = iota + 1
	Balanced
	PowerSaver
)

// ErrUnknownProfile is returned by Parse for any token outside the closed set.
var ErrUnknownProfile = errors.New("unknown power profile")

var names = map[Profile]string{
	Performance: "performance",
	Balanced:    "balanced",
	PowerSaver:  "power-saver",
}

// All returns every supported profile in a stable order.
func All() []Profile {
	return []Profile{Performance, Balanced, PowerSaver}
}

// Parse converts the exact token used by power-profiles-daemon into a Profile.
// No trimming or case folding is applied.
func Parse(s string) (Profile, error) {
	switch s {
	case "performance":
		return Performance, nil
	case "balanced":
		return Balanced, nil
	case "power-saver":
		return PowerSaver, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownProfile, s)
}

// String returns the token for p, or "none" for the zero value.
func (p Profile) String() string {
	if name, ok := names[p]; ok {
		return name
	}
	if p == 0 {
		return "none"
	}
	return fmt.Sprintf("profile(%d)", int(p))
}

// Valid reports whether p is one of the supported profiles.
func (p Profile) Valid() bool {
	_, ok := names[p]
	return ok
}
