package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Faultbox/shapekey-tools/internal/baker"
)

var errBadDelta = errors.New("invalid bone delta")

// parseDelta parses "bone:x=-15,y=5,z=0" into a delta in degrees. The bone
// name may itself contain colons; the axis list follows the last one, so a
// colon-named bone without axes is written with a trailing colon
// ("mixamorig:Head:").
func parseDelta(s string) (baker.BoneDelta, error) {
	sep := strings.LastIndex(s, ":")
	if sep <= 0 {
		return baker.BoneDelta{}, fmt.Errorf("%w %q: want bone:x=deg,y=deg,z=deg", errBadDelta, s)
	}
	delta := baker.BoneDelta{Bone: s[:sep]}

	axes := strings.TrimSpace(s[sep+1:])
	if axes == "" {
		return delta, nil
	}
	for _, part := range strings.Split(axes, ",") {
		axis, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return baker.BoneDelta{}, fmt.Errorf("%w %q: axis %q has no value (end the bone name with ':' to give no axes)", errBadDelta, s, part)
		}
		deg, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return baker.BoneDelta{}, fmt.Errorf("%w %q: %v", errBadDelta, s, err)
		}
		switch strings.ToLower(strings.TrimSpace(axis)) {
		case "x":
			delta.X = deg
		case "y":
			delta.Y = deg
		case "z":
			delta.Z = deg
		default:
			return baker.BoneDelta{}, fmt.Errorf("%w %q: unknown axis %q", errBadDelta, s, axis)
		}
	}
	return delta, nil
}

func parseDeltas(values []string) ([]baker.BoneDelta, error) {
	deltas := make([]baker.BoneDelta, 0, len(values))
	for _, v := range values {
		d, err := parseDelta(v)
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, d)
	}
	return deltas, nil
}
