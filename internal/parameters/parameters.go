// Package parameters handles generic configuration Params, a map[string]string that the
// user can set with strings like "seed=7,players=3,render".
package parameters

import (
	"strconv"
	"strings"

	"github.com/aapo-kossi/gym-eldorado/internal/generics"
	"github.com/pkg/errors"
)

// Params represent generic configuration parameters.
type Params map[string]string

// Value types supported by GetParamOr and PopParamOr.
type Value interface {
	bool | int | uint8 | uint32 | uint64 | float32 | float64 | string
}

// NewFromConfigString create params from user's configuration string.
// See GetParamOr and PopParamOr to parse values from this map.
func NewFromConfigString(config string) Params {
	params := make(Params)
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		subParts := strings.SplitN(part, "=", 2) // Split into up to 2 parts to handle '=' in values
		if len(subParts) == 1 {
			params[subParts[0]] = ""
		} else {
			params[subParts[0]] = subParts[1]
		}
	}
	return params
}

// PopParamOr is like GetParamOr, but it also deletes from the params map the retrieved parameter.
func PopParamOr[T Value](params Params, key string, defaultValue T) (T, error) {
	value, err := GetParamOr(params, key, defaultValue)
	if err != nil {
		return value, err
	}
	delete(params, key)
	return value, nil
}

// CheckAllUsed returns an error listing the keys still in params, typically called after
// all known keys were popped with PopParamOr.
func CheckAllUsed(params Params, context string) error {
	if len(params) == 0 {
		return nil
	}
	var keys []string
	for key := range generics.SortedKeys(params) {
		keys = append(keys, key)
	}
	return errors.Errorf("unknown %s configuration parameters: %q", context, keys)
}

func parseUint[T uint8 | uint32 | uint64](key, value string, bits int) (T, error) {
	parsedValue, err := strconv.ParseUint(value, 10, bits)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to parse configuration %s=%q to uint%d", key, value, bits)
	}
	return T(parsedValue), nil
}

// GetParamOr attempts to parse a parameter to the given type if the key is present, or returns the defaultValue
// if not.
//
// For bool types, a key without a value is interpreted as true.
func GetParamOr[T Value](params Params, key string, defaultValue T) (T, error) {
	vAny := (any)(defaultValue)
	var t T
	toT := func(v any) T { return v.(T) }
	value, exists := params[key]
	if !exists {
		return defaultValue, nil
	}
	switch vAny.(type) {
	case string:
		return toT(value), nil
	case bool:
		if value == "" || strings.ToLower(value) == "true" || value == "1" { // Empty value is considered "true"
			return toT(true), nil
		}
		if strings.ToLower(value) == "false" || value == "0" {
			return toT(false), nil
		}
		return defaultValue, errors.Errorf("failed to parse configuration %s=%q to bool", key, value)
	}

	if value == "" {
		return defaultValue, nil
	}
	switch vAny.(type) {
	case int:
		parsedValue, err := strconv.Atoi(value)
		if err != nil {
			return t, errors.Wrapf(err, "failed to parse configuration %s=%q to int", key, value)
		}
		return toT(parsedValue), nil
	case uint8:
		parsedValue, err := parseUint[uint8](key, value, 8)
		return toT(parsedValue), err
	case uint32:
		parsedValue, err := parseUint[uint32](key, value, 32)
		return toT(parsedValue), err
	case uint64:
		parsedValue, err := parseUint[uint64](key, value, 64)
		return toT(parsedValue), err
	case float32:
		parsedValue, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return t, errors.Wrapf(err, "failed to parse configuration %s=%q to float", key, value)
		}
		return toT(float32(parsedValue)), nil
	case float64:
		parsedValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return t, errors.Wrapf(err, "failed to parse configuration %s=%q to float", key, value)
		}
		return toT(parsedValue), nil
	}
	return defaultValue, nil
}
