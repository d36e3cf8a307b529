// Package services contains domain services for the loadout domain model.
// These are stateless services that encapsulate the compile pipeline rules.
package services

import "fmt"

// ===== DEEP COPY UTILITIES =====
//
// Component content and profile variables are decoded into generic
// map/slice trees. The binder and renderer mutate copies only, so the store
// snapshot shared across render workers is never written.

// CopyStringSlice creates a copy of a string slice.
func CopyStringSlice(src []string) []string {
	if src == nil {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}

// CopyVars creates a deep copy of a vars map.
func CopyVars(src map[string]interface{}) map[string]interface{} {
	if src == nil {
		return nil
	}
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = DeepCopyValue(v)
	}
	return dst
}

// DeepCopyValue copies maps and slices recursively. Scalars are returned as is.
func DeepCopyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return CopyVars(t)
	case []interface{}:
		dst := make([]interface{}, len(t))
		for i, elem := range t {
			dst[i] = DeepCopyValue(elem)
		}
		return dst
	case map[interface{}]interface{}:
		dst := make(map[string]interface{}, len(t))
		for k, elem := range t {
			dst[fmt.Sprint(k)] = DeepCopyValue(elem)
		}
		return dst
	case []string:
		return CopyStringSlice(t)
	default:
		return v
	}
}
