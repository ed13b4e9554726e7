package location

import (
	"maps"
	"strings"

	"gorm.io/datatypes"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
)

// Merge folds updates into a copy of existing and returns the copy.
//
// auth and bucket_info are merged key by key when the incoming value is an
// object: incoming keys overwrite, every other stored key survives. Any other
// field, or a non-object auth/bucket_info value, replaces the stored value.
// The returned maps are always new values so callers can persist them
// without relying on in-place change detection.
func Merge(existing *domain.Location, updates map[string]any) *domain.Location {
	merged := existing.Clone()
	for key, value := range updates {
		switch key {
		case "auth":
			merged.Auth = mergeMap(merged.Auth, value)
		case "bucket_info":
			merged.BucketInfo = mergeMap(merged.BucketInfo, value)
		case "cloud":
			if s, ok := value.(string); ok {
				merged.Cloud = strings.ToLower(s)
			}
		case "product":
			if s, ok := value.(string); ok {
				merged.Product = strings.ToLower(s)
			}
		case "location_type":
			if s, ok := value.(string); ok {
				merged.LocationType = domain.LocationType(strings.ToLower(s))
			}
		}
	}
	return merged
}

func mergeMap(current datatypes.JSONMap, incoming any) datatypes.JSONMap {
	in, ok := asMap(incoming)
	if !ok {
		// a null or non-object value replaces the stored map wholesale
		return datatypes.JSONMap{}
	}
	out := make(datatypes.JSONMap, len(current)+len(in))
	maps.Copy(out, current)
	maps.Copy(out, in)
	return out
}

// ValidationView returns the fields of merged that a partial validation of
// updates must look at: every top-level key present in updates, plus cloud
// and product so that product membership and auth rules can be resolved. An
// update value that Merge could not fold in is passed through unchanged so
// the validator rejects it.
func ValidationView(merged *domain.Location, updates map[string]any) map[string]any {
	fields := merged.Fields()
	view := map[string]any{
		"cloud":   fields["cloud"],
		"product": fields["product"],
	}
	for key, raw := range updates {
		v, ok := fields[key]
		if !ok {
			continue
		}
		if !foldable(key, raw) {
			view[key] = raw
			continue
		}
		view[key] = v
	}
	return view
}

func foldable(key string, raw any) bool {
	switch key {
	case "auth", "bucket_info":
		_, ok := asMap(raw)
		return ok || raw == nil
	default:
		_, ok := raw.(string)
		return ok
	}
}
