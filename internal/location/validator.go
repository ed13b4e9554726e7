// Package location validates location payloads and folds partial updates
// into stored locations.
package location

import (
	"maps"
	"strings"

	"gorm.io/datatypes"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
)

// Validator checks a location payload against the provider rule table.
// It is stateless and safe for concurrent use.
type Validator struct {
	strict bool
}

// NewValidator creates a validator. When strict is false only the aws/s3 auth
// rule is enforced; every other cloud/product pair accepts any auth map.
func NewValidator(strict bool) *Validator {
	return &Validator{strict: strict}
}

// Validate checks data and returns the normalized location it describes.
//
// Rules run in order: cloud, product, bucket_info, auth. The first failing
// rule aborts. With partial set, a rule is skipped when its top-level key is
// absent from data; fields of skipped rules are left zero in the result.
// location_type is lowercased when present; which role it must name is up to
// the caller.
func (v *Validator) Validate(data map[string]any, partial bool) (*domain.Location, error) {
	cloud, err := lowerString(data, "cloud")
	if err != nil {
		return nil, err
	}
	if applies(data, partial, "cloud") {
		if err := checkCloud(cloud); err != nil {
			return nil, err
		}
	}

	product, err := lowerString(data, "product")
	if err != nil {
		return nil, err
	}
	if applies(data, partial, "product") {
		if err := checkProduct(cloud, product); err != nil {
			return nil, err
		}
	}

	var bucketInfo map[string]any
	if applies(data, partial, "bucket_info") {
		if bucketInfo, err = checkBucketInfo(data["bucket_info"]); err != nil {
			return nil, err
		}
	}

	var auth map[string]any
	if applies(data, partial, "auth") {
		if auth, err = v.checkAuth(cloud, product, data["auth"]); err != nil {
			return nil, err
		}
	}

	locationType, err := lowerString(data, "location_type")
	if err != nil {
		return nil, err
	}

	loc := &domain.Location{
		Cloud:        cloud,
		Product:      product,
		LocationType: domain.LocationType(locationType),
	}
	if auth != nil {
		loc.Auth = datatypes.JSONMap(maps.Clone(auth))
	}
	if bucketInfo != nil {
		loc.BucketInfo = datatypes.JSONMap(maps.Clone(bucketInfo))
	}
	return loc, nil
}

func applies(data map[string]any, partial bool, key string) bool {
	if !partial {
		return true
	}
	_, ok := data[key]
	return ok
}

func checkCloud(cloud string) error {
	if cloud == "" {
		return domain.Validation("cloud", "cloud is required")
	}
	if _, ok := products[cloud]; !ok {
		return domain.Validation("cloud", "invalid cloud: %s", cloud)
	}
	return nil
}

func checkProduct(cloud, product string) error {
	if product == "" {
		return domain.Validation("product", "product is required")
	}
	allowed, ok := products[cloud]
	if !ok {
		return domain.Validation("product", "cannot check product %q without a valid cloud", product)
	}
	for _, p := range allowed {
		if p == product {
			return nil
		}
	}
	return domain.Validation("product", "invalid product %q for cloud %q, valid options: %s",
		product, cloud, strings.Join(allowed, ", "))
}

func checkBucketInfo(raw any) (map[string]any, error) {
	info, ok := asMap(raw)
	if raw != nil && !ok {
		return nil, domain.Validation("bucket_info", "bucket_info must be a JSON object")
	}
	for _, key := range []string{"region", "bucket_name", "path"} {
		v, present := info[key]
		s, isString := v.(string)
		if !present || v == nil || (isString && s == "") {
			return nil, domain.Validation(key, "%s is required", key)
		}
		if !isString {
			return nil, domain.Validation(key, "%s must be a string", key)
		}
	}
	// false is a valid value; only a missing or null flag is rejected
	ext, present := info["is_external"]
	if !present || ext == nil {
		return nil, domain.Validation("is_external", "is_external is required")
	}
	if _, ok := ext.(bool); !ok {
		return nil, domain.Validation("is_external", "is_external must be a boolean")
	}
	return info, nil
}

func (v *Validator) checkAuth(cloud, product string, raw any) (map[string]any, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	auth, ok := asMap(raw)
	if !ok {
		return nil, domain.Validation("auth", "auth must be a JSON object")
	}
	rule, ok := lookupAuthRule(cloud, product)
	if !ok || (rule.strict && !v.strict) {
		return auth, nil
	}
	if err := rule.check(cloud, product, auth); err != nil {
		return nil, err
	}
	return auth, nil
}

// lowerString reads an optional string field and lowercases it
func lowerString(data map[string]any, key string) (string, error) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", domain.Validation(key, "%s must be a string", key)
	}
	return strings.ToLower(s), nil
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case datatypes.JSONMap:
		return map[string]any(m), true
	default:
		return nil, false
	}
}
