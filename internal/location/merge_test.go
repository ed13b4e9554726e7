package location

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
)

func storedLocation() *domain.Location {
	return &domain.Location{
		ID:           "loc-1",
		Cloud:        "aws",
		Product:      "s3",
		LocationType: domain.LocationSource,
		Auth:         datatypes.JSONMap{"type": "ASSUME_ROLE", "arn": "x"},
		BucketInfo: datatypes.JSONMap{
			"region": "us-east-1", "bucket_name": "b", "path": "/", "is_external": false,
		},
	}
}

func TestMerge_NestedKeysSurvive(t *testing.T) {
	merged := Merge(storedLocation(), map[string]any{
		"auth": map[string]any{"arn": "y"},
	})
	assert.Equal(t, datatypes.JSONMap{"type": "ASSUME_ROLE", "arn": "y"}, merged.Auth)
	assert.Equal(t, "b", merged.BucketInfo["bucket_name"])
}

func TestMerge_DoesNotMutateExisting(t *testing.T) {
	existing := storedLocation()
	merged := Merge(existing, map[string]any{
		"cloud":       "GCP",
		"bucket_info": map[string]any{"region": "eu-west-1"},
	})

	assert.Equal(t, "gcp", merged.Cloud)
	assert.Equal(t, "eu-west-1", merged.BucketInfo["region"])
	assert.Equal(t, "aws", existing.Cloud)
	assert.Equal(t, "us-east-1", existing.BucketInfo["region"])
}

func TestMerge_EmptyUpdatesIsCopy(t *testing.T) {
	existing := storedLocation()
	merged := Merge(existing, map[string]any{})
	assert.Equal(t, existing, merged)
	assert.NotSame(t, existing, merged)
}

func TestMerge_NonObjectReplaces(t *testing.T) {
	merged := Merge(storedLocation(), map[string]any{"auth": nil})
	assert.Empty(t, merged.Auth)
	assert.NotNil(t, merged.Auth)
}

func TestMerge_IgnoresUnknownKeys(t *testing.T) {
	merged := Merge(storedLocation(), map[string]any{"name": "ignored", "id": "other"})
	assert.Equal(t, "loc-1", merged.ID)
}

func TestMerge_PatchThenValidate(t *testing.T) {
	v := NewValidator(false)
	updates := map[string]any{"bucket_info": map[string]any{"region": "ap-south-1"}}

	merged := Merge(storedLocation(), updates)
	_, err := v.Validate(ValidationView(merged, updates), true)
	require.NoError(t, err)
	assert.Equal(t, "ap-south-1", merged.BucketInfo["region"])
}

func TestMerge_PatchAuthKeepsType(t *testing.T) {
	v := NewValidator(false)
	existing := storedLocation()
	existing.Auth = datatypes.JSONMap{"type": "ACCESS_KEY", "accessKey": "a", "secretAccessKey": "b"}
	updates := map[string]any{"auth": map[string]any{"secretAccessKey": "rotated"}}

	merged := Merge(existing, updates)
	_, err := v.Validate(ValidationView(merged, updates), true)
	require.NoError(t, err)
	assert.Equal(t, "rotated", merged.Auth["secretAccessKey"])
	assert.Equal(t, "ACCESS_KEY", merged.Auth["type"])
}

func TestMerge_PatchCloudRevalidatesProduct(t *testing.T) {
	v := NewValidator(false)
	updates := map[string]any{"cloud": "azure"}

	merged := Merge(storedLocation(), updates)
	_, err := v.Validate(ValidationView(merged, updates), true)
	requireValidation(t, err, "product")
}

func TestValidationView_RawValueWhenNotFoldable(t *testing.T) {
	v := NewValidator(false)
	updates := map[string]any{"auth": "plain-string"}

	merged := Merge(storedLocation(), updates)
	view := ValidationView(merged, updates)
	assert.Equal(t, "plain-string", view["auth"])

	_, err := v.Validate(view, true)
	requireValidation(t, err, "auth")
}

func TestValidationView_OnlyTouchedKeys(t *testing.T) {
	updates := map[string]any{"bucket_info": map[string]any{"path": "/out"}}
	view := ValidationView(Merge(storedLocation(), updates), updates)

	assert.Contains(t, view, "cloud")
	assert.Contains(t, view, "product")
	assert.Contains(t, view, "bucket_info")
	assert.NotContains(t, view, "auth")
	assert.NotContains(t, view, "location_type")
}
