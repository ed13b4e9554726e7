package location

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aryan0dhankhar/deliveryhub/internal/domain"
)

// products lists, per cloud, the products a location may point at
var products = map[string][]string{
	"aws":   {"s3", "snowflake", "databricks", "redshift", "sftp"},
	"gcp":   {"gcs", "bigquery", "snowflake", "databricks"},
	"azure": {"blobstorage", "snowflake", "databricks"},
}

// Clouds returns the supported clouds in a stable order
func Clouds() []string {
	out := make([]string, 0, len(products))
	for c := range products {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// Products returns the products offered on cloud, or nil for an unknown cloud
func Products(cloud string) []string {
	return slices.Clone(products[cloud])
}

// anyCloud keys rules for products that behave the same on every cloud
const anyCloud = "*"

type ruleKey struct {
	cloud   string
	product string
}

// authCheck validates the auth map of one cloud/product pair
type authCheck func(cloud, product string, auth map[string]any) error

type authRule struct {
	// strict rules run only when strict provider auth is enabled
	strict bool
	check  authCheck
}

// authRules maps (cloud, product) to the auth shape it requires. Adding a
// provider is a new entry here.
var authRules = map[ruleKey]authRule{
	{"aws", "s3"}: {check: typedKeys("AWS S3",
		authType{"ASSUME_ROLE", []string{"arn"}},
		authType{"CONSUMER_ROLE", []string{"arn", "consumerArn"}},
		authType{"ACCESS_KEY", []string{"accessKey", "secretAccessKey"}},
	)},
	{"gcp", "gcs"}: {strict: true, check: typedKeys("GCP GCS",
		authType{"EXTERNAL_ACCESS", nil},
		authType{"IMPERSONATION", []string{"serviceAccountToImpersonate"}},
	)},
	{"azure", "blobstorage"}: {strict: true, check: azureBlobStorage},
	{anyCloud, "snowflake"}:  {strict: true, check: listEntries("accessIdentifiers", "Snowflake", "organizationName", "accountName")},
	{anyCloud, "databricks"}: {strict: true, check: listEntries("accessIdentifiers", "Databricks", "metastoreId")},
	{"aws", "redshift"}:      {strict: true, check: listEntries("accounts", "Redshift", "accountId")},
	{"aws", "sftp"}:          {strict: true, check: listEntries("accessIdentifiers", "SFTP", "label", "publicKey")},
}

func lookupAuthRule(cloud, product string) (authRule, bool) {
	if r, ok := authRules[ruleKey{cloud, product}]; ok {
		return r, true
	}
	r, ok := authRules[ruleKey{anyCloud, product}]
	return r, ok
}

type authType struct {
	name     string
	required []string
}

// typedKeys requires auth.type to be one of types and then requires the keys
// that type implies. All missing keys are reported in one error.
func typedKeys(label string, types ...authType) authCheck {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.name
	}
	return func(cloud, product string, auth map[string]any) error {
		raw, present := auth["type"]
		authTypeName, _ := raw.(string)
		if !present || authTypeName == "" {
			return domain.Validation("auth", "auth 'type' is required for %s", label)
		}
		idx := slices.Index(names, authTypeName)
		if idx < 0 {
			return domain.Validation("auth", "invalid auth type %q for %s, allowed: %s",
				authTypeName, label, strings.Join(names, ", "))
		}
		var missing []string
		for _, k := range types[idx].required {
			if _, ok := auth[k]; !ok {
				missing = append(missing, k)
			}
		}
		if len(missing) > 0 {
			return domain.Validation("auth", "missing required keys for %s %s: %s",
				cloud, product, strings.Join(missing, ", "))
		}
		return nil
	}
}

// listEntries requires auth[field] to be a non-empty list of objects, each
// carrying every key in keys.
func listEntries(field, label string, keys ...string) authCheck {
	return func(_, _ string, auth map[string]any) error {
		entries, ok := auth[field].([]any)
		if !ok || len(entries) == 0 {
			return domain.Validation(field, "a non-empty list of %s is required for %s", field, label)
		}
		for i, raw := range entries {
			entry, ok := asMap(raw)
			if !ok {
				return domain.Validation(fmt.Sprintf("%s[%d]", field, i), "entry must be a JSON object")
			}
			for _, k := range keys {
				if s, _ := entry[k].(string); s == "" {
					return domain.Validation(fmt.Sprintf("%s[%d].%s", field, i, k), "%s is required", k)
				}
			}
		}
		return nil
	}
}

func azureBlobStorage(cloud, product string, auth map[string]any) error {
	ids, ok := asMap(auth["accessIdentifiers"])
	if !ok {
		return domain.Validation("auth", "accessIdentifiers (object) is required for Azure Blob Storage")
	}
	return listEntries("consumerManagedApplications", "Azure Blob Storage", "applicationId")(cloud, product, ids)
}
