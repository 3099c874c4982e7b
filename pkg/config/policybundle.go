package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// policyBundleSchema describes the on-disk JSON shape of a startup policy
// bundle: a format_version and a flat list of (resource,action)->expression
// entries. ParsePolicyBundle validates the raw document against it before
// decoding any entry.
const policyBundleSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["format_version", "entries"],
  "properties": {
    "format_version": {"type": "string"},
    "entries": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["resource", "action", "expression"],
        "properties": {
          "resource": {"type": "string", "minLength": 1},
          "action": {"type": "string", "minLength": 1},
          "expression": {"type": "string", "minLength": 1}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

// MinBundleFormatVersion (inclusive) and MaxBundleFormatVersion
// (exclusive) bound the format_version values this node accepts.
var (
	MinBundleFormatVersion = semver.MustParse("1.0.0")
	MaxBundleFormatVersion = semver.MustParse("2.0.0")
)

var compiledBundleSchema = mustCompileBundleSchema()

func mustCompileBundleSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("policybundle.json", bytes.NewReader([]byte(policyBundleSchema))); err != nil {
		panic(fmt.Sprintf("config: invalid embedded policy bundle schema: %v", err))
	}
	return compiler.MustCompile("policybundle.json")
}

// BundleEntry is one (resource,action)->expression entry in a policy
// bundle document.
type BundleEntry struct {
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Expression string `json:"expression"`
}

// PolicyBundle is the validated, parsed form of a startup policy bundle
// file.
type PolicyBundle struct {
	FormatVersion string        `json:"format_version"`
	Entries       []BundleEntry `json:"entries"`
}

// ParsePolicyBundle validates raw against the bundle schema, checks its
// format_version falls within the node's supported range, and returns the
// decoded entries. It never trusts raw JSON shape before schema
// validation: a document failing the schema is rejected before any
// expression in it reaches pkg/policy's parser.
func ParsePolicyBundle(raw []byte) (*PolicyBundle, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: policy bundle is not valid JSON: %w", err)
	}
	if err := compiledBundleSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("config: policy bundle failed schema validation: %w", err)
	}

	var bundle PolicyBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, fmt.Errorf("config: policy bundle decode: %w", err)
	}

	v, err := semver.NewVersion(bundle.FormatVersion)
	if err != nil {
		return nil, fmt.Errorf("config: policy bundle format_version %q is not semver: %w", bundle.FormatVersion, err)
	}
	if v.LessThan(MinBundleFormatVersion) || v.Major() != MinBundleFormatVersion.Major() {
		return nil, fmt.Errorf("config: policy bundle format_version %s is outside supported range >=%s, <%s",
			v, MinBundleFormatVersion, MaxBundleFormatVersion)
	}

	return &bundle, nil
}

// ParsePolicyBundleYAML accepts a bundle authored as YAML — operators
// hand-editing a startup bundle generally prefer it over JSON — and
// validates it identically to ParsePolicyBundle by re-encoding to JSON
// first, so both forms go through exactly one schema and version check.
func ParsePolicyBundleYAML(raw []byte) (*PolicyBundle, error) {
	var doc interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: policy bundle is not valid YAML: %w", err)
	}
	asJSON, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("config: policy bundle yaml-to-json: %w", err)
	}
	return ParsePolicyBundle(asJSON)
}
