package policy

import (
	"encoding/json"
	"fmt"
	"os"

	jsonpatch "github.com/evanphx/json-patch"
)

// Merge applies a JSON merge patch to base. Fields absent from the patch
// keep their value from base, so a document may carry any subset of fields.
func Merge(base Policy, patch []byte) (Policy, error) {
	defaults, err := json.Marshal(base)
	if err != nil {
		return Policy{}, err
	}

	merged, err := jsonpatch.MergePatch(defaults, patch)
	if err != nil {
		return Policy{}, fmt.Errorf("merge policy: %w", err)
	}

	p := Policy{}
	if err := json.Unmarshal(merged, &p); err != nil {
		return Policy{}, fmt.Errorf("decode policy: %w", err)
	}
	return p, nil
}

// Load reads a policy document from path and merges it over Default.
func Load(path string) (Policy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, err
	}
	p, err := Merge(Default(), b)
	if err != nil {
		return Policy{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}
