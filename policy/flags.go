package policy

import "fmt"

// Flags is a kong flag group for choosing a policy on the command line.
// Embed it with `embed:""`.
type Flags struct {
	File  string `name:"policy" type:"existingfile" help:"Policy file, a JSON merge patch over the defaults"`
	Patch string `name:"policy-patch" help:"Inline JSON merge patch applied after the policy file"`
}

// Load returns the default policy with the file and patch applied.
func (f Flags) Load() (Policy, error) {
	p := Default()

	if f.File != "" {
		var err error
		p, err = Load(f.File)
		if err != nil {
			return Policy{}, err
		}
	}

	if f.Patch != "" {
		var err error
		p, err = Merge(p, []byte(f.Patch))
		if err != nil {
			return Policy{}, fmt.Errorf("--policy-patch: %w", err)
		}
	}

	return p, nil
}
