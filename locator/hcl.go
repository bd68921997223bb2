package locator

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	ag "github.com/rhansen/artifactgraph"
)

// A Workspace is the decoded contents of a repository file: what to resolve and where to find it.
type Workspace struct {
	Root       ag.Coordinate
	Management ag.ManagementDeclaration
	Locator    *Static
}

// hclRepoFile is the top-level structure of a repository file.  Example:
//
//	root = "com.example:app:1.0"
//
//	managed "com.example:util" {
//	  version = "2.0"
//	}
//
//	artifact "com.example:app:1.0" {
//	  dependency "com.example:util:1.5" {
//	    scope      = "runtime"
//	    exclusions = ["org.unwanted:*"]
//	  }
//	}
//
//	artifact "com.example:util:2.0" {
//	  properties = { includesDependencies = "true" }
//	}
type hclRepoFile struct {
	Root      string         `hcl:"root"`
	Managed   []*hclManaged  `hcl:"managed,block"`
	Artifacts []*hclArtifact `hcl:"artifact,block"`
}

type hclManaged struct {
	Key     string `hcl:"key,label"`
	Version string `hcl:"version,optional"`
	Scope   string `hcl:"scope,optional"`
}

type hclArtifact struct {
	Coordinate   string            `hcl:"coordinate,label"`
	Properties   map[string]string `hcl:"properties,optional"`
	Dependencies []*hclDependency  `hcl:"dependency,block"`
}

type hclDependency struct {
	Coordinate string   `hcl:"coordinate,label"`
	Scope      string   `hcl:"scope,optional"`
	Optional   bool     `hcl:"optional,optional"`
	Exclusions []string `hcl:"exclusions,optional"`
}

// DecodeFile parses the repository file at path.
func DecodeFile(path string) (*Workspace, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(src, path)
}

// Decode parses a repository file's contents.  filename is only used in error messages.
func Decode(src []byte, filename string) (*Workspace, error) {
	parser := hclparse.NewParser()
	f, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse repository file %s: %w", filename, diags)
	}
	var parsed hclRepoFile
	if diags := gohcl.DecodeBody(f.Body, nil, &parsed); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode repository file %s: %w", filename, diags)
	}
	ws, err := parsed.workspace()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return ws, nil
}

// optionalScope parses a scope attribute, mapping the empty string to [ag.NoScope].
func optionalScope(s string) (ag.Scope, error) {
	if s == "" {
		return ag.NoScope, nil
	}
	return ag.ParseScope(s)
}

func (f *hclRepoFile) workspace() (*Workspace, error) {
	root, err := ag.ParseCoordinate(f.Root)
	if err != nil {
		return nil, fmt.Errorf("root: %w", err)
	}
	ws := &Workspace{Root: root, Locator: NewStatic()}
	for _, m := range f.Managed {
		key, err := ag.ParsePackageKey(m.Key)
		if err != nil {
			return nil, fmt.Errorf("managed %q: %w", m.Key, err)
		}
		scope, err := optionalScope(m.Scope)
		if err != nil {
			return nil, fmt.Errorf("managed %q: %w", m.Key, err)
		}
		if m.Version == "" && scope == ag.NoScope {
			return nil, fmt.Errorf("managed %q: neither version nor scope set", m.Key)
		}
		ws.Management = append(ws.Management, ag.ManagedDependency{Key: key, Version: m.Version, Scope: scope})
	}
	seen := map[ag.Coordinate]bool{}
	for _, a := range f.Artifacts {
		c, err := ag.ParseCoordinate(a.Coordinate)
		if err != nil {
			return nil, fmt.Errorf("artifact %q: %w", a.Coordinate, err)
		}
		if seen[c] {
			return nil, fmt.Errorf("artifact %v: declared more than once", c)
		}
		seen[c] = true
		e := Entry{Properties: a.Properties}
		for _, d := range a.Dependencies {
			dd, err := d.declared()
			if err != nil {
				return nil, fmt.Errorf("artifact %v: dependency %q: %w", c, d.Coordinate, err)
			}
			e.Dependencies = append(e.Dependencies, dd)
		}
		ws.Locator.Add(c, e)
	}
	return ws, nil
}

func (d *hclDependency) declared() (ag.DeclaredDependency, error) {
	c, err := ag.ParseCoordinate(d.Coordinate)
	if err != nil {
		return ag.DeclaredDependency{}, err
	}
	scope, err := optionalScope(d.Scope)
	if err != nil {
		return ag.DeclaredDependency{}, err
	}
	var errs []error
	var excl []ag.PackageKey
	for _, s := range d.Exclusions {
		k, err := ag.ParseExclusion(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		excl = append(excl, k)
	}
	if err := errors.Join(errs...); err != nil {
		return ag.DeclaredDependency{}, err
	}
	return ag.DeclaredDependency{Coordinate: c, Scope: scope, Optional: d.Optional, Exclusions: excl}, nil
}
