// Package jobdef loads job definitions and resolves (category, job type)
// pairs to an implementation id and merged init params.
//
// A definitions file looks like:
//
//	defaults:
//	  impl: builtin.steps
//	  params:
//	    interval: 1s
//	categories:
//	  export:
//	    params:
//	      steps: 20
//	    jobs:
//	      full:
//	        impl: builtin.steps
//	      partial:
//	        params:
//	          steps: 5
//
// Values are inherited handler defaults < category < job type.
package jobdef

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/iddaa-lens/jobrunner/pkg/jobs"
)

var (
	ErrDefinitionNotFound = errors.New("job definition not found")
	ErrNoImplementation   = fmt.Errorf("%w: no implementation configured", ErrDefinitionNotFound)
)

type levelDoc struct {
	Impl   string                 `yaml:"impl"`
	Params map[string]interface{} `yaml:"params"`
}

type categoryDoc struct {
	Level levelDoc            `yaml:",inline"`
	Jobs  map[string]levelDoc `yaml:"jobs"`
}

type document struct {
	Defaults   levelDoc               `yaml:"defaults"`
	Categories map[string]categoryDoc `yaml:"categories"`
}

type level struct {
	impl   string
	params jobs.ParamSet
}

type category struct {
	name string
	level
	jobs map[string]*jobLevel
}

type jobLevel struct {
	name string
	level
}

// Definitions is an immutable, parsed definitions document
type Definitions struct {
	defaults   level
	categories map[string]*category
}

var _ jobs.Resolver = (*Definitions)(nil)

// Definition is one fully resolved (category, job type) pair
type Definition struct {
	Category string        `json:"category"`
	JobType  string        `json:"job_type"`
	ImplID   string        `json:"impl_id"`
	Params   jobs.ParamSet `json:"params"`
}

// Load reads and parses a definitions file
func Load(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job definitions %s: %w", path, err)
	}
	defs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse job definitions %s: %w", path, err)
	}
	return defs, nil
}

// Parse decodes a YAML definitions document
func Parse(data []byte) (*Definitions, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	defs := &Definitions{
		defaults:   toLevel(doc.Defaults),
		categories: make(map[string]*category, len(doc.Categories)),
	}

	for catName, catDoc := range doc.Categories {
		catKey := NormalizeKey(catName)
		if catKey == "" {
			return nil, fmt.Errorf("category %q normalizes to an empty key", catName)
		}
		if _, dup := defs.categories[catKey]; dup {
			return nil, fmt.Errorf("category %q collides with another category", catName)
		}

		cat := &category{
			name:  catName,
			level: toLevel(catDoc.Level),
			jobs:  make(map[string]*jobLevel, len(catDoc.Jobs)),
		}
		for jobName, jobDoc := range catDoc.Jobs {
			jobKey := NormalizeKey(jobName)
			if jobKey == "" {
				return nil, fmt.Errorf("job type %q in category %q normalizes to an empty key", jobName, catName)
			}
			if _, dup := cat.jobs[jobKey]; dup {
				return nil, fmt.Errorf("job type %q in category %q collides with another job type", jobName, catName)
			}
			cat.jobs[jobKey] = &jobLevel{name: jobName, level: toLevel(jobDoc)}
		}
		defs.categories[catKey] = cat
	}

	return defs, nil
}

func toLevel(doc levelDoc) level {
	params := make(jobs.ParamSet, len(doc.Params))
	for k, v := range doc.Params {
		if v == nil {
			params[k] = ""
			continue
		}
		params[k] = fmt.Sprint(v)
	}
	return level{impl: doc.Impl, params: params}
}

func (d *Definitions) lookup(categoryName, jobType string) (*category, *jobLevel, error) {
	cat, ok := d.categories[NormalizeKey(categoryName)]
	if !ok {
		return nil, nil, fmt.Errorf("%w: unknown category %q", ErrDefinitionNotFound, categoryName)
	}
	job, ok := cat.jobs[NormalizeKey(jobType)]
	if !ok {
		return nil, nil, fmt.Errorf("%w: unknown job type %q in category %q", ErrDefinitionNotFound, jobType, categoryName)
	}
	return cat, job, nil
}

// ResolveImplementation returns the most specific implementation id
func (d *Definitions) ResolveImplementation(categoryName, jobType string) (string, error) {
	cat, job, err := d.lookup(categoryName, jobType)
	if err != nil {
		return "", err
	}

	for _, impl := range []string{job.impl, cat.impl, d.defaults.impl} {
		if impl != "" {
			return impl, nil
		}
	}
	return "", fmt.Errorf("%w for %s/%s", ErrNoImplementation, categoryName, jobType)
}

// ResolveInitParams returns handler defaults overridden by category then job params
func (d *Definitions) ResolveInitParams(categoryName, jobType string) (jobs.ParamSet, error) {
	cat, job, err := d.lookup(categoryName, jobType)
	if err != nil {
		return nil, err
	}
	return d.defaults.params.Merge(cat.params).Merge(job.params), nil
}

// Definitions lists every resolvable pair, sorted by category then job type.
// Pairs without an implementation are skipped.
func (d *Definitions) Definitions() []Definition {
	var out []Definition
	for _, cat := range d.categories {
		for _, job := range cat.jobs {
			impl, err := d.ResolveImplementation(cat.name, job.name)
			if err != nil {
				continue
			}
			params, _ := d.ResolveInitParams(cat.name, job.name)
			out = append(out, Definition{
				Category: cat.name,
				JobType:  job.name,
				ImplID:   impl,
				Params:   params,
			})
		}
	}

	sort.Slice(out, func(i, k int) bool {
		if out[i].Category != out[k].Category {
			return out[i].Category < out[k].Category
		}
		return out[i].JobType < out[k].JobType
	})
	return out
}
