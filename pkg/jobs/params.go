package jobs

import (
	"sort"
	"strconv"
	"time"
)

// ParamSet holds the merged initialization parameters of a job definition
type ParamSet map[string]string

// Merge returns a new set where keys in override replace keys in p
func (p ParamSet) Merge(override ParamSet) ParamSet {
	out := make(ParamSet, len(p)+len(override))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func (p ParamSet) String(key, def string) string {
	if v, ok := p[key]; ok && v != "" {
		return v
	}
	return def
}

func (p ParamSet) Int(key string, def int) int {
	if v, ok := p[key]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func (p ParamSet) Duration(key string, def time.Duration) time.Duration {
	if v, ok := p[key]; ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func (p ParamSet) Bool(key string, def bool) bool {
	if v, ok := p[key]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

// Keys returns the parameter names in sorted order
func (p ParamSet) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
