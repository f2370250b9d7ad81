package config

import (
	"fmt"
	"os"
	"strings"
)

// Template placeholders understood by path settings.
const (
	VarEventName = "event_name"
	VarIReceiver = "ireceiver"
	VarComponent = "component"
	VarNetwork   = "network"
	VarStation   = "station"
	VarLocation  = "location"
	VarChannel   = "channel"
)

var knownVars = map[string]struct{}{
	VarEventName: {},
	VarIReceiver: {},
	VarComponent: {},
	VarNetwork:   {},
	VarStation:   {},
	VarLocation:  {},
	VarChannel:   {},
}

// Vars holds placeholder values for path templates.
type Vars map[string]string

// With returns a copy of v with key set to value.
func (v Vars) With(key, value string) Vars {
	out := make(Vars, len(v)+1)
	for k, val := range v {
		out[k] = val
	}
	out[key] = value
	return out
}

// CheckTemplate rejects templates that reference unknown placeholders.
func CheckTemplate(tmpl string) error {
	var unknown []string
	os.Expand(tmpl, func(name string) string {
		if _, ok := knownVars[name]; !ok {
			unknown = append(unknown, name)
		}
		return ""
	})
	if len(unknown) > 0 {
		return fmt.Errorf("unknown placeholder ${%s}", strings.Join(unknown, "}, ${"))
	}
	return nil
}

// Expand substitutes ${name} placeholders. A placeholder that is known but
// has no value in vars is an error so that half-expanded paths never reach
// the filesystem.
func Expand(tmpl string, vars Vars) (string, error) {
	var missing []string
	out := os.Expand(tmpl, func(name string) string {
		value, ok := vars[name]
		if !ok {
			missing = append(missing, name)
			return ""
		}
		return value
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("expand %q: no value for ${%s}", tmpl, strings.Join(missing, "}, ${"))
	}
	return out, nil
}
