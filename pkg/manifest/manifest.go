// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package manifest renders the selected resource for the viewer pane.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/confighub/cub-explorer/pkg/resource"
)

// Format is the viewer mode. Next cycles YAML, JSON, Logs.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
	FormatLogs
)

func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatJSON:
		return "json"
	case FormatLogs:
		return "logs"
	default:
		return "unknown"
	}
}

func (f Format) Next() Format {
	switch f {
	case FormatYAML:
		return FormatJSON
	case FormatJSON:
		return FormatLogs
	default:
		return FormatYAML
	}
}

// ParseFormat accepts the String form of a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "yaml", "":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "logs":
		return FormatLogs, nil
	}
	return FormatYAML, fmt.Errorf("unknown format %q (want yaml, json or logs)", s)
}

// RenderError reports a resource that could not be serialized.
type RenderError struct {
	Format Format
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Format, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Clean returns a deep copy of the object without metadata.managedFields.
func Clean(r resource.Resource) map[string]interface{} {
	var obj map[string]interface{}
	if r.Raw != nil {
		obj = runtime.DeepCopyJSON(r.Raw.Object)
	} else {
		obj = map[string]interface{}{
			"apiVersion": r.APIVersion,
			"kind":       r.Kind,
		}
		if r.Metadata != nil {
			obj["metadata"] = runtime.DeepCopyJSONValue(r.Metadata)
		}
		if r.Spec != nil {
			obj["spec"] = runtime.DeepCopyJSONValue(r.Spec)
		}
		if r.Status != nil {
			obj["status"] = runtime.DeepCopyJSONValue(r.Status)
		}
	}
	if md, ok := obj["metadata"].(map[string]interface{}); ok {
		delete(md, "managedFields")
	}
	return obj
}

// Render serializes r in the given format. FormatLogs has no manifest form
// and renders as an empty string.
func Render(r resource.Resource, f Format) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &RenderError{Format: f, Err: fmt.Errorf("%v", p)}
		}
	}()

	obj := Clean(r)
	switch f {
	case FormatJSON:
		b, jerr := json.MarshalIndent(obj, "", "  ")
		if jerr != nil {
			return "", &RenderError{Format: f, Err: jerr}
		}
		return string(b), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if yerr := enc.Encode(obj); yerr != nil {
			return "", &RenderError{Format: f, Err: yerr}
		}
		if yerr := enc.Close(); yerr != nil {
			return "", &RenderError{Format: f, Err: yerr}
		}
		return buf.String(), nil
	default:
		return "", nil
	}
}

// Diagnostic is the viewer text shown in place of a manifest that failed to
// render.
func Diagnostic(err error) string {
	return "Unable to render resource\n\n" + err.Error()
}

// Pair is one label or annotation.
type Pair struct {
	Key   string
	Value string
}

// Summary feeds the info pane.
type Summary struct {
	Context     string
	Kind        string
	Name        string
	Namespace   string
	Health      string
	Manager     string
	Labels      []Pair
	Annotations []Pair
}

// Summarize extracts the info pane fields. Labels and annotations are sorted
// by key.
func Summarize(r resource.Resource) Summary {
	return Summary{
		Context:     r.Context,
		Kind:        r.Kind,
		Name:        r.Name,
		Namespace:   r.Namespace,
		Health:      r.Health,
		Manager:     r.Manager.String(),
		Labels:      pairs(r.Labels()),
		Annotations: pairs(r.Annotations()),
	}
}

func pairs(m map[string]string) []Pair {
	out := make([]Pair, 0, len(m))
	for k, v := range m {
		out = append(out, Pair{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
