// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package resource

import (
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Manager types
const (
	ManagerFlux       = "flux"
	ManagerArgo       = "argo"
	ManagerHelm       = "helm"
	ManagerTerraform  = "terraform"
	ManagerConfigHub  = "confighub"
	ManagerKubernetes = "k8s"
	ManagerUnknown    = "unknown"
)

// Manager describes the tool that deployed a resource.
type Manager struct {
	Type    string `json:"type"`
	SubType string `json:"subType,omitempty"`
	Name    string `json:"name,omitempty"`
}

func (m Manager) String() string {
	switch {
	case m.Type == "":
		return ManagerUnknown
	case m.Name == "":
		return m.Type
	case m.SubType == "":
		return m.Type + ":" + m.Name
	}
	return m.Type + "/" + m.SubType + ":" + m.Name
}

// DetectManager inspects labels, annotations and owner references, in that
// order of precedence.
func DetectManager(obj *unstructured.Unstructured) Manager {
	labels := obj.GetLabels()
	annotations := obj.GetAnnotations()

	for _, detect := range []func(map[string]string, map[string]string) Manager{
		fluxManager,
		argoManager,
		helmManager,
		terraformManager,
		confighubManager,
	} {
		if m := detect(labels, annotations); m.Type != "" {
			return m
		}
	}

	if owners := obj.GetOwnerReferences(); len(owners) > 0 {
		return Manager{
			Type:    ManagerKubernetes,
			SubType: strings.ToLower(owners[0].Kind),
			Name:    owners[0].Name,
		}
	}
	return Manager{Type: ManagerUnknown}
}

func fluxManager(labels, _ map[string]string) Manager {
	if name, ok := labels["kustomize.toolkit.fluxcd.io/name"]; ok {
		return Manager{Type: ManagerFlux, SubType: "kustomization", Name: name}
	}
	if name, ok := labels["helm.toolkit.fluxcd.io/name"]; ok {
		return Manager{Type: ManagerFlux, SubType: "helmrelease", Name: name}
	}
	return Manager{}
}

func argoManager(labels, annotations map[string]string) Manager {
	if name, ok := labels["argocd.argoproj.io/instance"]; ok {
		return Manager{Type: ManagerArgo, SubType: "application", Name: name}
	}
	// <app-name>:<group>/<kind>:<namespace>/<name>
	if tracking, ok := annotations["argocd.argoproj.io/tracking-id"]; ok {
		app, _, _ := strings.Cut(tracking, ":")
		return Manager{Type: ManagerArgo, SubType: "application", Name: app}
	}
	return Manager{}
}

func helmManager(labels, _ map[string]string) Manager {
	if labels["app.kubernetes.io/managed-by"] == "Helm" {
		return Manager{Type: ManagerHelm, SubType: "release", Name: labels["app.kubernetes.io/instance"]}
	}
	if chart, ok := labels["helm.sh/chart"]; ok {
		name := labels["app.kubernetes.io/instance"]
		if name == "" {
			name = chart
		}
		return Manager{Type: ManagerHelm, SubType: "release", Name: name}
	}
	return Manager{}
}

func terraformManager(labels, annotations map[string]string) Manager {
	if _, ok := annotations["app.terraform.io/run-id"]; ok {
		return Manager{Type: ManagerTerraform, SubType: "workspace", Name: annotations["app.terraform.io/workspace-name"]}
	}
	if _, ok := labels["app.terraform.io/managed"]; ok {
		return Manager{Type: ManagerTerraform, SubType: "managed"}
	}
	return Manager{}
}

func confighubManager(labels, annotations map[string]string) Manager {
	unit, ok := labels["confighub.com/UnitSlug"]
	if !ok {
		unit, ok = annotations["confighub.com/UnitSlug"]
	}
	if !ok {
		return Manager{}
	}
	return Manager{Type: ManagerConfigHub, SubType: "unit", Name: unit}
}
