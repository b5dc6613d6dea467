// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package resource

import (
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Health values shown next to tree labels.
const (
	StatusReady    = "Ready"
	StatusNotReady = "NotReady"
	StatusFailed   = "Failed"
	StatusPending  = "Pending"
	StatusUnknown  = "Unknown"
)

// DetectStatus derives a coarse health value from conditions, phase and
// replica counts.
func DetectStatus(obj *unstructured.Unstructured) string {
	status, _, _ := unstructured.NestedMap(obj.Object, "status")
	if status == nil {
		return StatusUnknown
	}

	if s, ok := readyCondition(obj); ok {
		return s
	}

	if phase, ok := status["phase"].(string); ok {
		switch phase {
		case "Running", "Succeeded", "Bound", "Active":
			return StatusReady
		case "Pending", "ContainerCreating":
			return StatusPending
		case "Failed", "Error", "CrashLoopBackOff", "Lost":
			return StatusFailed
		}
	}

	switch obj.GetKind() {
	case "Deployment", "ReplicaSet":
		return replicaStatus(obj)
	}

	return StatusUnknown
}

func readyCondition(obj *unstructured.Unstructured) (string, bool) {
	conditions, found, _ := unstructured.NestedSlice(obj.Object, "status", "conditions")
	if !found {
		return "", false
	}
	for _, c := range conditions {
		cond, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		if cond["type"] != "Ready" {
			continue
		}
		switch cond["status"] {
		case "True":
			return StatusReady, true
		case "False":
			return StatusNotReady, true
		default:
			return StatusPending, true
		}
	}
	return "", false
}

func replicaStatus(obj *unstructured.Unstructured) string {
	replicas, _, _ := unstructured.NestedInt64(obj.Object, "status", "replicas")
	ready, _, _ := unstructured.NestedInt64(obj.Object, "status", "readyReplicas")

	desired, found, _ := unstructured.NestedInt64(obj.Object, "spec", "replicas")
	if !found {
		desired = 1
	}
	if desired == 0 && replicas == 0 {
		return StatusReady
	}
	if ready >= desired {
		return StatusReady
	}
	if replicas == 0 {
		return StatusPending
	}
	return StatusNotReady
}
