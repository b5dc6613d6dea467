// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package resource

import "k8s.io/apimachinery/pkg/runtime/schema"

// Kind pairs a kind name with the resource used to list it.
type Kind struct {
	Name string
	GVR  schema.GroupVersionResource
}

// BuiltinKinds are queried in every namespace in addition to custom kinds.
// StatefulSet, DaemonSet, Job and CronJob are not part of the set yet.
var BuiltinKinds = []Kind{
	{Name: "Pod", GVR: schema.GroupVersionResource{Version: "v1", Resource: "pods"}},
	{Name: "Deployment", GVR: schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "deployments"}},
	{Name: "ReplicaSet", GVR: schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "replicasets"}},
	{Name: "ConfigMap", GVR: schema.GroupVersionResource{Version: "v1", Resource: "configmaps"}},
	{Name: "Secret", GVR: schema.GroupVersionResource{Version: "v1", Resource: "secrets"}},
	{Name: "ServiceAccount", GVR: schema.GroupVersionResource{Version: "v1", Resource: "serviceaccounts"}},
	{Name: "PersistentVolumeClaim", GVR: schema.GroupVersionResource{Version: "v1", Resource: "persistentvolumeclaims"}},
}
