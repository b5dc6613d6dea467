// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package clierr classifies cluster errors so the explorer can log them with a
// stable class and show a short hint instead of a raw transport message.
package clierr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// Error classes, used as the "class" field in logs and metrics.
const (
	TypeNotFound  = "not_found"
	TypeForbidden = "forbidden"
	TypeNetwork   = "network"
	TypeCanceled  = "canceled"
	TypeInternal  = "internal"
)

// IsForbidden reports RBAC and authentication failures.
func IsForbidden(err error) bool {
	if err == nil {
		return false
	}
	if apierrors.IsForbidden(err) || apierrors.IsUnauthorized(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "forbidden") ||
		strings.Contains(msg, "access denied") ||
		strings.Contains(msg, "unauthorized")
}

// IsNotFound reports a missing object or an API group that is not served.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if apierrors.IsNotFound(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") ||
		strings.Contains(msg, "no matches for kind") ||
		strings.Contains(msg, "the server could not find")
}

// IsNetworkError reports connectivity failures, including list timeouts.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || apierrors.IsTimeout(err) || apierrors.IsServerTimeout(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "network is unreachable") ||
		strings.Contains(msg, "dial tcp") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "context deadline exceeded")
}

// IsCanceled reports a context cancellation. Log sessions end this way on
// every re-attach, so callers should not treat it as a failure.
func IsCanceled(err error) bool {
	return err != nil && errors.Is(err, context.Canceled)
}

// ClassifyError returns one of the Type constants, or "" for nil.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return ""
	case IsCanceled(err):
		return TypeCanceled
	case IsForbidden(err):
		return TypeForbidden
	case IsNotFound(err):
		return TypeNotFound
	case IsNetworkError(err):
		return TypeNetwork
	}
	return TypeInternal
}

// Pretty formats an error for the status line or stderr.
func Pretty(err error) string {
	if err == nil {
		return ""
	}

	baseMsg := err.Error()
	switch ClassifyError(err) {
	case TypeForbidden:
		return fmt.Sprintf("Access denied: %s\n\nHint: the explorer needs get/list on the resources it shows.\n"+
			"  - kubectl auth can-i list pods -n <namespace>\n"+
			"  - kubectl auth can-i get pods/log -n <namespace>", baseMsg)

	case TypeNotFound:
		lower := strings.ToLower(baseMsg)
		if strings.Contains(lower, "no matches for kind") || strings.Contains(lower, "the server could not find") {
			return fmt.Sprintf("API not served: %s\n\nHint: the custom resource definition may have been removed. Press r to refresh.", baseMsg)
		}
		return fmt.Sprintf("Not found: %s", baseMsg)

	case TypeNetwork:
		return fmt.Sprintf("Connection error: %s\n\nHint: check cluster connectivity:\n"+
			"  - kubectl cluster-info --context <context>\n"+
			"  - cub-explorer contexts", baseMsg)

	case TypeCanceled:
		return "Canceled"
	}
	return fmt.Sprintf("Error: %s", baseMsg)
}

// WrapWithHint appends a hint to an error while keeping it unwrappable.
func WrapWithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w\n\nHint: %s", err, hint)
}

// NothingFound is the placeholder shown for an empty namespace.
func NothingFound(namespace string) string {
	return fmt.Sprintf("No resources found in %s.\n\n"+
		"This might mean:\n"+
		"  - The namespace is empty\n"+
		"  - You may not have permission to list its resources", namespace)
}
