// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package clierr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

func TestClassifyError(t *testing.T) {
	pods := schema.GroupResource{Resource: "pods"}

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil", err: nil, expected: ""},
		{name: "api forbidden", err: apierrors.NewForbidden(pods, "web", nil), expected: TypeForbidden},
		{name: "api unauthorized", err: apierrors.NewUnauthorized("token expired"), expected: TypeForbidden},
		{name: "forbidden message", err: errors.New("forbidden: user cannot list pods"), expected: TypeForbidden},
		{name: "api not found", err: apierrors.NewNotFound(pods, "web"), expected: TypeNotFound},
		{name: "crd removed", err: errors.New("the server could not find the requested resource"), expected: TypeNotFound},
		{name: "connection refused", err: errors.New("dial tcp 127.0.0.1:6443: connection refused"), expected: TypeNetwork},
		{name: "wrapped deadline", err: fmt.Errorf("failed to list pods: %w", context.DeadlineExceeded), expected: TypeNetwork},
		{name: "api timeout", err: apierrors.NewTimeoutError("slow", 1), expected: TypeNetwork},
		{name: "wrapped cancel", err: fmt.Errorf("stream: %w", context.Canceled), expected: TypeCanceled},
		{name: "anything else", err: errors.New("unexpected EOF"), expected: TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyError(tt.err))
		})
	}
}

func TestIsCanceled(t *testing.T) {
	assert.False(t, IsCanceled(nil))
	assert.False(t, IsCanceled(context.DeadlineExceeded))
	assert.True(t, IsCanceled(fmt.Errorf("a: %w", fmt.Errorf("b: %w", context.Canceled))))
}

func TestPretty(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantContain string
	}{
		{name: "forbidden", err: errors.New("forbidden: access denied"), wantContain: "kubectl auth can-i"},
		{name: "api not served", err: errors.New("no matches for kind \"Widget\""), wantContain: "API not served"},
		{name: "plain not found", err: errors.New("pod not found"), wantContain: "Not found: pod not found"},
		{name: "network", err: errors.New("connection refused"), wantContain: "cluster connectivity"},
		{name: "canceled", err: context.Canceled, wantContain: "Canceled"},
		{name: "internal", err: errors.New("boom"), wantContain: "Error: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, Pretty(tt.err), tt.wantContain)
		})
	}
	assert.Empty(t, Pretty(nil))
}

func TestWrapWithHint(t *testing.T) {
	assert.NoError(t, WrapWithHint(nil, "ignored"))

	base := apierrors.NewNotFound(schema.GroupResource{Resource: "pods"}, "web")
	err := WrapWithHint(base, "select another pod")
	assert.True(t, apierrors.IsNotFound(err))
	assert.Contains(t, err.Error(), "Hint: select another pod")
}

func TestNothingFound(t *testing.T) {
	msg := NothingFound("shop")
	assert.Contains(t, msg, "No resources found in shop")
	assert.Contains(t, msg, "permission")
}
