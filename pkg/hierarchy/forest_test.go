// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package hierarchy

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confighub/cub-explorer/pkg/resource"
)

func res(uid, owner, kind string) resource.Resource {
	return resource.Resource{UID: uid, OwnerUID: owner, Kind: kind, Name: kind + "-" + uid}
}

func TestBuildChain(t *testing.T) {
	forest, err := Build([]resource.Resource{
		res("1", "", "Deployment"),
		res("2", "1", "ReplicaSet"),
		res("3", "2", "Pod"),
	})
	require.NoError(t, err)
	assert.Equal(t, Forest{"1": {"2": {"3": {}}}}, forest)
}

func TestBuildInputOrderIndependent(t *testing.T) {
	forest, err := Build([]resource.Resource{
		res("3", "2", "Pod"),
		res("2", "1", "ReplicaSet"),
		res("1", "", "Deployment"),
	})
	require.NoError(t, err)
	assert.Equal(t, Forest{"1": {"2": {"3": {}}}}, forest)
}

func TestBuildDanglingOwnerBecomesRoot(t *testing.T) {
	forest, err := Build([]resource.Resource{
		res("pod-a", "rs-gone", "Pod"),
		res("cm", "", "ConfigMap"),
	})
	require.NoError(t, err)
	assert.Equal(t, Forest{"pod-a": {}, "cm": {}}, forest)
}

func TestBuildEmpty(t *testing.T) {
	forest, err := Build(nil)
	require.NoError(t, err)
	assert.Empty(t, forest)
	assert.Equal(t, 0, forest.Len())
}

func TestBuildDuplicateUIDs(t *testing.T) {
	forest, err := Build([]resource.Resource{
		res("1", "", "Deployment"),
		res("1", "", "Deployment"),
		res("2", "1", "ReplicaSet"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, forest.Len())
	assert.Equal(t, []string{"1", "2"}, forest.UIDs())
}

func TestBuildSkipsMissingUID(t *testing.T) {
	forest, err := Build([]resource.Resource{res("", "", "Pod"), res("1", "", "Pod")})
	require.NoError(t, err)
	assert.Equal(t, Forest{"1": {}}, forest)
}

func TestBuildCycle(t *testing.T) {
	tests := []struct {
		name      string
		resources []resource.Resource
	}{
		{
			name:      "self owner",
			resources: []resource.Resource{res("1", "1", "Pod")},
		},
		{
			name: "two node loop",
			resources: []resource.Resource{
				res("a", "b", "ReplicaSet"),
				res("b", "a", "Deployment"),
				res("c", "", "ConfigMap"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.resources)
			assert.ErrorIs(t, err, ErrCycle)
		})
	}
}

// randomSnapshot builds an acyclic snapshot where each resource may point at
// an earlier resource or at a UID that does not exist.
func randomSnapshot(rng *rand.Rand, n int) []resource.Resource {
	out := make([]resource.Resource, 0, n)
	for i := 0; i < n; i++ {
		uid := fmt.Sprintf("u%03d", i)
		owner := ""
		switch rng.Intn(3) {
		case 0:
			if i > 0 {
				owner = fmt.Sprintf("u%03d", rng.Intn(i))
			}
		case 1:
			owner = fmt.Sprintf("missing-%d", i)
		}
		out = append(out, res(uid, owner, "Pod"))
	}
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func TestBuildCoversEveryUIDOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		snapshot := randomSnapshot(rng, 1+rng.Intn(40))

		forest, err := Build(snapshot)
		require.NoError(t, err)

		want := make([]string, 0, len(snapshot))
		for _, r := range snapshot {
			want = append(want, r.UID)
		}
		sort.Strings(want)

		assert.Equal(t, want, forest.UIDs())
		assert.Equal(t, len(snapshot), forest.Len())
	}
}

func TestBuildDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	snapshot := randomSnapshot(rng, 30)

	first, err := Build(snapshot)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		rng.Shuffle(len(snapshot), func(i, j int) { snapshot[i], snapshot[j] = snapshot[j], snapshot[i] })
		again, err := Build(snapshot)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRoots(t *testing.T) {
	f := Forest{"b": {}, "a": {"c": {}}}
	assert.Equal(t, []string{"a", "b"}, f.Roots())
	assert.Equal(t, []string{"a", "b", "c"}, f.UIDs())
}
