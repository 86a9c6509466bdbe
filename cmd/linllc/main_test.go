package main

import (
	"reflect"
	"testing"
)

func TestRewriteProjectTreeArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"linllc"},
			want: []string{"linllc"},
		},
		{
			name: "project id first token",
			in:   []string{"linllc", "proj-abc123"},
			want: []string{"linllc", "tree", "proj-abc123"},
		},
		{
			name: "project id after value flag",
			in:   []string{"linllc", "--dir", "./data", "proj-abc123", "--smart", "50"},
			want: []string{"linllc", "--dir", "./data", "tree", "proj-abc123", "--smart", "50"},
		},
		{
			name: "project id after equals flag",
			in:   []string{"linllc", "--format=yaml", "proj-abc123"},
			want: []string{"linllc", "--format=yaml", "tree", "proj-abc123"},
		},
		{
			name: "project id after bool flag",
			in:   []string{"linllc", "--pretty", "proj-abc123"},
			want: []string{"linllc", "--pretty", "tree", "proj-abc123"},
		},
		{
			name: "project id after double dash",
			in:   []string{"linllc", "--", "proj-abc123"},
			want: []string{"linllc", "--", "tree", "proj-abc123"},
		},
		{
			name: "subcommand not rewritten",
			in:   []string{"linllc", "projects", "show", "proj-abc123"},
			want: []string{"linllc", "projects", "show", "proj-abc123"},
		},
		{
			name: "bare prefix not rewritten",
			in:   []string{"linllc", "proj-"},
			want: []string{"linllc", "proj-"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteProjectTreeArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteProjectTreeArgs:\n got: %#v\nwant: %#v", got, tt.want)
			}
		})
	}
}
