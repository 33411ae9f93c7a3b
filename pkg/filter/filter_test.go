package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAllowed(t *testing.T) {
	f := MustNew([]string{"dev_.*"}, []string{".*_pii"}, false)

	assert.True(t, f.IsAllowed("dev_table"))
	assert.False(t, f.IsAllowed("dev_table_pii"))
	assert.False(t, f.IsAllowed("prod_table"))
}

func TestIsAllowedDefaults(t *testing.T) {
	tests := []struct {
		name   string
		filter *Filter
		value  string
		want   bool
	}{
		{name: "nil filter", filter: nil, value: "anything", want: true},
		{name: "empty include matches all", filter: &Filter{}, value: "orders", want: true},
		{name: "exclude only", filter: &Filter{Exclude: []string{"^tmp"}}, value: "tmp_orders", want: false},
		{name: "case sensitive", filter: &Filter{Include: []string{"^Orders$"}}, value: "orders", want: false},
		{name: "ignore case", filter: &Filter{Include: []string{"^Orders$"}, IgnoreCase: true}, value: "orders", want: true},
		{name: "unanchored search", filter: &Filter{Include: []string{"ord"}}, value: "all_orders", want: true},
		{name: "invalid pattern denies", filter: &Filter{Include: []string{"("}}, value: "x", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.IsAllowed(tt.value))
		})
	}
}

func TestValidate(t *testing.T) {
	_, err := New([]string{"("}, nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include")

	f := &Filter{Exclude: []string{"[a-"}}
	assert.Error(t, f.Validate())
}
