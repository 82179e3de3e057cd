package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchFlexibility(t *testing.T) {
	cases := []struct {
		name                   string
		onsite, remote, hybrid bool
		want                   Flexibility
	}{
		{"no flags", false, false, false, ""},
		{"onsite only", true, false, false, FlexOnsite},
		{"remote only", false, true, false, FlexRemote},
		{"hybrid only", false, false, true, FlexHybrid},
		{"two flags is undefined", true, true, false, ""},
		{"all flags is undefined", true, true, true, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Search{IsOnsite: tc.onsite, IsRemote: tc.remote, IsHybrid: tc.hybrid}
			assert.Equal(t, tc.want, s.Flexibility())
		})
	}
}
