package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases host", "https://WWW.Acme.example/Careers", "https://www.acme.example/Careers"},
		{"strips tracking params", "https://acme.example/jobs?utm_source=feed&utm_campaign=x&id=7", "https://acme.example/jobs?id=7"},
		{"strips click ids", "https://acme.example/jobs?gclid=abc&fbclid=def", "https://acme.example/jobs"},
		{"drops fragment", "https://acme.example/jobs#apply", "https://acme.example/jobs"},
		{"deterministic query order", "https://acme.example/jobs?b=2&a=1", "https://acme.example/jobs?a=1&b=2"},
		{"trims whitespace", "  https://acme.example  ", "https://acme.example"},
		{"empty stays empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanonicalURL(tc.in))
		})
	}
}

func TestCanonicalURLIsStable(t *testing.T) {
	once := CanonicalURL("https://Acme.example/jobs?utm_medium=email&x=1#top")
	assert.Equal(t, once, CanonicalURL(once))
}
