package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractURL(t *testing.T) {
	tests := []struct {
		name string
		desc string
		want string
		ok   bool
	}{
		{
			name: "url mid sentence",
			desc: "See https://vmware.com/kb/12345 for details",
			want: "https://vmware.com/kb/12345",
			ok:   true,
		},
		{
			name: "plain http",
			desc: "ref http://kb.example.com/article?id=9 end",
			want: "http://kb.example.com/article?id=9",
			ok:   true,
		},
		{
			name: "no url",
			desc: "Security fix for the host daemon.",
			want: "",
			ok:   false,
		},
		{
			name: "empty description",
			desc: "",
			want: "",
			ok:   false,
		},
		{
			name: "first of several",
			desc: "https://a.example/1 and https://b.example/2",
			want: "https://a.example/1",
			ok:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractURL(tt.desc)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
