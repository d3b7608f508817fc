package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrustList_IsTrusted(t *testing.T) {
	t.Parallel()

	tl := NewTrustList([]string{
		"127.0.0.1",
		" ::1 ",
		"::ffff:127.0.0.1",
		"",
		"172.18.0.0/16",
		"not-an-ip",
	})

	tests := []struct {
		key  string
		want bool
	}{
		{key: "127.0.0.1", want: true},
		{key: "::1", want: true},
		{key: "::ffff:127.0.0.1", want: true},
		{key: "172.18.0.1", want: true},
		{key: "172.18.255.254", want: true},
		{key: "172.19.0.1", want: false},
		{key: "not-an-ip", want: true},
		{key: "10.0.0.1", want: false},
		{key: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tl.IsTrusted(tt.key))
		})
	}

	assert.Equal(t, 5, tl.Len())
}

func TestTrustList_NilAndEmpty(t *testing.T) {
	t.Parallel()

	var nilList *TrustList
	assert.False(t, nilList.IsTrusted("127.0.0.1"))
	assert.Equal(t, 0, nilList.Len())

	empty := NewTrustList(nil)
	assert.False(t, empty.IsTrusted("127.0.0.1"))
	assert.Equal(t, 0, empty.Len())
}
