package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NormalizeTimeLabel(t *testing.T) {
	cases := map[string]string{
		"10:00-11:00":    "10:00-11:00",
		"10:00 - 11:00":  "10:00-11:00",
		"9:00-10:00":     "09:00-10:00",
		" 9:05 -  9:45 ": "09:05-09:45",
		"23:00-23:59":    "23:00-23:59",
	}
	for in, want := range cases {
		got, err := NormalizeTimeLabel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "10:00", "10am-11am", "11:00-10:00", "10:00-10:00", "24:00-25:00"} {
		_, err := NormalizeTimeLabel(bad)
		assert.Error(t, err, bad)
	}
}
