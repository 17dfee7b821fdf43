package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundMoney(t *testing.T) {
	cases := map[string]string{
		"0.125":  "0.13",
		"0.124":  "0.12",
		"15":     "15.00",
		"-0.125": "-0.13",
		"1.005":  "1.01",
	}
	for in, want := range cases {
		requireMoney(t, want, RoundMoney(requireDecimal(in)))
	}
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("12.50")
	require.NoError(t, err)
	requireMoney(t, "12.50", d)

	for _, bad := range []string{"", "abc", "0", "-3", "1.234"} {
		_, err := ParseAmount(bad)
		require.ErrorIs(t, err, ErrInvalidAmount, bad)
	}
}

func TestReferences(t *testing.T) {
	require.Equal(t, "task_42", TaskReference(42))
	a, b := NewReference("wd"), NewReference("wd")
	require.NotEqual(t, a, b)
	require.Regexp(t, `^wd_[0-9a-f-]{36}$`, a)
}
