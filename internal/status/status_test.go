package status_test

import (
	"testing"

	"github.com/repology/repology-linkchecker/internal/status"
	"github.com/stretchr/testify/assert"
)

func TestCode_Success(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		code status.Code
		want bool
	}{
		{code: 200, want: true},
		{code: 204, want: true},
		{code: 299, want: true},
		{code: 300, want: false},
		{code: 404, want: false},
		{code: status.UnknownError, want: false},
		{code: status.Timeout, want: false},
		{code: status.Blacklisted, want: false},
	}

	for _, tc := range testCases {
		assert.Equalf(t, tc.want, tc.code.Success(), "code %d", tc.code)
	}
}
