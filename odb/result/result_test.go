package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeString(t *testing.T) {
	tests := []struct {
		code Code
		want string
	}{
		{CodeOK, "OK"},
		{CodeAuthError, "AuthError"},
		{CodeGenericError, "GenericError"},
		{CodeParametersError, "ParametersError"},
		{CodeNotConnected, "NotConnected"},
		{Code(42), "Code(42)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.String())
		})
	}
}

func TestResult(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		r := OK()
		assert.True(t, r.IsOK())
		assert.NoError(t, r.Err())
		assert.Equal(t, "OK", r.String())
	})

	t.Run("not connected", func(t *testing.T) {
		r := NotConnected()
		assert.False(t, r.IsOK())
		assert.Equal(t, CodeNotConnected, r.Code)
		require.Error(t, r.Err())
		assert.Equal(t, "NotConnected: current connection is not open", r.Err().Error())
	})

	t.Run("failure without message", func(t *testing.T) {
		r := Fail(CodeGenericError, "")
		assert.EqualError(t, r.Err(), "GenericError")
	})
}

func TestValue(t *testing.T) {
	v := Of([]string{"demo", "GratefulDeadConcerts"})
	assert.True(t, v.IsOK())
	assert.Equal(t, []string{"demo", "GratefulDeadConcerts"}, v.Value)

	failed := FailValue[int](ParametersError("limit must be positive"))
	assert.Equal(t, CodeParametersError, failed.Code)
	assert.Equal(t, "limit must be positive", failed.Message)
	assert.Zero(t, failed.Value)

	var b Bool = Of(true)
	assert.True(t, b.Value)
}
