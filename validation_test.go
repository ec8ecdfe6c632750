package sharedkernel

import (
	"errors"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONTagName(t *testing.T) {
	type sample struct {
		Email    string `json:"email,omitempty"`
		Internal string `json:"-"`
		Plain    string
	}
	typ := reflect.TypeOf(sample{})

	tests := []struct {
		field string
		want  string
	}{
		{field: "Email", want: "email"},
		{field: "Internal", want: ""},
		{field: "Plain", want: "Plain"},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			f, ok := typ.FieldByName(tt.field)
			require.True(t, ok)
			assert.Equal(t, tt.want, JSONTagName(f))
		})
	}
}

func TestNewValidator(t *testing.T) {
	age := 12
	err := NewValidator().Struct(signupRequest{Age: age})

	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	require.Len(t, verrs, 2)
	assert.Equal(t, "email", verrs[0].Field())
	assert.Equal(t, "age", verrs[1].Field())
}
