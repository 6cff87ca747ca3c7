package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "solmeet/pkg/domain-errors"
)

type sampleRequest struct {
	Title   string   `json:"title" validate:"required,notblank"`
	Seats   int      `json:"seats" validate:"min=0"`
	Holders []string `json:"holders" validate:"max=2,unique,dive,identity"`
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		req  sampleRequest
		msg  string
	}{
		{"missing title", sampleRequest{}, "title is required"},
		{"blank title", sampleRequest{Title: "   "}, "title must not be blank"},
		{"negative seats", sampleRequest{Title: "x", Seats: -1}, "seats must be at least 0"},
		{"too many holders", sampleRequest{Title: "x", Holders: []string{"anonymous:a", "anonymous:b", "anonymous:c"}}, "holders must be at most 2"},
		{"duplicate holders", sampleRequest{Title: "x", Holders: []string{"anonymous:a", "anonymous:a"}}, "holders must not contain duplicates"},
		{"bad identity", sampleRequest{Title: "x", Holders: []string{"email:a"}}, "must be a kind:value identity"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(&tc.req)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
			assert.Contains(t, err.Error(), tc.msg)
		})
	}

	t.Run("valid request", func(t *testing.T) {
		req := sampleRequest{Title: "meetup", Holders: []string{"anonymous:tg-1"}}
		assert.NoError(t, Validate(&req))
	})
}

func TestErrorMessage_NonValidatorError(t *testing.T) {
	assert.Equal(t, "invalid request body", ErrorMessage(assert.AnError))
}
