package user

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cresol/portal/core"
)

func TestCheckPassword(t *testing.T) {
	ana := User{FullName: "Ana Souza", Email: "ana.souza@cresol.test"}
	tests := []struct {
		name    string
		pwd     string
		wantMsg string
	}{
		{"valid", "N3wP@ss!x", ""},
		{"like the name", "AnaSouza1!", pwdAttrSimText},
		{"like the email", "Ana.Souza9", pwdAttrSimText},
		{"too short", "Ab1!", pwdMinLenText},
		{"not complex", "abcdefgh1", pwdComplexityText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkPassword(tt.pwd, ana)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			vErr, ok := err.(*core.ValidationError)
			if assert.True(t, ok, "got %T", err) {
				assert.Equal(t, []core.FieldError{{Field: "password", Error: tt.wantMsg}}, vErr.Fields)
			}
		})
	}
}
