package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	p := NewCommandParser()

	tests := []struct {
		text string
		cmd  string
		args []string
		ok   bool
	}{
		{"!профиль", "профиль", nil, true},
		{"  !Рейтинг серия ", "рейтинг", []string{"серия"}, true},
		{"/start qr_default_branch", "start", []string{"qr_default_branch"}, true},
		{"/start@volley_bot", "start", nil, true},
		{".qr qr_abc", "qr", []string{"qr_abc"}, true},
		{"привет", "", nil, false},
		{"!", "", nil, false},
		{"/@bot", "", nil, false},
	}
	for _, tt := range tests {
		cmd, args, ok := p.ParseCommand(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.cmd, cmd, tt.text)
		assert.Equal(t, tt.args, args, tt.text)
	}
}
