package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePrefixCommand(t *testing.T) {
	tests := []struct {
		name    string
		content string
		command string
		args    []string
		ok      bool
	}{
		{"with arg", "!whitelist <@42>", "whitelist", []string{"<@42>"}, true},
		{"case folded", "!Remove_Whitelist 42", "remove_whitelist", []string{"42"}, true},
		{"extra spaces", "!  whitelist   42  ", "whitelist", []string{"42"}, true},
		{"no args", "!whitelist", "whitelist", []string{}, true},
		{"not a command", "hello", "", nil, false},
		{"bare prefix", "!", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			command, args, ok := ParsePrefixCommand(tt.content, "!")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.command, command)
			assert.Equal(t, tt.args, args)
		})
	}
}
