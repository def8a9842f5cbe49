package ai

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain question", in: "What is the capital of France?", want: "What is the capital of France?"},
		{name: "formatting stripped", in: "# Setup\n\nRun the **installer** now.", want: "Setup\nRun the installer now."},
		{name: "inline code kept", in: "run `ls -la` first", want: "run ls -la first"},
		{name: "fenced code kept", in: "```go\nfmt.Println(1)\n```", want: "fmt.Println(1)"},
		{name: "empty input", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, PlainText(tt.in))
		})
	}
}
