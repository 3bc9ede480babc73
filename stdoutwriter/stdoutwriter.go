package stdoutwriter

import "github.com/pterm/pterm"

// Logger writes logs to the standard output.
type Logger struct{}

func (l Logger) Write(p []byte) (n int, err error) {
	pterm.Println(string(p))
	return len(p), nil
}
