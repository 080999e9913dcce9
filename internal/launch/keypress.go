package launch

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// WaitForKey prints a prompt and blocks until one key is read from in.
// A terminal is switched to raw mode so any key counts, not just Enter.
// End of input also ends the wait.
func WaitForKey(in io.Reader, out io.Writer) error {
	if in == nil {
		return nil
	}
	fmt.Fprint(out, "Press any key to exit...")

	restore := func() {}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		state, err := term.MakeRaw(int(f.Fd()))
		if err != nil {
			return err
		}
		restore = func() { term.Restore(int(f.Fd()), state) }
	}

	var b [1]byte
	_, err := in.Read(b[:])
	restore()
	fmt.Fprintln(out)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
