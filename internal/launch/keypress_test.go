package launch

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("broken stdin") }

func TestWaitForKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"Key pressed", "x", false},
		{"End of input", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := WaitForKey(strings.NewReader(tt.input), &out)
			if (err != nil) != tt.wantErr {
				t.Errorf("WaitForKey error = %v, wantErr %v", err, tt.wantErr)
			}
			if out.String() != "Press any key to exit...\n" {
				t.Errorf("output = %q", out.String())
			}
		})
	}

	if err := WaitForKey(failingReader{}, &bytes.Buffer{}); err == nil {
		t.Error("WaitForKey on a failing reader returned no error")
	}
	if err := WaitForKey(nil, &bytes.Buffer{}); err != nil {
		t.Errorf("WaitForKey(nil) error: %v", err)
	}
}
