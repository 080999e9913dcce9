package launch

import (
	"io"
	"reflect"
	"testing"
)

func TestParseArgsDefaults(t *testing.T) {
	opts, err := ParseArgs(nil, io.Discard)
	if err != nil {
		t.Fatalf("ParseArgs error: %v", err)
	}

	if opts.Procs != 4 {
		t.Errorf("Procs = %d, expected 4", opts.Procs)
	}
	if opts.Transport != TransportGRPC {
		t.Errorf("Transport = %q, expected grpc", opts.Transport)
	}
	if opts.Rank != -1 {
		t.Errorf("Rank = %d, expected -1", opts.Rank)
	}
	if opts.Hub != "127.0.0.1:50051" {
		t.Errorf("Hub = %q", opts.Hub)
	}
	if opts.TLS || opts.CAFile != "" {
		t.Errorf("TLS = %v, CAFile = %q, expected off", opts.TLS, opts.CAFile)
	}
	if !opts.Wait {
		t.Error("Wait should default to true")
	}
	if opts.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, expected warn", opts.LogLevel)
	}
}

func TestParseArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"Zero ranks", []string{"-np", "0"}},
		{"Unknown transport", []string{"-transport", "udp"}},
		{"Rank outside group", []string{"-np", "2", "-rank", "2"}},
		{"Rank below launcher", []string{"-rank", "-2"}},
		{"Local worker rank", []string{"-transport", "local", "-rank", "1"}},
		{"Positional argument", []string{"extra"}},
		{"Unknown flag", []string{"-size", "10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseArgs(tt.args, io.Discard); err == nil {
				t.Errorf("ParseArgs(%v) returned no error", tt.args)
			}
		})
	}
}

func TestChildArgsRoundTrip(t *testing.T) {
	parent := Options{Procs: 5, Transport: TransportGRPC, Rank: -1, LogLevel: "debug", Wait: true}

	args := parent.childArgs(3, "10.0.0.1:6000", "/tmp/hub.pem")
	child, err := ParseArgs(args, io.Discard)
	if err != nil {
		t.Fatalf("ParseArgs(%v) error: %v", args, err)
	}

	expected := Options{
		Procs:     5,
		Transport: TransportGRPC,
		Rank:      3,
		Hub:       "10.0.0.1:6000",
		CAFile:    "/tmp/hub.pem",
		Wait:      false,
		LogLevel:  "debug",
	}
	if !reflect.DeepEqual(child, expected) {
		t.Errorf("child options = %+v, expected %+v", child, expected)
	}

	plain := parent.childArgs(1, "h:1", "")
	for _, a := range plain {
		if a == "-ca" {
			t.Errorf("childArgs without certificate passes -ca: %v", plain)
		}
	}
}
