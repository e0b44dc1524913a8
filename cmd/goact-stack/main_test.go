package main

import "testing"

func TestCLIParse(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		want   string
		listen string
	}{
		{name: "no arguments", args: nil, want: "serve"},
		{name: "flags only", args: []string{"--listen", "127.0.0.1:9000"}, want: "serve", listen: "127.0.0.1:9000"},
		{name: "explicit serve", args: []string{"serve"}, want: "serve"},
		{name: "check", args: []string{"check"}, want: "check"},
		{name: "watch", args: []string{"watch"}, want: "watch"},
		{name: "version", args: []string{"version"}, want: "version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCLI()
			cmd, err := c.app.Parse(tt.args)
			if err != nil {
				t.Fatalf("parse %v: %v", tt.args, err)
			}
			if cmd != tt.want {
				t.Fatalf("expected command %q, got %q", tt.want, cmd)
			}
			if *c.listenAddr != tt.listen {
				t.Fatalf("expected listen %q, got %q", tt.listen, *c.listenAddr)
			}
		})
	}
}

func TestCLIParseUnknownCommand(t *testing.T) {
	if _, err := newCLI().app.Parse([]string{"deploy"}); err == nil {
		t.Fatalf("expected error for unknown command")
	}
}
