package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/papapumpkin/fixreg/internal/audit"
	"github.com/papapumpkin/fixreg/internal/ui"
)

func TestSubcommandsRegistered(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"validate", "list", "show", "lock", "history", "events"} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			for _, c := range rootCmd.Commands() {
				if c.Name() == name {
					return
				}
			}
			t.Errorf("expected %q subcommand to be registered on rootCmd", name)
		})
	}
}

func TestValidateCmd_Flags(t *testing.T) {
	t.Parallel()

	for _, flag := range []string{"lock", "watch", "no-history"} {
		t.Run(flag, func(t *testing.T) {
			t.Parallel()
			f := validateCmd.Flags().Lookup(flag)
			if f == nil {
				t.Fatalf("expected flag %q on validate command", flag)
			}
			if f.DefValue != "false" {
				t.Errorf("flag %q default = %q, want false", flag, f.DefValue)
			}
		})
	}
}

func TestHistoryCmd_LimitDefault(t *testing.T) {
	t.Parallel()

	f := historyCmd.Flags().Lookup("limit")
	if f == nil {
		t.Fatal("expected flag \"limit\" on history command")
	}
	if f.DefValue != "10" {
		t.Errorf("limit default = %q, want 10", f.DefValue)
	}
}

func TestValidateOnce(t *testing.T) {
	t.Parallel()

	const manifest = `
[catalog]
name = "feeders"

[[fixture]]
name = "a.json"
origin = "derived"
derived_from = "b.json"

[[fixture]]
name = "b.json"
origin = "derived"
derived_from = "a.json"
`
	fsys := afero.NewMemMapFs()
	for name, body := range map[string]string{
		"fx/fixtures.toml": manifest,
		"fx/a.json":        "{}",
		"fx/b.json":        "{}",
	} {
		if err := afero.WriteFile(fsys, name, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	n, err := validateOnce(context.Background(), ui.NewWriter(&buf), audit.Options{
		FS:       fsys,
		Dir:      "fx",
		Manifest: "fixtures.toml",
	}, true)
	if err != nil {
		t.Fatalf("validateOnce: %v", err)
	}
	if n != 1 {
		t.Errorf("violations = %d, want 1\n%s", n, buf.String())
	}
	if out := buf.String(); !strings.Contains(out, "[cyclic_derivation]") || !strings.Contains(out, "fx/fixtures.toml") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestPrintEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "violation",
			line: `{"ts":"2026-03-01T12:00:00Z","kind":"violation","run":"3f2a9c1e-0000-4000-8000-000000000000","fixture":"flat.glm","data":{"kind":"dangling_reference","detail":"x"}}`,
			want: []string{"violation", "run=3f2a9c1e", "fixture=flat.glm", "detail=x kind=dangling_reference"},
		},
		{
			name: "scalar data",
			line: `{"ts":"2026-03-01T12:00:00Z","kind":"validate_done","data":3}`,
			want: []string{"validate_done", "3"},
		},
		{
			name: "malformed",
			line: `not json`,
			want: []string{"??? not json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			printEvent(&buf, tt.line)
			for _, s := range tt.want {
				if !strings.Contains(buf.String(), s) {
					t.Errorf("output %q missing %q", buf.String(), s)
				}
			}
		})
	}
}

func TestShortID(t *testing.T) {
	t.Parallel()

	if got := shortID("3f2a9c1e-0000-4000"); got != "3f2a9c1e" {
		t.Errorf("shortID = %q", got)
	}
	if got := shortID("plain"); got != "plain" {
		t.Errorf("shortID = %q", got)
	}
}
