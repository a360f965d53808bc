package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"frigate_config/confgen/internal/camera"
	"frigate_config/confgen/internal/config"
)

func testCLI(env map[string]string) (*cli, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	return &cli{
		stdout: &stdout,
		stderr: &stderr,
		getenv: func(k string) string { return env[k] },
	}, &stdout, &stderr
}

func writeCSV(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "cameralist.csv")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestHelpContainsAllCommands(t *testing.T) {
	var sb strings.Builder
	printUsage(&sb)
	help := sb.String()
	if !strings.Contains(help, "Usage:") {
		t.Fatalf("help output missing 'Usage:' header")
	}
	for _, cmd := range commands {
		if !strings.Contains(help, cmd.name) || !strings.Contains(help, cmd.short) {
			t.Errorf("help output missing command %q", cmd.name)
		}
	}
}

func TestLongHelpForKnownCommands(t *testing.T) {
	for _, cmd := range commands {
		t.Run(cmd.name, func(t *testing.T) {
			var sb strings.Builder
			printCommandHelp(&sb, cmd.name)
			if !strings.Contains(sb.String(), cmd.usage) {
				t.Errorf("long help for %q missing usage line %q", cmd.name, cmd.usage)
			}
		})
	}

	var sb strings.Builder
	printCommandHelp(&sb, "no-such-command")
	if !strings.Contains(sb.String(), "unknown command") {
		t.Errorf("expected unknown-command message, got: %s", sb.String())
	}
}

func TestDispatchHelp(t *testing.T) {
	for _, args := range [][]string{{"--help"}, {"-h"}, {"help"}, {"help", "serve"}} {
		c, stdout, _ := testCLI(nil)
		if err := c.dispatch(args); err != nil {
			t.Fatalf("dispatch(%v) returned error: %v", args, err)
		}
		if stdout.Len() == 0 {
			t.Fatalf("dispatch(%v) printed nothing", args)
		}
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	c, _, _ := testCLI(nil)
	err := c.dispatch([]string{"no-such-command-xyz"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestDispatchBadFlag(t *testing.T) {
	c, _, _ := testCLI(nil)
	err := c.dispatch([]string{"generate", "-no-such-flag"})
	if err == nil || !strings.Contains(err.Error(), "usage: confgen generate") {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestGenerate_WritesConfigAndSummary(t *testing.T) {
	dir := t.TempDir()
	input := writeCSV(t, dir, "Username,Password,IP,Camera Name\n"+
		"alice,pw1,192.168.1.10,Front Door\n"+
		"bob,,192.168.1.11,Garage\n"+
		"carl,pw3,192.168.1.12,Back Yard!!\n")
	output := filepath.Join(dir, "config.yaml")
	metricsPath := filepath.Join(dir, "confgen.prom")

	c, stdout, _ := testCLI(map[string]string{"LOG_LEVEL": "error"})
	err := c.dispatch([]string{"generate",
		"-input", input,
		"-output", output,
		"-probe", "none",
		"-metrics-textfile", metricsPath,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	doc, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(doc), "    Front_Door:\n") || !strings.Contains(string(doc), "  Back_Yard:\n") {
		t.Fatalf("unexpected document:\n%s", doc)
	}
	if strings.Contains(string(doc), "# OFFLINE CAMERAS") {
		t.Fatalf("no camera should be offline with probe none:\n%s", doc)
	}

	out := stdout.String()
	for _, want := range []string{
		"Warning: row 3 has missing data in columns: Password\n",
		"Config file generated: " + output + "\n",
		"- 2 cameras total\n",
		"- 2 cameras online\n",
		"  - 'Back Yard!!' -> 'Back_Yard'\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("stdout missing %q:\n%s", want, out)
		}
	}

	prom, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("read metrics textfile: %v", err)
	}
	if !strings.Contains(string(prom), `confgen_generation_runs_total{status="succeeded"} 1`) {
		t.Fatalf("unexpected metrics textfile:\n%s", prom)
	}
}

func TestGenerate_StdoutKeepsDocumentClean(t *testing.T) {
	dir := t.TempDir()
	input := writeCSV(t, dir, "Username,Password,IP,Camera Name\nalice,pw1,192.168.1.10,Porch\n")

	c, stdout, stderr := testCLI(map[string]string{"CONFGEN_CSV": input, "CONFGEN_PROBE": "none"})
	if err := c.dispatch([]string{"generate", "-stdout", "-log-level", "error"}); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(stdout.String(), "#        MAIN FEED STREAMS\n") {
		t.Fatalf("expected only the document on stdout, got:\n%s", stdout.String())
	}
	if !strings.Contains(stderr.String(), "Porch (192.168.1.10) - Online") {
		t.Fatalf("expected progress on stderr, got:\n%s", stderr.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); !os.IsNotExist(err) {
		t.Fatalf("expected no output file, stat err=%v", err)
	}
}

func TestGenerate_MissingColumns(t *testing.T) {
	dir := t.TempDir()
	input := writeCSV(t, dir, "Username,Password\nalice,pw\n")
	output := filepath.Join(dir, "config.yaml")

	c, _, _ := testCLI(nil)
	err := c.dispatch([]string{"generate", "-input", input, "-output", output, "-probe", "none", "-log-level", "error"})
	var mce *camera.MissingColumnsError
	if !errors.As(err, &mce) || len(mce.Columns) != 2 {
		t.Fatalf("expected missing columns error, got %v", err)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Fatalf("expected no output file, stat err=%v", err)
	}
}

func TestGenerate_NoValidRows(t *testing.T) {
	dir := t.TempDir()
	input := writeCSV(t, dir, "Username,Password,IP,Camera Name\nalice,pw,cam.local,Porch\n")

	c, stdout, _ := testCLI(nil)
	err := c.dispatch([]string{"generate", "-input", input, "-output", filepath.Join(dir, "out.yaml"), "-probe", "none", "-log-level", "error"})
	if !errors.Is(err, camera.ErrNoCameras) {
		t.Fatalf("expected ErrNoCameras, got %v", err)
	}
	if !strings.Contains(stdout.String(), "row 2 has invalid IP format: cam.local") {
		t.Fatalf("expected invalid IP warning, got:\n%s", stdout.String())
	}
}

func TestGenerate_InvalidConfig(t *testing.T) {
	c, _, _ := testCLI(nil)
	err := c.dispatch([]string{"generate", "-probe", "carrier-pigeon"})
	if !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestFlagsOverrideFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "confgen.yaml")
	if err := os.WriteFile(cfgPath, []byte("input: from-file.csv\noutput: from-file.yaml\nprobe:\n  workers: 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	f := newFlags("generate", &bytes.Buffer{})
	if err := f.fs.Parse([]string{"-config", cfgPath, "-output", "from-flag.yaml"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	cfg, err := f.config(func(k string) string {
		if k == "CONFGEN_CSV" {
			return "from-env.csv"
		}
		return ""
	})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if cfg.Input != "from-env.csv" || cfg.Output != "from-flag.yaml" || cfg.Probe.Workers != 3 {
		t.Fatalf("unexpected precedence result: %+v", cfg)
	}
}

func TestUsageBannerHasPlainSeparator(t *testing.T) {
	var sb strings.Builder
	printUsage(&sb)
	first := strings.SplitN(sb.String(), "\n", 2)[0]
	if first != "confgen: Frigate camera config generator" {
		t.Fatalf("unexpected banner %q", first)
	}
}

func TestGenerate_ProbeMethodIsCaseFolded(t *testing.T) {
	dir := t.TempDir()
	input := writeCSV(t, dir, "Username,Password,IP,Camera Name\nalice,pw1,192.168.1.10,Porch\n")
	metricsPath := filepath.Join(dir, "confgen.prom")

	c, _, _ := testCLI(map[string]string{"CONFGEN_PROBE": "NONE", "LOG_LEVEL": "error"})
	err := c.dispatch([]string{"generate",
		"-input", input,
		"-output", filepath.Join(dir, "config.yaml"),
		"-metrics-textfile", metricsPath,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	prom, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("read metrics textfile: %v", err)
	}
	if !strings.Contains(string(prom), `confgen_probes_total{method="none",result="reachable"} 1`) {
		t.Fatalf("expected lower-case method label:\n%s", prom)
	}
	if strings.Contains(string(prom), `method="NONE"`) {
		t.Fatalf("unexpected raw method label:\n%s", prom)
	}
}
