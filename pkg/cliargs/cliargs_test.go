package cliargs

import "testing"

func TestParseScriptAndPositionals(t *testing.T) {
	opts, err := Parse([]string{`{print $1}`, "file1.txt", "x=1"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if opts.Program != `{print $1}` {
		t.Errorf("Program = %q", opts.Program)
	}
	if len(opts.Args) != 2 || opts.Args[0] != "file1.txt" || opts.Args[1] != "x=1" {
		t.Errorf("Args = %v", opts.Args)
	}
}

func TestParseFSFlag(t *testing.T) {
	opts, err := Parse([]string{"-F", ":", "{print}"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if opts.Config.FS != ":" {
		t.Errorf("FS = %q, want %q", opts.Config.FS, ":")
	}
}

func TestParseVAssignment(t *testing.T) {
	opts, err := Parse([]string{"-v", "n=42", "{print}"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(opts.PreAssigns) != 1 || opts.PreAssigns[0].Name != "n" {
		t.Fatalf("PreAssigns = %+v", opts.PreAssigns)
	}
	if opts.PreAssigns[0].Val.ToNumber() != 42 {
		t.Errorf("assigned value = %v, want 42", opts.PreAssigns[0].Val.ToNumber())
	}
}

func TestParseNiAndExtLongFlags(t *testing.T) {
	opts, err := Parse([]string{"-ni", "-ext", "{print}"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !opts.Config.NoAutoInput {
		t.Error("expected NoAutoInput to be set by -ni")
	}
	if !opts.EnableExt {
		t.Error("expected EnableExt to be set by -ext")
	}
}

func TestBareDashTerminatesOptionProcessing(t *testing.T) {
	opts, err := Parse([]string{"{print}", "-", "-v"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(opts.Args) != 2 || opts.Args[0] != "-" || opts.Args[1] != "-v" {
		t.Errorf("Args = %v, want [- -v] (literal positionals after bare dash)", opts.Args)
	}
}

func TestMissingProgramIsConfigError(t *testing.T) {
	_, err := Parse([]string{"-F", ":"})
	if err == nil {
		t.Fatal("expected an error when no program text is given")
	}
	if _, ok := err.(*ConfigError); !ok {
		t.Errorf("error type = %T, want *ConfigError", err)
	}
}

func TestIsAssignment(t *testing.T) {
	if !IsAssignment("x=1") {
		t.Error("x=1 should be recognized as an assignment")
	}
	if IsAssignment("file.txt") {
		t.Error("file.txt should not be recognized as an assignment")
	}
}
