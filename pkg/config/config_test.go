package config

import "testing"

func TestDefaultMatchesPOSIXDefaults(t *testing.T) {
	c := Default()
	if c.FS != " " {
		t.Errorf("FS = %q, want %q", c.FS, " ")
	}
	if c.RS != "\n" {
		t.Errorf("RS = %q, want %q", c.RS, "\n")
	}
	if c.Subsep != "\x1c" {
		t.Errorf("Subsep = %q, want %q", c.Subsep, "\x1c")
	}
	if c.ConvFmt != "%.6g" || c.OFmt != "%.6g" {
		t.Errorf("ConvFmt/OFmt = %q/%q, want %q/%q", c.ConvFmt, c.OFmt, "%.6g", "%.6g")
	}
	if c.SortedArrays || c.GreedyRS || c.CatchFormatErrors || c.NoAutoInput {
		t.Error("boolean knobs should default to false")
	}
}

func TestConfigIsAnIndependentCopyPerCall(t *testing.T) {
	a := Default()
	b := Default()
	a.FS = ":"
	if b.FS != " " {
		t.Errorf("mutating one Default() result affected another: b.FS = %q", b.FS)
	}
}
