package main

import "testing"

func TestParseSignature(t *testing.T) {
	if _, err := parseSignature("i64"); err != nil {
		t.Errorf("parseSignature(i64): %v", err)
	}
	if _, err := parseSignature("i32pair"); err != nil {
		t.Errorf("parseSignature(i32pair): %v", err)
	}
	if _, err := parseSignature("bogus"); err == nil {
		t.Error("parseSignature(bogus): expected error")
	}
}

func TestRootCommandHasInstrumentSubcommand(t *testing.T) {
	root := newRootCommand()
	cmd, _, err := root.Find([]string{"instrument"})
	if err != nil {
		t.Fatalf("Find(instrument): %v", err)
	}
	if cmd.Use != "instrument <in.wasm>" {
		t.Errorf("instrument command Use = %q", cmd.Use)
	}
}
