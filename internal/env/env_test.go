package env

import (
	"fmt"
	"testing"
)

func TestLookup(t *testing.T) {
	want := "0xCAFEF00D"
	t.Setenv("EBH_MASK", want)

	got, ok := Lookup("EBH_MASK")
	if !ok {
		t.Fatalf("expected lookup to succeed")
	}
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestLookupPrefersNewKey(t *testing.T) {
	t.Setenv("EBH_ADDR", "127.0.0.1:1")
	t.Setenv("EBH_SERVER", "127.0.0.1:2")

	var warnings []string
	restore := SetWarnLoggerForTesting(func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	})
	defer restore()
	ResetWarningsForTesting()

	got, ok := Lookup("EBH_ADDR", "EBH_SERVER")
	if !ok || got != "127.0.0.1:1" {
		t.Fatalf("expected new key to win, got %q %v", got, ok)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
}

func TestLookupLegacyWarnsOnce(t *testing.T) {
	t.Setenv("EBH_DUFFS_MASK", " 0x1 ")

	var warnings []string
	restore := SetWarnLoggerForTesting(func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	})
	defer restore()
	ResetWarningsForTesting()

	for i := 0; i < 3; i++ {
		got, ok := Lookup("EBH_MASK", "EBH_DUFFS_MASK")
		if !ok || got != "0x1" {
			t.Fatalf("expected legacy value, got %q %v", got, ok)
		}
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %v", warnings)
	}
	if warnings[0] != "EBH_DUFFS_MASK is deprecated; use EBH_MASK" {
		t.Fatalf("unexpected warning %q", warnings[0])
	}
}

func TestLookupBlankIsUnset(t *testing.T) {
	t.Setenv("EBH_LOG_LEVEL", "   ")
	if _, ok := Lookup("EBH_LOG_LEVEL"); ok {
		t.Fatal("blank value should count as unset")
	}
}
