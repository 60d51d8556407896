package config

import (
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := cfg.SymbolRate(); got != 125000 {
		t.Fatalf("symbol rate = %d, want 125000", got)
	}
	if len(cfg.SyncWordBytes()) != 8 {
		t.Fatalf("sync word length = %d, want 8", len(cfg.SyncWordBytes()))
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad sync word", func(c *Config) { c.Link.SyncWord = "zz" }, "not valid hex"},
		{"long sync word", func(c *Config) { c.Link.SyncWord = strings.Repeat("ab", 9) }, "1 to 8 bytes"},
		{"bad threshold", func(c *Config) { c.Link.SyncThreshold = 64 }, "out of range"},
		{"bad sps", func(c *Config) { c.Link.SamplesPerSymbol = 7 }, "not divisible"},
		{"bad device", func(c *Config) { c.Device = "usrp" }, "unknown device"},
		{"bad packet length", func(c *Config) { c.Link.PacketLength = 0 }, "must be positive"},
	}

	for _, tc := range cases {
		cfg := Default()
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
			t.Fatalf("%s: err = %v, want containing %q", tc.name, err, tc.wantErr)
		}
	}
}
