package settings

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/gigurra/cwtrainer/cmd/common/config"
)

func TestInitAndShow(t *testing.T) {
	t.Setenv("CWTRAINER_HOME", t.TempDir())

	if err := runInit(&InitParams{}); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := os.Stat(config.ConfigPath()); err != nil {
		t.Fatalf("settings file not written: %v", err)
	}

	err := runInit(&InitParams{})
	if !errors.Is(err, ErrExists) {
		t.Errorf("second init = %v, want ErrExists", err)
	}
	if err := runInit(&InitParams{Force: true}); err != nil {
		t.Errorf("forced init: %v", err)
	}

	var out bytes.Buffer
	if err := runShow(&ShowParams{Alphabet: true}, &out); err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{`"wpm": 20`, `"speed_tier": "medium"`, "alphabet: KM"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("show output missing %q:\n%s", want, out.String())
		}
	}
}

func TestShowWithoutFile(t *testing.T) {
	t.Setenv("CWTRAINER_HOME", t.TempDir())

	var out bytes.Buffer
	if err := runShow(&ShowParams{}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"session_seconds": 120`) {
		t.Errorf("defaults not shown:\n%s", out.String())
	}
	if strings.Contains(out.String(), "alphabet:") {
		t.Errorf("alphabet printed without -a")
	}
}
