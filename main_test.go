package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"node.town/tandem/config"
	"node.town/tandem/langs"
	"node.town/tandem/snd"
)

func TestDeviceRows(t *testing.T) {
	rows := deviceRows([]snd.DeviceInfo{
		{ID: "a1", Name: "Built-in Microphone", IsDefault: true},
		{ID: "b2", Name: "USB Headset"},
	})
	if len(rows) != 2 {
		t.Fatalf("rows = %v", rows)
	}
	if rows[0][2] != "*" || rows[1][2] != "" {
		t.Errorf("default column = %q, %q", rows[0][2], rows[1][2])
	}
}

func TestLanguageRows(t *testing.T) {
	rows := languageRows([]langs.Language{{Code: "en", Name: "English"}, {Code: "xx", Name: "Unknown"}})
	if !strings.HasPrefix(rows[0][2], "en-US, en-GB") {
		t.Errorf("accents = %q", rows[0][2])
	}
	if rows[1][2] != "" {
		t.Errorf("accents for unknown language = %q", rows[1][2])
	}
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	table := newTable(&buf, []string{"Code", "Name"})
	table.Append([]string{"hi", "Hindi"})
	table.Render()
	if !strings.Contains(buf.String(), "CODE") || !strings.Contains(buf.String(), "Hindi") {
		t.Errorf("table = %q", buf.String())
	}
}

func TestCreateLoggers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tandem.log")
	var console bytes.Buffer
	logger, closeLog, err := createLoggers(&config.Config{LogFile: path}, &console)
	if err != nil {
		t.Fatal(err)
	}
	logger.With().WithPrefix("main").Debug("hidden")
	logger.With().WithPrefix("main").Info("session started", "generation", 1)
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, out := range []string{string(data), console.String()} {
		if !strings.Contains(out, "session started") || !strings.Contains(out, "main") {
			t.Errorf("log output = %q", out)
		}
		if strings.Contains(out, "hidden") {
			t.Error("debug line logged at info level")
		}
	}
}
