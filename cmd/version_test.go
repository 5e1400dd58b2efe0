package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)

	out := buf.String()
	if !strings.Contains(out, "paperstack "+Version) {
		t.Errorf("version output missing version line: %q", out)
	}
	if !strings.Contains(out, "Build Time:") {
		t.Errorf("version output missing build time: %q", out)
	}
	if !strings.Contains(out, "Git Commit:") {
		t.Errorf("version output missing git commit: %q", out)
	}
}
