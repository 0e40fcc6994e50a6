package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMerge(t *testing.T) {
	bi := &debug.BuildInfo{
		Main: debug.Module{Version: "v0.3.1"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	}
	tests := []struct {
		name string
		in   Info
		bi   *debug.BuildInfo
		want Info
	}{
		{
			"unstamped",
			Info{"dev", "none", "unknown"},
			bi,
			Info{"v0.3.1", "abc123", "2026-01-02T03:04:05Z"},
		},
		{
			"stamped wins",
			Info{"v1.0.0", "deadbeef", "2026-05-01"},
			bi,
			Info{"v1.0.0", "deadbeef", "2026-05-01"},
		},
		{
			"devel module",
			Info{"dev", "none", "unknown"},
			&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			Info{"dev", "none", "unknown"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, merge(tt.in, tt.bi)); diff != "" {
				t.Errorf("merge mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStringAndTemplate(t *testing.T) {
	i := Get()
	if !strings.Contains(String(), "version: "+i.Version) {
		t.Errorf("String() = %q", String())
	}
	if !strings.HasPrefix(Template(), "{{.Name}} version ") {
		t.Errorf("Template() = %q", Template())
	}
}
