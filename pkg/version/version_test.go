package version

import (
	"runtime"
	"testing"
)

func TestGet_BuildFlagsWin(t *testing.T) {
	saved := [3]string{Version, GitCommit, BuildDate}
	t.Cleanup(func() { Version, GitCommit, BuildDate = saved[0], saved[1], saved[2] })

	Version, GitCommit, BuildDate = "v1.2.3", "abc123", "2026-01-02"
	info := Get()
	if info.Version != "v1.2.3" || info.GitCommit != "abc123" || info.BuildDate != "2026-01-02" {
		t.Errorf("Get() = %+v, want build flag values", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %q, want %q", info.GoVersion, runtime.Version())
	}
}

func TestGet_Defaults(t *testing.T) {
	info := Get()
	if info.Version == "" || info.GitCommit == "" || info.BuildDate == "" {
		t.Errorf("Get() left fields empty: %+v", info)
	}
}
