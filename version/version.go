// Package version identifies the build of the beepbox tools.
package version

import "runtime/debug"

// Version is set by release builds:
//
//	go build -ldflags "-X github.com/chiptrack/beepbox/version.Version=v1.2.0" ./cmd/...
var Version string

// Hash is the short VCS revision the binary was built from, suffixed with
// -dirty for builds of a modified tree. It is empty outside a checkout.
var Hash = revision(debug.ReadBuildInfo())

// VersionOrHash is Version when set, Hash otherwise.
var VersionOrHash = func() string {
	if Version != "" {
		return Version
	}
	return Hash
}()

func revision(info *debug.BuildInfo, ok bool) string {
	if !ok {
		return ""
	}
	var rev string
	dirty := false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			rev = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return rev
}
