package internal

import (
	"runtime/debug"
	"strings"
)

const (
	_moduleName     = "github.com/luizaranda/curling"
	_unknownVersion = "v0.0.0-unknown"
)

// Version is the module version as recorded in the binary's build info. When
// curling is the main module (for example when running its own tests or the
// bundled commands) the main module version is used instead.
var Version = func() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return _unknownVersion
	}

	if strings.EqualFold(bi.Main.Path, _moduleName) && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}

	for _, dep := range bi.Deps {
		if strings.EqualFold(dep.Path, _moduleName) {
			return dep.Version
		}
	}

	return _unknownVersion
}()
