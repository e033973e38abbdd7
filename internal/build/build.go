package build

// Name is used in User-Agent headers and certificate subjects.
const Name = "tls-probe"

// Version is overridden at link time with -ldflags "-X github.com/mt-inside/tls-probe/internal/build.Version=..."
var Version = "0.0.0-dev"

func UserAgent() string {
	return Name + "/" + Version
}
