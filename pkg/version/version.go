package version

import (
	"strconv"
	"time"
)

// Populated at build time using -ldflags "-X github.com/nais/release/pkg/version.version=..."
var (
	version   = "unknown"
	buildTime = "0"
)

func Version() string {
	return version
}

// BuildTime returns the build timestamp, which is set as UNIX epoch seconds.
func BuildTime() (time.Time, error) {
	epoch, err := strconv.ParseInt(buildTime, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(epoch, 0), nil
}
