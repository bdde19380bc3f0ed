// Package buildinfo holds build-time metadata injected at startup. It is kept
// apart from user configuration.
package buildinfo

import "fmt"

// UnknownValue is reported for metadata that was not injected at build time
const UnknownValue = "unknown"

// Context contains build-time metadata that is not user-configurable
type Context struct {
	version   string
	buildDate string
}

// NewContext returns build metadata; empty values report as unknown
func NewContext(version, buildDate string) *Context {
	return &Context{version: version, buildDate: buildDate}
}

// Version returns the build version string
func (c *Context) Version() string {
	if c == nil || c.version == "" {
		return UnknownValue
	}
	return c.version
}

// BuildDate returns the build date string
func (c *Context) BuildDate() string {
	if c == nil || c.buildDate == "" {
		return UnknownValue
	}
	return c.buildDate
}

// Release returns the release name used for error reports
func (c *Context) Release() string {
	return fmt.Sprintf("pcmring@%s", c.Version())
}

// String formats the metadata for --version output
func (c *Context) String() string {
	return fmt.Sprintf("pcmring %s (built %s)", c.Version(), c.BuildDate())
}
