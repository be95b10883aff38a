// Package engine implements the pure evaluation algorithm: given a flag
// definition and a request context, resolve the value the feature takes.
// Evaluation is total and deterministic; it never returns an error to the
// caller and never mutates anything it reads.
package engine

import (
	"github.com/TimurManjosov/flagcore/identity"
	"github.com/TimurManjosov/flagcore/rules"
)

// Context carries the request attributes targeting predicates match against.
// Build one with NewContext and the With* methods, then treat it as
// read-only: contexts may be shared across concurrent evaluations.
type Context struct {
	id identity.StableID

	locale      string
	hasLocale   bool
	platform    string
	hasPlatform bool
	version     rules.Version
	hasVersion  bool

	axes  map[string]string
	attrs map[string]any
}

// NewContext builds a context for the given cohort id.
func NewContext(id identity.StableID) *Context {
	return &Context{id: id}
}

// WithLocale sets the context's locale tag.
func (c *Context) WithLocale(locale string) *Context {
	c.locale, c.hasLocale = locale, true
	return c
}

// WithPlatform sets the context's platform tag.
func (c *Context) WithPlatform(platform string) *Context {
	c.platform, c.hasPlatform = platform, true
	return c
}

// WithVersion sets the context's semantic version.
func (c *Context) WithVersion(v rules.Version) *Context {
	c.version, c.hasVersion = v, true
	return c
}

// WithVersionString parses and sets a "major.minor.patch" version.
func (c *Context) WithVersionString(s string) (*Context, error) {
	v, err := rules.ParseVersion(s)
	if err != nil {
		return c, err
	}
	return c.WithVersion(v), nil
}

// WithAxis sets the context's value for a custom targeting axis.
func (c *Context) WithAxis(axis, value string) *Context {
	if c.axes == nil {
		c.axes = make(map[string]string)
	}
	c.axes[axis] = value
	return c
}

// WithAttribute adds one entry to the extension predicate input. Anything an
// extension consults must be materialised here before evaluation.
func (c *Context) WithAttribute(key string, value any) *Context {
	if c.attrs == nil {
		c.attrs = make(map[string]any)
	}
	c.attrs[key] = value
	return c
}

// WithAttributes adds all entries to the extension predicate input.
func (c *Context) WithAttributes(attrs map[string]any) *Context {
	for k, v := range attrs {
		c.WithAttribute(k, v)
	}
	return c
}

// StableID returns the cohort id.
func (c *Context) StableID() identity.StableID { return c.id }

// Locale returns the locale tag, if set.
func (c *Context) Locale() (string, bool) { return c.locale, c.hasLocale }

// Platform returns the platform tag, if set.
func (c *Context) Platform() (string, bool) { return c.platform, c.hasPlatform }

// Version returns the semantic version, if set.
func (c *Context) Version() (rules.Version, bool) { return c.version, c.hasVersion }

// AxisValue returns the context's value for a custom axis, if set.
func (c *Context) AxisValue(axis string) (string, bool) {
	v, ok := c.axes[axis]
	return v, ok
}

// AttributeMap assembles the extension predicate input: the declared
// attributes plus the built-in axes under "id", "locale", "platform" and
// "version" keys. A fresh map is built per call; contexts without extensions
// never pay for it.
func (c *Context) AttributeMap() map[string]any {
	m := make(map[string]any, len(c.attrs)+len(c.axes)+4)
	for k, v := range c.attrs {
		m[k] = v
	}
	for k, v := range c.axes {
		m[k] = v
	}
	if c.id != "" {
		m["id"] = string(c.id)
	}
	if c.hasLocale {
		m["locale"] = c.locale
	}
	if c.hasPlatform {
		m["platform"] = c.platform
	}
	if c.hasVersion {
		m["version"] = c.version.String()
	}
	return m
}

var _ rules.EvalContext = (*Context)(nil)
