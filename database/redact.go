package database

import (
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap/zapcore"
)

// RedactURL masks password of an absolute URL.
//
// Values that do not parse as absolute URL are returned as is.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return raw
	}

	return u.Redacted()
}

// Redacted renders all fields with credentials removed from URL.
func (c ModuleConfig) Redacted() string {
	b := strings.Builder{}

	b.WriteString("database.ModuleConfig{url: ")
	b.WriteString(strconv.Quote(RedactURL(c.URL)))
	b.WriteString(", max_connections: ")
	b.WriteString(strconv.FormatUint(uint64(c.MaxConnections), 10))
	b.WriteString(", min_connections: ")
	b.WriteString(strconv.FormatUint(uint64(c.MinConnections), 10))
	b.WriteString(", connect_timeout_sec: ")
	b.WriteString(c.ConnectTimeoutSec.String())
	b.WriteString(", idle_timeout_sec: ")
	b.WriteString(c.IdleTimeoutSec.String())
	b.WriteString(", compatible_type: ")
	b.WriteString(c.CompatibleType.String())
	b.WriteString("}")

	return b.String()
}

// String is an alias of Redacted so that fmt verbs never print raw URL.
func (c ModuleConfig) String() string {
	return c.Redacted()
}

// GoString is an alias of Redacted for %#v verb.
func (c ModuleConfig) GoString() string {
	return c.Redacted()
}

// MarshalLogObject implements zapcore.ObjectMarshaler with redacted URL.
func (c ModuleConfig) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("url", RedactURL(c.URL))
	enc.AddUint32("max_connections", c.MaxConnections)
	enc.AddUint32("min_connections", c.MinConnections)

	for _, f := range []struct {
		key string
		val Seconds
	}{
		{key: "connect_timeout_sec", val: c.ConnectTimeoutSec},
		{key: "idle_timeout_sec", val: c.IdleTimeoutSec},
	} {
		if f.val.Valid {
			enc.AddUint64(f.key, f.val.Value)
		} else if err := enc.AddReflected(f.key, nil); err != nil {
			return err
		}
	}

	enc.AddString("compatible_type", c.CompatibleType.String())

	return nil
}
