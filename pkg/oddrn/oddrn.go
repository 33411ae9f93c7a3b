// Package oddrn builds the resource names reference adapters attach to the
// entities they discover, e.g.
//
//	//postgresql/host/db.local/databases/sales/schemas/public/tables/orders
package oddrn

import (
	"strings"
)

// Generator accumulates the server part of an oddrn for one data source.
type Generator struct {
	source     string
	serverKind string
	server     string
}

// New returns a generator for source keyed by hostname.
func New(source, host string) *Generator {
	return &Generator{source: source, serverKind: "host", server: host}
}

// NewCloud returns a generator for cloud sources keyed by a named server
// part such as "cloud/aws" (e.g. s3).
func NewCloud(source, kind, server string) *Generator {
	return &Generator{source: source, serverKind: kind, server: server}
}

// Path appends key/value path pairs to the server part. A trailing key with
// no value is ignored.
func (g *Generator) Path(pairs ...string) string {
	var b strings.Builder
	b.WriteString("//")
	b.WriteString(g.source)
	if g.serverKind != "" {
		b.WriteByte('/')
		b.WriteString(g.serverKind)
	}
	if g.server != "" {
		b.WriteByte('/')
		b.WriteString(escape(g.server))
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteByte('/')
		b.WriteString(pairs[i])
		b.WriteByte('/')
		b.WriteString(escape(pairs[i+1]))
	}
	return b.String()
}

func escape(s string) string {
	return strings.ReplaceAll(strings.Trim(s, "/"), "/", "\\\\")
}
