package contracts

import "strings"

type Ext string

const (
	ExtDDS Ext = ".dds"
	ExtPNG Ext = ".png"
)

// Label is the upper-case format name used in user-facing messages.
func (e Ext) Label() string {
	return strings.ToUpper(strings.TrimPrefix(string(e), "."))
}

// Matches reports whether name ends with e. The match is case-sensitive, so
// A.DDS is skipped and never collides with a.dds on the output side.
func (e Ext) Matches(name string) bool {
	return strings.HasSuffix(name, string(e))
}
