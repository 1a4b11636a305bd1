// Package tes4 implements the typed records of the hierarchical TES4 layout.
//
// Records are identified by their EDID (editor ID) subrecord. Text
// subrecords of localized files hold string table IDs that are resolved
// through the reader's codec.StringTable.
package tes4
