// Package tes3 implements the typed records of the flat TES3 layout.
//
// Every record is identified by its NAME subrecord. Records not listed in
// Registry are read as records.Generic.
package tes3
