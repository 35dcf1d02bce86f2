// Package domain holds the value types shared by every stage of a report run:
// flow rows and their status, the reference tables read next to them, and the
// action items the prioritizer emits.
//
// Nothing here performs I/O or imports another internal package. Small pure
// helpers on the types (status parsing, date truncation) live next to them.
package domain
