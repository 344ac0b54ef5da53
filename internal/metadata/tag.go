package metadata

import (
	"fmt"

	"pipelayout/internal/restree"
)

// Register map tags. A leaf word is tagged with its dword offset in the spill
// table; specials carry their enum value above TagSpecialBase.
const (
	TagSpecialBase uint32 = 0x10000000
	TagSpillTable  uint32 = 0x1000001F
	TagPadding     uint32 = 0xFFFFFFFF

	// NoSpill is the SpillThreshold of a stage that reads nothing from memory.
	NoSpill uint32 = 0xFFFFFFFF
)

// TagKind classifies a register map tag.
type TagKind uint8

const (
	TagKindLeaf TagKind = iota + 1
	TagKindSpecial
	TagKindSpillTable
	TagKindPadding
	TagKindInvalid
)

// LeafTag tags a register holding spill table dword off.
func LeafTag(off uint32) uint32 {
	return off
}

// SpecialTag tags a register holding v. Both words of a two-word value carry
// the same tag.
func SpecialTag(v restree.SpecialValue) uint32 {
	return TagSpecialBase | uint32(v)
}

// ClassifyTag splits a tag into its kind and payload.
func ClassifyTag(tag uint32) (TagKind, uint32) {
	switch {
	case tag == TagPadding:
		return TagKindPadding, 0
	case tag == TagSpillTable:
		return TagKindSpillTable, 0
	case tag < TagSpecialBase:
		return TagKindLeaf, tag
	case tag&^TagSpecialBase < 0x1F && restree.SpecialValue(tag&^TagSpecialBase).IsValid():
		return TagKindSpecial, tag &^ TagSpecialBase
	}
	return TagKindInvalid, tag
}

// FormatTag renders a tag without resolving leaf offsets.
func FormatTag(tag uint32) string {
	kind, payload := ClassifyTag(tag)
	switch kind {
	case TagKindLeaf:
		return fmt.Sprintf("dword %d", payload)
	case TagKindSpecial:
		return restree.SpecialValue(payload).String()
	case TagKindSpillTable:
		return "spill_table"
	case TagKindPadding:
		return "padding"
	}
	return fmt.Sprintf("invalid(%#x)", tag)
}
