package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Configuration input
	CfgInfo           Code = 1000
	CfgParse          Code = 1001
	CfgUnknownKey     Code = 1002
	CfgUnknownTarget  Code = 1003
	CfgBadStage       Code = 1004
	CfgBadValue       Code = 1005
	CfgDuplicateFunc  Code = 1006
	CfgUnknownCallee  Code = 1007
	CfgBadTarget      Code = 1008
	CfgInvalidProgram Code = 1009

	// Resource tree and references
	TreInfo               Code = 2000
	TreMalformed          Code = 2001
	TreUnknownReference   Code = 2002
	TreTableReference     Code = 2003
	TreReadOutOfRange     Code = 2004
	TreUnknownSpecial     Code = 2005
	TreSpillTableTooLarge Code = 2006

	// Call graph
	CgrInfo                     Code = 3000
	CgrCycle                    Code = 3001
	CgrUnknownCallee            Code = 3002
	CgrInconsistentLibraryUsage Code = 3003
	CgrUnreachableFunction      Code = 3004
	CgrLibraryOutsideReach      Code = 3005

	// Layout planning
	PlnInfo                  Code = 4000
	PlnConfigurationOverflow Code = 4001
	PlnUnspilled             Code = 4002
	PlnSpilled               Code = 4003
	PlnInvariant             Code = 4004

	// Signature rewriting
	RwrInfo        Code = 5000
	RwrMissingPlan Code = 5001

	// Metadata
	MtaInfo       Code = 6000
	MtaEncode     Code = 6001
	MtaBadVersion Code = 6002
	MtaCorrupt    Code = 6003

	// I/O
	IOLoadFileError Code = 7001
	IOWriteError    Code = 7002
)

var (
	codeDescription = map[Code]string{
		UnknownCode: "Unknown error",

		CfgInfo:           "Configuration information",
		CfgParse:          "Cannot parse pipeline description",
		CfgUnknownKey:     "Unknown key in pipeline description",
		CfgUnknownTarget:  "Unknown hardware target",
		CfgBadStage:       "Unknown stage kind",
		CfgBadValue:       "Invalid value",
		CfgDuplicateFunc:  "Duplicate function",
		CfgUnknownCallee:  "Call to undeclared function",
		CfgBadTarget:      "Inconsistent target profile",
		CfgInvalidProgram: "Invalid program",

		TreInfo:               "Resource tree information",
		TreMalformed:          "Malformed resource tree",
		TreUnknownReference:   "Reference to undeclared resource",
		TreTableReference:     "Reference to descriptor table instead of entry",
		TreReadOutOfRange:     "Read past the end of resource",
		TreUnknownSpecial:     "Unknown special value",
		TreSpillTableTooLarge: "Spill table too large",

		CgrInfo:                     "Call graph information",
		CgrCycle:                    "Call graph cycle",
		CgrUnknownCallee:            "Call to unknown function",
		CgrInconsistentLibraryUsage: "Library uses fewer registers than its shape",
		CgrUnreachableFunction:      "Function unreachable from any stage",
		CgrLibraryOutsideReach:      "Library reads data outside its reach",

		PlnInfo:                  "Layout information",
		PlnConfigurationOverflow: "Stage registers exceed hardware budget",
		PlnUnspilled:             "Spilled entries promoted to registers",
		PlnSpilled:               "Entries spilled to memory",
		PlnInvariant:             "Layout invariant violated",

		RwrInfo:        "Rewrite information",
		RwrMissingPlan: "Function has no layout plan",

		MtaInfo:       "Metadata information",
		MtaEncode:     "Cannot encode metadata",
		MtaBadVersion: "Unsupported metadata version",
		MtaCorrupt:    "Corrupt metadata",

		IOLoadFileError: "I/O load file error",
		IOWriteError:    "I/O write error",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("CFG%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("TRE%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("CGR%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("PLN%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("RWR%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("MTA%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
