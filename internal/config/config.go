// Package config loads TOML pipeline descriptions: the target, the resource
// tree and the functions of one pipeline.
package config

// File is the decoded form of a pipeline description.
type File struct {
	Name     string           `toml:"name"`
	Target   TargetConfig     `toml:"target"`
	Stages   []StageConfig    `toml:"stage"`
	Sets     []SetConfig      `toml:"set"`
	Push     []PushConfig     `toml:"push_constant"`
	Function []FunctionConfig `toml:"function"`
}

// TargetConfig selects a built-in target.
type TargetConfig struct {
	Name   string `toml:"name"`
	Budget int    `toml:"budget"`
}

// StageConfig overrides one stage profile of the target.
type StageConfig struct {
	Stage   string        `toml:"stage"`
	Budget  int           `toml:"budget"`
	Fixed   []FixedConfig `toml:"fixed"`
	MayNeed []string      `toml:"may_need"`
}

// FixedConfig pins a special value to a slot.
type FixedConfig struct {
	Value string `toml:"value"`
	Slot  uint32 `toml:"slot"`
}

// SetConfig is one descriptor set.
type SetConfig struct {
	Index    uint32          `toml:"index"`
	Bindings []BindingConfig `toml:"binding"`
}

// BindingConfig is a resource node. Tables list children.
type BindingConfig struct {
	Binding  uint32          `toml:"binding"`
	Kind     string          `toml:"kind"`
	Words    uint32          `toml:"words"`
	Stages   []string        `toml:"stages"`
	Root     bool            `toml:"root"`
	Children []BindingConfig `toml:"child"`
}

// PushConfig is one push-constant range.
type PushConfig struct {
	Words  uint32   `toml:"words"`
	Stages []string `toml:"stages"`
}

// FunctionConfig describes a straight-line function body.
type FunctionConfig struct {
	Name     string     `toml:"name"`
	Stage    string     `toml:"stage"`
	Dispatch bool       `toml:"dispatch"`
	External bool       `toml:"external"`
	Reach    []string   `toml:"reach"`
	Ops      []OpConfig `toml:"op"`
}

// OpConfig is one instruction. Kind is load, addr, special, call or op.
type OpConfig struct {
	Kind    string `toml:"kind"`
	Ref     string `toml:"ref"`
	Offset  uint32 `toml:"offset"`
	Words   uint32 `toml:"words"`
	Dynamic bool   `toml:"dynamic"`
	Index   *int64 `toml:"index"`
	Special string `toml:"special"`
	Callee  string `toml:"callee"`
	Name    string `toml:"name"`
}
