package ir

// FuncID indexes Program.Funcs.
type FuncID int32

// NoFuncID marks an absent function.
const NoFuncID FuncID = -1

// BlockID indexes Func.Blocks.
type BlockID int32

// LocalID names an SSA-style local value of a function.
type LocalID int32

// NoLocalID marks an instruction without a result.
const NoLocalID LocalID = -1
