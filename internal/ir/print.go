package ir

import (
	"fmt"
	"io"
	"strings"
)

// DumpProgram writes a human-readable representation of a program.
func DumpProgram(w io.Writer, p *Program) error {
	if w == nil || p == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "funcs=%d\n", len(p.Funcs)); err != nil {
		return err
	}
	for _, f := range p.Funcs {
		if err := DumpFunc(w, p, f); err != nil {
			return err
		}
	}
	return nil
}

// DumpFunc writes one function.
func DumpFunc(w io.Writer, p *Program, f *Func) error {
	if w == nil || f == nil {
		return nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "\nfn %s stage=%s linkage=%s", f.Name, f.Stage, f.Linkage)
	if f.Dispatch {
		sb.WriteString(" dispatch")
	}
	if f.Reach != 0 {
		fmt.Fprintf(&sb, " reach=%s", f.Reach)
	}
	sb.WriteString(":\n")
	if len(f.Params) > 0 {
		parts := make([]string, len(f.Params))
		for i, prm := range f.Params {
			parts[i] = prm.String()
		}
		fmt.Fprintf(&sb, "  params: %s\n", strings.Join(parts, ", "))
	}
	for i := range f.Blocks {
		bb := &f.Blocks[i]
		fmt.Fprintf(&sb, "  bb%d:\n", bb.ID)
		for j := range bb.Instrs {
			fmt.Fprintf(&sb, "    %s\n", formatInstr(p, &bb.Instrs[j]))
		}
		fmt.Fprintf(&sb, "    %s\n", formatTerm(bb.Term))
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func formatOperand(o Operand) string {
	switch o.Kind {
	case OperandLocal:
		return fmt.Sprintf("l%d", o.Local)
	case OperandConst:
		return fmt.Sprintf("%d", o.Const)
	default:
		return "_"
	}
}

func formatOperands(ops []Operand) string {
	parts := make([]string, len(ops))
	for i, o := range ops {
		parts[i] = formatOperand(o)
	}
	return strings.Join(parts, ", ")
}

func formatIndex(o Operand) string {
	if o.IsNone() {
		return ""
	}
	return "[" + formatOperand(o) + "]"
}

func formatInstr(p *Program, in *Instr) string {
	dst := ""
	if in.Dst != NoLocalID {
		dst = fmt.Sprintf("l%d = ", in.Dst)
	}
	switch in.Kind {
	case InstrLoad:
		return fmt.Sprintf("%sload %s+%d x%d%s", dst, in.Load.Ref, in.Load.WordOffset, in.Load.Words, formatIndex(in.Load.Index))
	case InstrAddr:
		return fmt.Sprintf("%saddr %s%s", dst, in.Addr.Ref, formatIndex(in.Addr.Index))
	case InstrSpecial:
		return fmt.Sprintf("%sspecial %s", dst, in.Special.Value)
	case InstrCall:
		name := fmt.Sprintf("#%d", in.Call.Callee)
		if f := p.Func(in.Call.Callee); f != nil {
			name = f.Name
		}
		s := fmt.Sprintf("%scall %s(%s)", dst, name, formatOperands(in.Call.Args))
		if len(in.Call.LayoutArgs) > 0 {
			s += " layout(" + formatOperands(in.Call.LayoutArgs) + ")"
		}
		return s
	case InstrOp:
		return fmt.Sprintf("%s%s(%s)", dst, in.Op.Name, formatOperands(in.Op.Args))
	case InstrArgs:
		parts := make([]string, len(in.Args.Params))
		for i, r := range in.Args.Params {
			parts[i] = fmt.Sprintf("r%d", r)
		}
		return fmt.Sprintf("%sargs %s", dst, strings.Join(parts, ","))
	case InstrLoadSpill:
		return fmt.Sprintf("%sload_spill %s+%d x%d%s", dst, formatOperand(in.LoadSpill.Ptr), in.LoadSpill.ByteOffset, in.LoadSpill.Words, formatIndex(in.LoadSpill.Index))
	case InstrAddrSpill:
		return fmt.Sprintf("%saddr_spill %s+%d%s", dst, formatOperand(in.AddrSpill.Ptr), in.AddrSpill.ByteOffset, formatIndex(in.AddrSpill.Index))
	case InstrSpillTableAddr:
		return dst + "spill_table_addr"
	case InstrUndef:
		return dst + "undef"
	default:
		return fmt.Sprintf("%s<instr %d>", dst, in.Kind)
	}
}

func formatTerm(t Terminator) string {
	switch t.Kind {
	case TermReturn:
		if t.Value.IsNone() {
			return "return"
		}
		return "return " + formatOperand(t.Value)
	case TermGoto:
		return fmt.Sprintf("goto bb%d", t.Target)
	case TermIf:
		return fmt.Sprintf("if %s then bb%d else bb%d", formatOperand(t.Cond), t.Target, t.Else)
	default:
		return "<unterminated>"
	}
}
