// Completion: 100% - Instruction node complete
package lir

import (
	"fmt"
	"strings"

	"github.com/twitchyliquid64/golang-asm/obj"
)

// Form is the operand shape of an emitted instruction
type Form int

const (
	FormMove             Form = iota // result := input (register, stack or constant)
	FormM                            // result := op input, one operand
	FormRM                           // result := op input, source may be memory
	FormMR                           // result := op input, register moved out (MOVD xmm -> gpr)
	FormConst                        // result := input op imm
	FormTwoOp                        // result := a; result op= b
	FormCommutativeTwoOp             // as FormTwoOp, inputs may be swapped by the allocator
	FormThreeOp                      // result := a op b, VEX encoded
	FormCommutativeThreeOp           // as FormThreeOp, inputs may be swapped
	FormDataTwoOp                    // result := a; result op= [data constant]
	FormDataThreeOp                  // result := a op [data constant], VEX encoded
	FormRMI                          // result := op input, imm (IMUL3, ROUNDSS)
	FormShiftOne                     // result := input shifted by one position
	FormShiftCL                      // result := input shifted by CL
	FormMulDiv                       // fixed RDX:RAX multiply or divide
	FormSignExtend                   // RDX:RAX := sign extend RAX (CDQ/CQO)
	FormClear                        // register := 0
	FormMemoryLoad                   // result := op [address]
	FormMemoryTwoOp                  // result := a; result op= [address]
	FormMemoryThreeOp                // result := a op [address], VEX encoded
	FormMemoryStore                  // [address] := input
	FormMemoryConst                  // [address] := imm
	FormMemorySymbol                 // [address] := relocatable imm32
	FormCompare                      // flags := a cmp b
	FormCompareConst                 // flags := a cmp imm
	FormCompareSymbol                // flags := a cmp relocatable imm32
	FormCompareData                  // flags := a cmp [data constant]
	FormFPRem                        // x87 FPREM loop
	FormIntrinsic                    // multi-instruction math stub
)

var formNames = [...]string{
	FormMove:               "move",
	FormM:                  "m",
	FormRM:                 "rm",
	FormMR:                 "mr",
	FormConst:              "const",
	FormTwoOp:              "two",
	FormCommutativeTwoOp:   "two-c",
	FormThreeOp:            "three",
	FormCommutativeThreeOp: "three-c",
	FormDataTwoOp:          "data-two",
	FormDataThreeOp:        "data-three",
	FormRMI:                "rmi",
	FormShiftOne:           "shift-1",
	FormShiftCL:            "shift-cl",
	FormMulDiv:             "muldiv",
	FormSignExtend:         "sign-extend",
	FormClear:              "clear",
	FormMemoryLoad:         "mem-load",
	FormMemoryTwoOp:        "mem-two",
	FormMemoryThreeOp:      "mem-three",
	FormMemoryStore:        "mem-store",
	FormMemoryConst:        "mem-const",
	FormMemorySymbol:       "mem-symbol",
	FormCompare:            "cmp",
	FormCompareConst:       "cmp-const",
	FormCompareSymbol:      "cmp-symbol",
	FormCompareData:        "cmp-data",
	FormFPRem:              "fprem",
	FormIntrinsic:          "intrinsic",
}

func (f Form) String() string {
	if int(f) >= 0 && int(f) < len(formNames) {
		return formNames[f]
	}
	return fmt.Sprintf("form_%d", int(f))
}

// Instr is one emitted machine instruction. It is created by the lowering
// layer, appended to a Block and not changed afterwards.
type Instr struct {
	Op        obj.As // opcode (x86.A*), obj.AXXX for intrinsics
	Intrinsic string // name of the math stub for FormIntrinsic
	Form      Form
	Size      OperandSize

	// Result is the single declared output, nil for stores, compares and
	// other instructions that only have side effects.
	Result Value
	// Fixed lists the physical registers the instruction defines besides
	// Result (RAX/RDX for multiply, divide and CDQ).
	Fixed  []RegisterValue
	Inputs []Value

	Imm      int64
	HasImm   bool
	ImmWidth int // encoded immediate width in bytes

	Data  *Constant // data section operand
	Align int       // alignment of Data in bytes

	Address *Address
	State   *FrameState
	Temps   []Value // scratch slots owned by the instruction
}

// Mnemonic returns the opcode name
func (i *Instr) Mnemonic() string {
	if i.Form == FormIntrinsic || i.Op == obj.AXXX {
		return i.Intrinsic
	}
	return i.Op.String()
}

// DefinesFlagsOnly reports whether the instruction has no register output
func (i *Instr) DefinesFlagsOnly() bool {
	switch i.Form {
	case FormCompare, FormCompareConst, FormCompareSymbol, FormCompareData:
		return true
	}
	return false
}

func (i *Instr) String() string {
	var sb strings.Builder
	if i.Result != nil {
		sb.WriteString(i.Result.String())
		sb.WriteString(" = ")
	}
	sb.WriteString(i.Mnemonic())
	sb.WriteString(".")
	sb.WriteString(i.Size.String())

	var operands []string
	for _, in := range i.Inputs {
		operands = append(operands, in.String())
	}
	if i.Address != nil {
		operands = append(operands, i.Address.String())
	}
	if i.HasImm {
		operands = append(operands, fmt.Sprintf("$%d", i.Imm))
	}
	if i.Data != nil {
		if i.Data.IsSymbolic() {
			operands = append(operands, fmt.Sprintf("data(%s, align %d)", i.Data, i.Align))
		} else {
			operands = append(operands, fmt.Sprintf("data(%#x, align %d)", i.Data.RawBits(), i.Align))
		}
	}
	if len(operands) > 0 {
		sb.WriteString(" ")
		sb.WriteString(strings.Join(operands, ", "))
	}
	if len(i.Fixed) > 0 {
		var defs []string
		for _, r := range i.Fixed {
			defs = append(defs, r.String())
		}
		sb.WriteString(" defs{" + strings.Join(defs, ", ") + "}")
	}
	if len(i.Temps) > 0 {
		var temps []string
		for _, t := range i.Temps {
			temps = append(temps, t.String())
		}
		sb.WriteString(" temps{" + strings.Join(temps, ", ") + "}")
	}
	if i.State != nil {
		sb.WriteString(" ")
		sb.WriteString(i.State.String())
	}
	sb.WriteString("  ; ")
	sb.WriteString(i.Form.String())
	return sb.String()
}
