package vm

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bytelox/bytelox/debug"
	e "github.com/bytelox/bytelox/errors"
	"github.com/chzyer/readline"
	"github.com/sirupsen/logrus"
)

// StackMax bounds the value stack. Each instruction has a static stack
// effect and emission keeps expression programs well under this depth.
const StackMax = 256

type VM struct {
	chunk *Chunk
	ip    int
	stack [StackMax]Value
	top   int
}

func NewVM() *VM { return &VM{} }

func (vm *VM) resetStack() { vm.top = 0 }

func (vm *VM) push(val Value) {
	vm.stack[vm.top] = val
	vm.top++
}

func (vm *VM) pop() Value {
	vm.top--
	return vm.stack[vm.top]
}

// peek returns the value dist slots below the top without popping it.
func (vm *VM) peek(dist int) Value { return vm.stack[vm.top-1-dist] }

// REPL reads one line at a time, interprets it and loops. End of input,
// an interrupt or a line beginning with "exit" terminates. Diagnostics go
// to stderr and do not end the session.
func (vm *VM) REPL() error {
	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		switch {
		case err == io.EOF || err == readline.ErrInterrupt:
			return nil
		case err != nil:
			return err
		}
		if strings.HasPrefix(line, "exit") {
			return nil
		}
		if _, err := vm.Interpret(line + "\n"); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

// Interpret compiles src and runs the resulting chunk. The chunk reference
// is dropped on every exit path. The final value is both printed by the
// return instruction and handed back to the caller.
func (vm *VM) Interpret(src string) (Value, error) {
	chunk, err := NewParser().Compile(src)
	if err != nil {
		return nil, err
	}

	vm.chunk = chunk
	vm.ip = 0
	vm.resetStack()
	defer func() { vm.chunk = nil }()
	return vm.run()
}

func (vm *VM) run() (Value, error) {
	readByte := func() (res byte) {
		res = vm.chunk.code[vm.ip]
		vm.ip++
		return
	}

	// The byte preceding the IP is the instruction being executed.
	runtimeError := func(reason string) error {
		return &e.RuntimeError{Line: vm.chunk.lines[vm.ip-1], Reason: reason}
	}

	// Operands are type-checked by peeking so a failure leaves the stack
	// intact. The first-pushed value is the LHS.
	binOp := func(op func(v, w Value) (Value, bool)) error {
		if !isNum(vm.peek(0)) || !isNum(vm.peek(1)) {
			return runtimeError("Operands must be numbers.")
		}
		rhs := vm.pop()
		res, _ := op(vm.pop(), rhs)
		vm.push(res)
		return nil
	}

	for {
		if debug.DEBUG {
			logrus.Debugln(vm.stackTrace())
			instDump, _ := vm.chunk.DisassembleInst(vm.ip)
			logrus.Debugln(instDump)
		}

		switch inst := OpCode(readByte()); inst {
		case OpConst:
			vm.push(vm.chunk.consts[readByte()])
		case OpNil:
			vm.push(VNil{})
		case OpTrue:
			vm.push(VBool(true))
		case OpFalse:
			vm.push(VBool(false))
		case OpEqual:
			rhs := vm.pop()
			vm.push(VEq(vm.pop(), rhs))
		case OpGreater:
			if err := binOp(VGreater); err != nil {
				return nil, err
			}
		case OpLess:
			if err := binOp(VLess); err != nil {
				return nil, err
			}
		case OpAdd:
			if err := binOp(VAdd); err != nil {
				return nil, err
			}
		case OpSub:
			if err := binOp(VSub); err != nil {
				return nil, err
			}
		case OpMul:
			if err := binOp(VMul); err != nil {
				return nil, err
			}
		case OpDiv:
			if err := binOp(VDiv); err != nil {
				return nil, err
			}
		case OpNot:
			vm.push(!VTruthy(vm.pop()))
		case OpNeg:
			if !isNum(vm.peek(0)) {
				return nil, runtimeError("Operand must be a number.")
			}
			res, _ := VNeg(vm.pop())
			vm.push(res)
		case OpReturn:
			res := vm.pop()
			debug.AssertEq(0, vm.top)
			fmt.Println(res)
			return res, nil
		default:
			return nil, runtimeError(fmt.Sprintf("Unknown opcode %d.", inst))
		}
	}
}

func (vm *VM) stackTrace() string {
	res := "          "
	for _, slot := range vm.stack[:vm.top] {
		res += fmt.Sprintf("[ %s ]", slot)
	}
	return res
}
