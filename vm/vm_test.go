package vm_test

import (
	"fmt"
	"testing"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/bytelox/bytelox/vm"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func init() { logrus.SetLevel(logrus.DebugLevel) }

type TestPair struct{ input, output string }

func assertEval(t *testing.T, errSubstr string, pairs ...TestPair) {
	t.Helper()
	t.Parallel()
	vm_ := vm.NewVM()
	for _, pair := range pairs {
		val, err := vm_.Interpret(pair.input + "\n")
		switch {
		case errSubstr == "":
			assert.Nil(t, err)
		case err != nil:
			assert.ErrorContains(t, err, errSubstr)
			return
		}
		valStr := fmt.Sprintf("%s", val)
		assert.Equal(t, pair.output, valStr)
	}
	assert.Empty(t, errSubstr, "a successful test must have an empty errSubStr")
}

func TestCalculator(t *testing.T) {
	assertEval(t, "", []TestPair{
		{"1 + 2", "3"},
		{"2 +2", "4"},
		{"(-1 + 2) * 3 - -4", "7"},
		{"11.4 + 5.14 / 19198.10", "11.400267734827926"},
		{"-6 *(-4+ -3) == 6*4 + 2  *((((9))))", "true"},
		{
			heredoc.Doc(`
				4/1 - 4/3 + 4/5 - 4/7 + 4/9 - 4/11
					+ 4/13 - 4/15 + 4/17 - 4/19 + 4/21 - 4/23
			`),
			"3.058402765927333",
		},
		{
			heredoc.Doc(`
				3
					+ 4/(2*3*4)
					- 4/(4*5*6)
					+ 4/(6*7*8)
					- 4/(8*9*10)
					+ 4/(10*11*12)
					- 4/(12*13*14)
			`),
			"3.1408813408813407",
		},
	}...)
}

func TestComparison(t *testing.T) {
	assertEval(t, "", []TestPair{
		{"!(5 - 4 > 3 * 2 == !nil)", "true"},
		{"true == !false", "true"},
		{"1 < 2", "true"},
		{"2 <= 2", "true"},
		{"2 > 2", "false"},
		{"3 >= 2", "true"},
		{"1 != 2", "true"},
	}...)
}

func TestEquality(t *testing.T) {
	assertEval(t, "", []TestPair{
		{"nil == nil", "true"},
		{"nil == false", "false"},
		{"true == 1", "false"},
		{"0 == nil", "false"},
		{"1 + 2 == 3", "true"},
	}...)
}

func TestTruthiness(t *testing.T) {
	assertEval(t, "", []TestPair{
		{"!nil", "true"},
		{"!false", "true"},
		{"!true", "false"},
		{"!0", "false"},
		{"!!nil", "false"},
	}...)
}

func TestUnaryNesting(t *testing.T) {
	assertEval(t, "", []TestPair{
		{"--1", "1"},
		{"---1", "-1"},
		{"-(1 + 2)", "-3"},
	}...)
}

func TestComments(t *testing.T) {
	assertEval(t, "", []TestPair{
		{"1 + 2 // the rest is ignored", "3"},
		{"// a leading comment\n1 + 2", "3"},
	}...)
}

func TestAddTypeError(t *testing.T) {
	assertEval(t, "Operands must be numbers.\n[line 1] in script", []TestPair{
		{"1 + true", ""},
	}...)
}

func TestCompareTypeError(t *testing.T) {
	assertEval(t, "Operands must be numbers.\n[line 1] in script", []TestPair{
		{"nil > 1", ""},
	}...)
}

func TestTypeErrorLine(t *testing.T) {
	assertEval(t, "[line 2] in script", []TestPair{
		{"1 +\nnil", ""},
	}...)
}

func TestNegateTypeError(t *testing.T) {
	assertEval(t, "Operand must be a number.\n[line 1] in script", []TestPair{
		{"-nil", ""},
	}...)
}

// assertEval appends a newline to every input, so the end-of-input token
// sits on line 2 here (TestCompileErrorAtEnd covers the one-line source).
func TestUnmatchedParen(t *testing.T) {
	assertEval(t, "[line 2] Error at end: Expect ')' after expression.", []TestPair{
		{"(1 + 2", ""},
	}...)
}

func TestExpectExpression(t *testing.T) {
	assertEval(t, "[line 1] Error at '*': Expect expression.", []TestPair{
		{"1 + * 2", ""},
	}...)
}

func TestTrailingTokens(t *testing.T) {
	assertEval(t, "Error at '2': Expect end of expression.", []TestPair{
		{"1 2", ""},
	}...)
}

func TestUnterminatedString(t *testing.T) {
	assertEval(t, "[line 2] Error: Unterminated string.", []TestPair{
		{`"abc`, ""},
	}...)
}

func TestUnexpectedCharacter(t *testing.T) {
	assertEval(t, "Error: Unexpected character.", []TestPair{
		{"1 + @", ""},
	}...)
}

// Statements belong to a later stage of the language; their keywords carry
// no parselets yet.
func TestStatementsUnsupported(t *testing.T) {
	assertEval(t, "Expect expression.", []TestPair{
		{"print 1", ""},
	}...)
}
