package generator

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shundroid/three-blockly/blockxml"
)

type (
	exprFunc func(p *pass, b *blockxml.Node) (string, Order, error)
	stmtFunc func(p *pass, b *blockxml.Node) (string, error)
)

var (
	expressions map[string]exprFunc
	statements  map[string]stmtFunc
)

func init() {
	expressions = map[string]exprFunc{
		"text":                  genText,
		"text_join":             genTextJoin,
		"text_length":           genTextLength,
		"text_prompt_ext":       genTextPrompt,
		"math_number":           genMathNumber,
		"math_arithmetic":       genMathArithmetic,
		"math_single":           genMathSingle,
		"math_modulo":           genMathModulo,
		"math_random_int":       genMathRandomInt,
		"colour_picker":         genColourPicker,
		"colour_random":         genColourRandom,
		"logic_boolean":         genLogicBoolean,
		"logic_null":            genLogicNull,
		"logic_negate":          genLogicNegate,
		"logic_compare":         genLogicCompare,
		"logic_operation":       genLogicOperation,
		"logic_ternary":         genLogicTernary,
		"variables_get":         genVariablesGet,
		"procedures_callreturn": genProcedureCallReturn,
	}
	statements = map[string]stmtFunc{
		"text_print":               genTextPrint,
		"controls_if":              genControlsIf,
		"controls_repeat":          genControlsRepeat,
		"controls_repeat_ext":      genControlsRepeat,
		"controls_whileUntil":      genControlsWhileUntil,
		"controls_for":             genControlsFor,
		"controls_flow_statements": genControlsFlow,
		"variables_set":            genVariablesSet,
		"math_change":              genMathChange,
		"procedures_defnoreturn":   genProcedureDef,
		"procedures_defreturn":     genProcedureDef,
		"procedures_callnoreturn":  genProcedureCall,
		"procedures_ifreturn":      genProcedureIfReturn,
	}
}

// Supported reports whether a block type has a generator.
func Supported(typ string) bool {
	_, expr := expressions[typ]
	_, stmt := statements[typ]
	return expr || stmt
}

// Text.

func genText(p *pass, b *blockxml.Node) (string, Order, error) {
	return quote(fieldValue(b, "TEXT")), OrderAtomic, nil
}

func genTextPrint(p *pass, b *blockxml.Node) (string, error) {
	msg, err := p.valueToCode(b, "TEXT", OrderNone)
	if err != nil {
		return "", err
	}
	if msg == "" {
		msg = "''"
	}
	return "window.alert(" + msg + ");\n", nil
}

func genTextJoin(p *pass, b *blockxml.Node) (string, Order, error) {
	n := mutationInt(b, "items", 2)
	switch n {
	case 0:
		return "''", OrderAtomic, nil
	case 1:
		v, err := p.valueToCode(b, "ADD0", OrderNone)
		if err != nil {
			return "", OrderNone, err
		}
		if v == "" {
			v = "''"
		}
		return "String(" + v + ")", OrderFunctionCall, nil
	case 2:
		a, err := p.valueToCode(b, "ADD0", OrderNone)
		if err != nil {
			return "", OrderNone, err
		}
		c, err := p.valueToCode(b, "ADD1", OrderNone)
		if err != nil {
			return "", OrderNone, err
		}
		return "String(" + orDefault(a, "''") + ") + String(" + orDefault(c, "''") + ")", OrderAddition, nil
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		v, err := p.valueToCode(b, fmt.Sprintf("ADD%d", i), OrderComma)
		if err != nil {
			return "", OrderNone, err
		}
		parts[i] = orDefault(v, "''")
	}
	return "[" + strings.Join(parts, ", ") + "].join('')", OrderFunctionCall, nil
}

func genTextLength(p *pass, b *blockxml.Node) (string, Order, error) {
	v, err := p.valueToCode(b, "VALUE", OrderMember)
	if err != nil {
		return "", OrderNone, err
	}
	return orDefault(v, "''") + ".length", OrderMember, nil
}

func genTextPrompt(p *pass, b *blockxml.Node) (string, Order, error) {
	msg, err := p.valueToCode(b, "TEXT", OrderNone)
	if err != nil {
		return "", OrderNone, err
	}
	code := "window.prompt(" + orDefault(msg, "''") + ")"
	if fieldValue(b, "TYPE") == "NUMBER" {
		code = "Number(" + code + ")"
	}
	return code, OrderFunctionCall, nil
}

// Math.

func genMathNumber(p *pass, b *blockxml.Node) (string, Order, error) {
	raw := strings.TrimSpace(fieldValue(b, "NUM"))
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return "", OrderNone, fmt.Errorf("math_number: invalid value %q", raw)
	}
	code := strconv.FormatFloat(v, 'f', -1, 64)
	if v < 0 {
		return code, OrderUnaryNegation, nil
	}
	return code, OrderAtomic, nil
}

var arithmetic = map[string]struct {
	op    string
	order Order
}{
	"ADD":      {" + ", OrderAddition},
	"MINUS":    {" - ", OrderSubtraction},
	"MULTIPLY": {" * ", OrderMultiplication},
	"DIVIDE":   {" / ", OrderDivision},
	"POWER":    {"", OrderComma},
}

func genMathArithmetic(p *pass, b *blockxml.Node) (string, Order, error) {
	opName := fieldValue(b, "OP")
	op, ok := arithmetic[opName]
	if !ok {
		return "", OrderNone, fmt.Errorf("math_arithmetic: unknown operator %q", opName)
	}
	a, err := p.valueToCode(b, "A", op.order)
	if err != nil {
		return "", OrderNone, err
	}
	c, err := p.valueToCode(b, "B", op.order)
	if err != nil {
		return "", OrderNone, err
	}
	a, c = orDefault(a, "0"), orDefault(c, "0")
	if opName == "POWER" {
		return "Math.pow(" + a + ", " + c + ")", OrderFunctionCall, nil
	}
	return a + op.op + c, op.order, nil
}

func genMathSingle(p *pass, b *blockxml.Node) (string, Order, error) {
	op := fieldValue(b, "OP")
	if op == "NEG" {
		arg, err := p.valueToCode(b, "NUM", OrderUnaryNegation)
		if err != nil {
			return "", OrderNone, err
		}
		arg = orDefault(arg, "0")
		if strings.HasPrefix(arg, "-") {
			arg = " " + arg
		}
		return "-" + arg, OrderUnaryNegation, nil
	}
	fn, ok := map[string]string{
		"ROOT":  "Math.sqrt(%s)",
		"ABS":   "Math.abs(%s)",
		"LN":    "Math.log(%s)",
		"EXP":   "Math.exp(%s)",
		"POW10": "Math.pow(10, %s)",
	}[op]
	if !ok {
		return "", OrderNone, fmt.Errorf("math_single: unknown operator %q", op)
	}
	arg, err := p.valueToCode(b, "NUM", OrderNone)
	if err != nil {
		return "", OrderNone, err
	}
	return fmt.Sprintf(fn, orDefault(arg, "0")), OrderFunctionCall, nil
}

func genMathModulo(p *pass, b *blockxml.Node) (string, Order, error) {
	a, err := p.valueToCode(b, "DIVIDEND", OrderModulus)
	if err != nil {
		return "", OrderNone, err
	}
	c, err := p.valueToCode(b, "DIVISOR", OrderModulus)
	if err != nil {
		return "", OrderNone, err
	}
	return orDefault(a, "0") + " % " + orDefault(c, "0"), OrderModulus, nil
}

const mathRandomIntDef = `function mathRandomInt(a, b) {
  if (a > b) {
    // Swap a and b to ensure a is smaller.
    var c = a;
    a = b;
    b = c;
  }
  return Math.floor(Math.random() * (b - a + 1) + a);
}`

func genMathRandomInt(p *pass, b *blockxml.Node) (string, Order, error) {
	from, err := p.valueToCode(b, "FROM", OrderComma)
	if err != nil {
		return "", OrderNone, err
	}
	to, err := p.valueToCode(b, "TO", OrderComma)
	if err != nil {
		return "", OrderNone, err
	}
	fn := p.provide("mathRandomInt", mathRandomIntDef)
	return fn + "(" + orDefault(from, "0") + ", " + orDefault(to, "0") + ")", OrderFunctionCall, nil
}

func genMathChange(p *pass, b *blockxml.Node) (string, error) {
	delta, err := p.valueToCode(b, "DELTA", OrderAddition)
	if err != nil {
		return "", err
	}
	v := p.variable(b)
	return v + " = (typeof " + v + " === 'number' ? " + v + " : 0) + " + orDefault(delta, "0") + ";\n", nil
}

// Colour.

func genColourPicker(p *pass, b *blockxml.Node) (string, Order, error) {
	return quote(fieldValue(b, "COLOUR")), OrderAtomic, nil
}

const colourRandomDef = `function colourRandom() {
  var num = Math.floor(Math.random() * Math.pow(2, 24));
  return '#' + ('00000' + num.toString(16)).substr(-6);
}`

func genColourRandom(p *pass, b *blockxml.Node) (string, Order, error) {
	return p.provide("colourRandom", colourRandomDef) + "()", OrderFunctionCall, nil
}

// Logic.

func genLogicBoolean(p *pass, b *blockxml.Node) (string, Order, error) {
	if fieldValue(b, "BOOL") == "TRUE" {
		return "true", OrderAtomic, nil
	}
	return "false", OrderAtomic, nil
}

func genLogicNull(p *pass, b *blockxml.Node) (string, Order, error) {
	return "null", OrderAtomic, nil
}

func genLogicNegate(p *pass, b *blockxml.Node) (string, Order, error) {
	v, err := p.valueToCode(b, "BOOL", OrderLogicalNot)
	if err != nil {
		return "", OrderNone, err
	}
	return "!" + orDefault(v, "true"), OrderLogicalNot, nil
}

var comparisons = map[string]string{
	"EQ":  "==",
	"NEQ": "!=",
	"LT":  "<",
	"LTE": "<=",
	"GT":  ">",
	"GTE": ">=",
}

func genLogicCompare(p *pass, b *blockxml.Node) (string, Order, error) {
	opName := fieldValue(b, "OP")
	op, ok := comparisons[opName]
	if !ok {
		return "", OrderNone, fmt.Errorf("logic_compare: unknown operator %q", opName)
	}
	order := OrderRelational
	if op == "==" || op == "!=" {
		order = OrderEquality
	}
	a, err := p.valueToCode(b, "A", order)
	if err != nil {
		return "", OrderNone, err
	}
	c, err := p.valueToCode(b, "B", order)
	if err != nil {
		return "", OrderNone, err
	}
	return orDefault(a, "0") + " " + op + " " + orDefault(c, "0"), order, nil
}

func genLogicOperation(p *pass, b *blockxml.Node) (string, Order, error) {
	op, order := "&&", OrderLogicalAnd
	if fieldValue(b, "OP") == "OR" {
		op, order = "||", OrderLogicalOr
	}
	a, err := p.valueToCode(b, "A", order)
	if err != nil {
		return "", OrderNone, err
	}
	c, err := p.valueToCode(b, "B", order)
	if err != nil {
		return "", OrderNone, err
	}
	if a == "" && c == "" {
		a, c = "false", "false"
	} else {
		def := "false"
		if op == "&&" {
			def = "true"
		}
		a, c = orDefault(a, def), orDefault(c, def)
	}
	return a + " " + op + " " + c, order, nil
}

func genLogicTernary(p *pass, b *blockxml.Node) (string, Order, error) {
	cond, err := p.valueToCode(b, "IF", OrderConditional)
	if err != nil {
		return "", OrderNone, err
	}
	then, err := p.valueToCode(b, "THEN", OrderConditional)
	if err != nil {
		return "", OrderNone, err
	}
	els, err := p.valueToCode(b, "ELSE", OrderConditional)
	if err != nil {
		return "", OrderNone, err
	}
	return orDefault(cond, "false") + " ? " + orDefault(then, "null") + " : " + orDefault(els, "null"), OrderConditional, nil
}

// Controls.

func genControlsIf(p *pass, b *blockxml.Node) (string, error) {
	elseIfs := mutationInt(b, "elseif", 0)
	var code strings.Builder
	for n := 0; n <= elseIfs; n++ {
		cond, err := p.valueToCode(b, fmt.Sprintf("IF%d", n), OrderNone)
		if err != nil {
			return "", err
		}
		branch, err := p.statementToCode(b, fmt.Sprintf("DO%d", n))
		if err != nil {
			return "", err
		}
		if n > 0 {
			code.WriteString(" else ")
		}
		code.WriteString("if (" + orDefault(cond, "false") + ") {\n" + branch + "}")
	}
	if mutationInt(b, "else", 0) > 0 || b.Child("statement", "ELSE") != nil {
		branch, err := p.statementToCode(b, "ELSE")
		if err != nil {
			return "", err
		}
		code.WriteString(" else {\n" + branch + "}")
	}
	return code.String() + "\n", nil
}

var simpleOperand = regexp.MustCompile(`^\w+$`)

func genControlsRepeat(p *pass, b *blockxml.Node) (string, error) {
	var (
		repeats string
		err     error
	)
	if typ, _ := b.Attr("type"); typ == "controls_repeat" {
		n, convErr := strconv.Atoi(strings.TrimSpace(fieldValue(b, "TIMES")))
		if convErr != nil {
			return "", fmt.Errorf("controls_repeat: invalid count %q", fieldValue(b, "TIMES"))
		}
		repeats = strconv.Itoa(n)
	} else {
		repeats, err = p.valueToCode(b, "TIMES", OrderAssignment)
		if err != nil {
			return "", err
		}
		repeats = orDefault(repeats, "0")
	}

	branch, err := p.statementToCode(b, "DO")
	if err != nil {
		return "", err
	}
	branch = p.addLoopTrap(branch, b)

	var code strings.Builder
	loopVar := p.names.distinct("count")
	endVar := repeats
	if !simpleOperand.MatchString(repeats) && !isNumber(repeats) {
		endVar = p.names.distinct("repeat_end")
		code.WriteString("var " + endVar + " = " + repeats + ";\n")
	}
	code.WriteString("for (var " + loopVar + " = 0; " + loopVar + " < " + endVar + "; " + loopVar + "++) {\n" + branch + "}\n")
	return code.String(), nil
}

func genControlsWhileUntil(p *pass, b *blockxml.Node) (string, error) {
	until := fieldValue(b, "MODE") == "UNTIL"
	order := OrderNone
	if until {
		order = OrderLogicalNot
	}
	cond, err := p.valueToCode(b, "BOOL", order)
	if err != nil {
		return "", err
	}
	cond = orDefault(cond, "false")
	if until {
		cond = "!" + cond
	}
	branch, err := p.statementToCode(b, "DO")
	if err != nil {
		return "", err
	}
	branch = p.addLoopTrap(branch, b)
	return "while (" + cond + ") {\n" + branch + "}\n", nil
}

func genControlsFor(p *pass, b *blockxml.Node) (string, error) {
	v := p.variable(b)
	from, err := p.valueToCode(b, "FROM", OrderAssignment)
	if err != nil {
		return "", err
	}
	to, err := p.valueToCode(b, "TO", OrderAssignment)
	if err != nil {
		return "", err
	}
	by, err := p.valueToCode(b, "BY", OrderAssignment)
	if err != nil {
		return "", err
	}
	from, to, by = orDefault(from, "0"), orDefault(to, "0"), orDefault(by, "1")

	branch, err := p.statementToCode(b, "DO")
	if err != nil {
		return "", err
	}
	branch = p.addLoopTrap(branch, b)

	if isNumber(from) && isNumber(to) && isNumber(by) {
		f, _ := strconv.ParseFloat(from, 64)
		t, _ := strconv.ParseFloat(to, 64)
		step, _ := strconv.ParseFloat(by, 64)
		step = math.Abs(step)
		up := f <= t
		cmp, inc := " >= ", "--"
		if up {
			cmp, inc = " <= ", "++"
		}
		if step != 1 {
			op := " -= "
			if up {
				op = " += "
			}
			inc = op + strconv.FormatFloat(step, 'f', -1, 64)
		}
		return "for (" + v + " = " + from + "; " + v + cmp + to + "; " + v + inc + ") {\n" + branch + "}\n", nil
	}

	start := p.names.distinct(v + "_start")
	end := p.names.distinct(v + "_end")
	incVar := p.names.distinct(v + "_inc")
	var code strings.Builder
	code.WriteString("var " + start + " = " + from + ";\n")
	code.WriteString("var " + end + " = " + to + ";\n")
	code.WriteString("var " + incVar + " = Math.abs(" + by + ");\n")
	code.WriteString("if (" + start + " > " + end + ") {\n" + Indent + incVar + " = -" + incVar + ";\n}\n")
	code.WriteString("for (" + v + " = " + start + "; " + incVar + " >= 0 ? " + v + " <= " + end + " : " + v + " >= " + end + "; " + v + " += " + incVar + ") {\n" + branch + "}\n")
	return code.String(), nil
}

func genControlsFlow(p *pass, b *blockxml.Node) (string, error) {
	switch flow := fieldValue(b, "FLOW"); flow {
	case "BREAK":
		return "break;\n", nil
	case "CONTINUE":
		return "continue;\n", nil
	default:
		return "", fmt.Errorf("controls_flow_statements: unknown flow %q", flow)
	}
}

// Variables.

func (p *pass) variable(b *blockxml.Node) string {
	return p.names.get(variableName(b, p.varByID), kindVariable)
}

func genVariablesGet(p *pass, b *blockxml.Node) (string, Order, error) {
	return p.variable(b), OrderAtomic, nil
}

func genVariablesSet(p *pass, b *blockxml.Node) (string, error) {
	v, err := p.valueToCode(b, "VALUE", OrderAssignment)
	if err != nil {
		return "", err
	}
	return p.variable(b) + " = " + orDefault(v, "0") + ";\n", nil
}

// Procedures. Calls are awaited: procedure declarations are made
// asynchronous before execution.

func procedureArgs(b *blockxml.Node) []string {
	m := b.Child("mutation", "")
	if m == nil {
		return nil
	}
	var args []string
	for _, a := range m.ChildrenNamed("arg") {
		name, _ := a.Attr("name")
		args = append(args, name)
	}
	return args
}

func genProcedureDef(p *pass, b *blockxml.Node) (string, error) {
	name := p.names.get(fieldValue(b, "NAME"), kindProcedure)

	branch, err := p.statementToCode(b, "STACK")
	if err != nil {
		return "", err
	}
	branch = p.addLoopTrap(branch, b)

	ret, err := p.valueToCode(b, "RETURN", OrderNone)
	if err != nil {
		return "", err
	}
	if ret != "" {
		ret = Indent + "return " + ret + ";\n"
	}

	var params []string
	for _, a := range procedureArgs(b) {
		params = append(params, p.names.get(a, kindVariable))
	}
	code := "function " + name + "(" + strings.Join(params, ", ") + ") {\n" + branch + ret + "}"
	p.define("%"+name, code)
	return "", nil
}

func (p *pass) procedureCall(b *blockxml.Node) (string, error) {
	m := b.Child("mutation", "")
	callee := ""
	if m != nil {
		callee, _ = m.Attr("name")
	}
	if callee == "" {
		typ, _ := b.Attr("type")
		return "", fmt.Errorf("%w: %q", ErrMissingProcedureName, typ)
	}
	args := procedureArgs(b)
	vals := make([]string, len(args))
	for i := range args {
		v, err := p.valueToCode(b, fmt.Sprintf("ARG%d", i), OrderComma)
		if err != nil {
			return "", err
		}
		vals[i] = orDefault(v, "null")
	}
	return "await " + p.names.get(callee, kindProcedure) + "(" + strings.Join(vals, ", ") + ")", nil
}

func genProcedureCall(p *pass, b *blockxml.Node) (string, error) {
	code, err := p.procedureCall(b)
	if err != nil {
		return "", err
	}
	return code + ";\n", nil
}

func genProcedureCallReturn(p *pass, b *blockxml.Node) (string, Order, error) {
	code, err := p.procedureCall(b)
	if err != nil {
		return "", OrderNone, err
	}
	return code, OrderAwait, nil
}

func genProcedureIfReturn(p *pass, b *blockxml.Node) (string, error) {
	cond, err := p.valueToCode(b, "CONDITION", OrderNone)
	if err != nil {
		return "", err
	}
	code := "if (" + orDefault(cond, "false") + ") {\n"
	if mutationInt(b, "value", 0) > 0 {
		v, err := p.valueToCode(b, "VALUE", OrderNone)
		if err != nil {
			return "", err
		}
		code += Indent + "return " + orDefault(v, "null") + ";\n"
	} else {
		code += Indent + "return;\n"
	}
	return code + "}\n", nil
}

func mutationInt(b *blockxml.Node, attr string, def int) int {
	m := b.Child("mutation", "")
	if m == nil {
		return def
	}
	v, ok := m.Attr(attr)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func orDefault(code, def string) string {
	if code == "" {
		return def
	}
	return code
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
