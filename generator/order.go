package generator

// Order is JavaScript operator precedence; lower binds tighter.
type Order float64

const (
	OrderAtomic         Order = 0
	OrderMember         Order = 1.2
	OrderFunctionCall   Order = 2
	OrderIncrement      Order = 3
	OrderLogicalNot     Order = 4.4
	OrderUnaryNegation  Order = 4.3
	OrderAwait          Order = 4.8
	OrderExponentiation Order = 5.0
	OrderMultiplication Order = 5.1
	OrderDivision       Order = 5.2
	OrderModulus        Order = 5.3
	OrderSubtraction    Order = 6.1
	OrderAddition       Order = 6.2
	OrderRelational     Order = 8
	OrderEquality       Order = 9
	OrderLogicalAnd     Order = 13
	OrderLogicalOr      Order = 14
	OrderConditional    Order = 15
	OrderAssignment     Order = 16
	OrderComma          Order = 18
	OrderNone           Order = 99
)

// orderOverrides lists (outer, inner) pairs that associate without
// parentheses, e.g. a * (b * c) == a * b * c.
var orderOverrides = [][2]Order{
	{OrderFunctionCall, OrderMember},
	{OrderMember, OrderMember},
	{OrderLogicalNot, OrderLogicalNot},
	{OrderMultiplication, OrderMultiplication},
	{OrderAddition, OrderAddition},
	{OrderLogicalAnd, OrderLogicalAnd},
	{OrderLogicalOr, OrderLogicalOr},
}

func needsParens(outer, inner Order) bool {
	if outer > inner {
		return false
	}
	if outer == inner && (outer == OrderAtomic || outer == OrderNone) {
		return false
	}
	for _, o := range orderOverrides {
		if o[0] == outer && o[1] == inner {
			return false
		}
	}
	return true
}
