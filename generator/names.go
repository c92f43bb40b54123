package generator

import (
	"fmt"
	"strings"

	"github.com/shundroid/three-blockly/blockxml"
)

type nameKind int

const (
	kindVariable nameKind = iota
	kindProcedure
	kindDeveloper
)

// jsReserved are words generated identifiers must avoid: keywords, common
// globals, and the names the sandbox runtime itself defines.
var jsReserved = strings.Split(
	"break,case,catch,class,const,continue,debugger,default,delete,do,else,export,extends,finally,for,function,if,import,in,instanceof,new,return,super,switch,this,throw,try,typeof,var,void,while,with,yield,"+
		"enum,implements,interface,let,package,private,protected,public,static,await,async,"+
		"null,true,false,"+
		"Array,Boolean,Date,Error,Function,Infinity,JSON,Math,NaN,Number,Object,Promise,RegExp,String,arguments,console,eval,isFinite,isNaN,parseFloat,parseInt,undefined,window,alert,prompt,std,os,mathRandomInt,colourRandom,checkTimeout,code,timeouts",
	",")

// nameDB maps user-visible names to safe, distinct JavaScript identifiers.
type nameDB struct {
	reserved map[string]bool
	byName   map[nameKind]map[string]string
	used     map[string]bool
}

func newNameDB(reserved map[string]bool) *nameDB {
	return &nameDB{
		reserved: reserved,
		byName:   make(map[nameKind]map[string]string),
		used:     make(map[string]bool),
	}
}

// get returns the identifier for a user name, allocating one on first use.
func (db *nameDB) get(name string, kind nameKind) string {
	m := db.byName[kind]
	if m == nil {
		m = make(map[string]string)
		db.byName[kind] = m
	}
	if id, ok := m[name]; ok {
		return id
	}
	id := db.distinct(name)
	m[name] = id
	return id
}

// distinct returns a fresh identifier based on name that is not reserved
// and has not been handed out before.
func (db *nameDB) distinct(name string) string {
	base := safeName(name)
	id := base
	for i := 2; db.reserved[id] || db.used[id]; i++ {
		id = fmt.Sprintf("%s%d", base, i)
	}
	db.used[id] = true
	return id
}

// safeName turns arbitrary text into an identifier. Spaces become
// underscores and other non-word bytes become "_XX" escapes.
func safeName(name string) string {
	if name == "" {
		return "unnamed"
	}
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == ' ':
			b.WriteByte('_')
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02X", c)
		}
	}
	out := b.String()
	if out[0] >= '0' && out[0] <= '9' {
		out = "my_" + out
	}
	return out
}

// variableFields lists block types whose VAR field names a variable.
var variableFields = map[string]bool{
	"variables_get": true,
	"variables_set": true,
	"math_change":   true,
	"controls_for":  true,
}

// collectVariables returns declared variable names in declaration order,
// followed by names only referenced from VAR fields, and the id to name map
// of declared variables.
func collectVariables(tree *blockxml.Node) ([]string, map[string]string) {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	byID := make(map[string]string)
	for _, vars := range tree.ChildrenNamed("variables") {
		for _, v := range vars.ChildrenNamed("variable") {
			add(v.Text)
			if id, ok := v.Attr("id"); ok {
				byID[id] = v.Text
			}
		}
	}
	tree.Walk(func(n *blockxml.Node) bool {
		typ, _ := n.Attr("type")
		if (n.Name == "block" || n.Name == "shadow") && variableFields[typ] {
			add(variableName(n, byID))
		}
		return true
	})
	return names, byID
}

// variableName reads the VAR field, resolving a bare id reference.
func variableName(b *blockxml.Node, byID map[string]string) string {
	f := b.Child("field", "VAR")
	if f == nil {
		return ""
	}
	if f.Text != "" {
		return f.Text
	}
	id, _ := f.Attr("id")
	return byID[id]
}

func collectProcedures(tree *blockxml.Node, fn func(name string)) {
	tree.Walk(func(n *blockxml.Node) bool {
		typ, _ := n.Attr("type")
		if n.Name == "block" && (typ == "procedures_defnoreturn" || typ == "procedures_defreturn") {
			fn(fieldValue(n, "NAME"))
		}
		return true
	})
}
