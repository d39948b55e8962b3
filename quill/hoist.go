package quill

import "slices"

// collectVarNames returns the var-declared names of a function or program
// body, looking through nested blocks but not into nested functions.
func collectVarNames(stmts []Statement) []string {
	var names []string
	add := func(name string) {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	var walk func(stmt Statement)
	walk = func(stmt Statement) {
		switch s := stmt.(type) {
		case *VarDecl:
			if s.Kind == "var" {
				for _, d := range s.Declarations {
					add(d.Name)
				}
			}
		case *BlockStmt:
			for _, inner := range s.Body {
				walk(inner)
			}
		case *IfStmt:
			walk(s.Consequent)
			if s.Alternate != nil {
				walk(s.Alternate)
			}
		case *WhileStmt:
			walk(s.Body)
		case *DoWhileStmt:
			walk(s.Body)
		case *ForStmt:
			if s.Init != nil {
				walk(s.Init)
			}
			walk(s.Body)
		case *ForInStmt:
			if s.DeclKind == "var" {
				if ident, ok := s.Target.(*Identifier); ok {
					add(ident.Name)
				}
			}
			walk(s.Body)
		case *LabeledStmt:
			walk(s.Body)
		case *SwitchStmt:
			for _, c := range s.Cases {
				for _, inner := range c.Body {
					walk(inner)
				}
			}
		case *TryStmt:
			walk(s.Block)
			if s.Handler != nil {
				walk(s.Handler)
			}
			if s.Finalizer != nil {
				walk(s.Finalizer)
			}
		}
	}
	for _, stmt := range stmts {
		walk(stmt)
	}
	return names
}

// hoistDeclarations prepares a scope before its statements run: function
// declarations are bound to fresh closures and let/const names enter their
// temporal dead zone.
func (exec *Execution) hoistDeclarations(stmts []Statement, env *Env) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *VarDecl:
			if s.Kind == "var" {
				continue
			}
			for _, d := range s.Declarations {
				env.declareLexical(d.Name, s.Kind == "const")
			}
		case *FunctionDecl:
			fn := exec.realm.newScriptFunction(s.Func, env, exec.strict)
			env.Define(s.Func.Name, NewObjectValue(fn))
		}
	}
}

func needsScope(stmts []Statement) bool {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *FunctionDecl:
			return true
		case *VarDecl:
			if s.Kind != "var" {
				return true
			}
		}
	}
	return false
}
