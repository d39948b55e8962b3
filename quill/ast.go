package quill

type Node interface {
	Pos() Position
}

type Statement interface {
	Node
	stmtNode()
}

type Expression interface {
	Node
	exprNode()
}

type Program struct {
	Statements []Statement
	Strict     bool
	source     string
	varNames   []string
}

func (p *Program) Pos() Position {
	if len(p.Statements) == 0 {
		return Position{Line: 1, Column: 1}
	}
	return p.Statements[0].Pos()
}

// Source returns the text the program was parsed from.
func (p *Program) Source() string { return p.source }

type Param struct {
	Name       string
	DefaultVal Expression
	Rest       bool
}

// FunctionLiteral backs function declarations, function expressions, methods
// and arrow functions. Arrow functions with a concise body keep it in
// ExprBody.
type FunctionLiteral struct {
	Name     string
	Params   []Param
	Body     []Statement
	ExprBody Expression
	Arrow    bool
	Strict   bool
	position Position
	varNames []string
}

func (e *FunctionLiteral) exprNode()     {}
func (e *FunctionLiteral) Pos() Position { return e.position }

// Statements

type ExprStmt struct {
	Expr     Expression
	position Position
}

func (s *ExprStmt) stmtNode()     {}
func (s *ExprStmt) Pos() Position { return s.position }

type VarDeclarator struct {
	Name     string
	Init     Expression
	position Position
}

// VarDecl covers var, let and const; Kind holds the keyword.
type VarDecl struct {
	Kind         string
	Declarations []VarDeclarator
	position     Position
}

func (s *VarDecl) stmtNode()     {}
func (s *VarDecl) Pos() Position { return s.position }

type FunctionDecl struct {
	Func     *FunctionLiteral
	position Position
}

func (s *FunctionDecl) stmtNode()     {}
func (s *FunctionDecl) Pos() Position { return s.position }

type BlockStmt struct {
	Body     []Statement
	position Position
}

func (s *BlockStmt) stmtNode()     {}
func (s *BlockStmt) Pos() Position { return s.position }

type EmptyStmt struct {
	position Position
}

func (s *EmptyStmt) stmtNode()     {}
func (s *EmptyStmt) Pos() Position { return s.position }

type IfStmt struct {
	Condition  Expression
	Consequent Statement
	Alternate  Statement
	position   Position
}

func (s *IfStmt) stmtNode()     {}
func (s *IfStmt) Pos() Position { return s.position }

type WhileStmt struct {
	Condition Expression
	Body      Statement
	position  Position
}

func (s *WhileStmt) stmtNode()     {}
func (s *WhileStmt) Pos() Position { return s.position }

type DoWhileStmt struct {
	Body      Statement
	Condition Expression
	position  Position
}

func (s *DoWhileStmt) stmtNode()     {}
func (s *DoWhileStmt) Pos() Position { return s.position }

// ForStmt is the classic three-clause loop. Init is a *VarDecl or *ExprStmt.
type ForStmt struct {
	Init      Statement
	Condition Expression
	Update    Expression
	Body      Statement
	position  Position
}

func (s *ForStmt) stmtNode()     {}
func (s *ForStmt) Pos() Position { return s.position }

// ForInStmt covers both for-in (keys) and for-of (values). DeclKind is empty
// when the loop assigns to an existing target.
type ForInStmt struct {
	DeclKind string
	Target   Expression
	Iterable Expression
	Body     Statement
	Of       bool
	position Position
}

func (s *ForInStmt) stmtNode()     {}
func (s *ForInStmt) Pos() Position { return s.position }

type ReturnStmt struct {
	Value    Expression
	position Position
}

func (s *ReturnStmt) stmtNode()     {}
func (s *ReturnStmt) Pos() Position { return s.position }

type BreakStmt struct {
	Label    string
	position Position
}

func (s *BreakStmt) stmtNode()     {}
func (s *BreakStmt) Pos() Position { return s.position }

type ContinueStmt struct {
	Label    string
	position Position
}

func (s *ContinueStmt) stmtNode()     {}
func (s *ContinueStmt) Pos() Position { return s.position }

type LabeledStmt struct {
	Label    string
	Body     Statement
	position Position
}

func (s *LabeledStmt) stmtNode()     {}
func (s *LabeledStmt) Pos() Position { return s.position }

// SwitchCase with a nil Test is the default clause.
type SwitchCase struct {
	Test     Expression
	Body     []Statement
	position Position
}

type SwitchStmt struct {
	Discriminant Expression
	Cases        []SwitchCase
	position     Position
}

func (s *SwitchStmt) stmtNode()     {}
func (s *SwitchStmt) Pos() Position { return s.position }

type ThrowStmt struct {
	Value    Expression
	position Position
}

func (s *ThrowStmt) stmtNode()     {}
func (s *ThrowStmt) Pos() Position { return s.position }

type TryStmt struct {
	Block     *BlockStmt
	Param     string
	Handler   *BlockStmt
	Finalizer *BlockStmt
	position  Position
}

func (s *TryStmt) stmtNode()     {}
func (s *TryStmt) Pos() Position { return s.position }

// Expressions

type Identifier struct {
	Name     string
	position Position
}

func (e *Identifier) exprNode()     {}
func (e *Identifier) Pos() Position { return e.position }

type NumberLiteral struct {
	Value    float64
	Raw      string
	position Position
}

func (e *NumberLiteral) exprNode()     {}
func (e *NumberLiteral) Pos() Position { return e.position }

type StringLiteral struct {
	Value    string
	position Position
}

func (e *StringLiteral) exprNode()     {}
func (e *StringLiteral) Pos() Position { return e.position }

type BoolLiteral struct {
	Value    bool
	position Position
}

func (e *BoolLiteral) exprNode()     {}
func (e *BoolLiteral) Pos() Position { return e.position }

type NullLiteral struct {
	position Position
}

func (e *NullLiteral) exprNode()     {}
func (e *NullLiteral) Pos() Position { return e.position }

type RegexLiteral struct {
	Pattern  string
	Flags    string
	position Position
}

func (e *RegexLiteral) exprNode()     {}
func (e *RegexLiteral) Pos() Position { return e.position }

type ThisExpr struct {
	position Position
}

func (e *ThisExpr) exprNode()     {}
func (e *ThisExpr) Pos() Position { return e.position }

// ArrayLiteral elements may be nil for holes.
type ArrayLiteral struct {
	Elements []Expression
	position Position
}

func (e *ArrayLiteral) exprNode()     {}
func (e *ArrayLiteral) Pos() Position { return e.position }

// ObjectProperty uses Key unless Computed is set.
type ObjectProperty struct {
	Key      string
	Computed Expression
	Value    Expression
	Spread   bool
}

type ObjectLiteral struct {
	Properties []ObjectProperty
	position   Position
}

func (e *ObjectLiteral) exprNode()     {}
func (e *ObjectLiteral) Pos() Position { return e.position }

type SpreadExpr struct {
	Value    Expression
	position Position
}

func (e *SpreadExpr) exprNode()     {}
func (e *SpreadExpr) Pos() Position { return e.position }

type UnaryExpr struct {
	Operator string
	Operand  Expression
	position Position
}

func (e *UnaryExpr) exprNode()     {}
func (e *UnaryExpr) Pos() Position { return e.position }

type UpdateExpr struct {
	Operator string
	Prefix   bool
	Target   Expression
	position Position
}

func (e *UpdateExpr) exprNode()     {}
func (e *UpdateExpr) Pos() Position { return e.position }

type BinaryExpr struct {
	Operator string
	Left     Expression
	Right    Expression
	position Position
}

func (e *BinaryExpr) exprNode()     {}
func (e *BinaryExpr) Pos() Position { return e.position }

// LogicalExpr covers the short-circuiting &&, || and ?? operators.
type LogicalExpr struct {
	Operator string
	Left     Expression
	Right    Expression
	position Position
}

func (e *LogicalExpr) exprNode()     {}
func (e *LogicalExpr) Pos() Position { return e.position }

// AssignExpr covers = and every compound assignment; Operator holds the
// source operator, e.g. "+=".
type AssignExpr struct {
	Operator string
	Target   Expression
	Value    Expression
	position Position
}

func (e *AssignExpr) exprNode()     {}
func (e *AssignExpr) Pos() Position { return e.position }

type ConditionalExpr struct {
	Condition  Expression
	Consequent Expression
	Alternate  Expression
	position   Position
}

func (e *ConditionalExpr) exprNode()     {}
func (e *ConditionalExpr) Pos() Position { return e.position }

type SequenceExpr struct {
	Expressions []Expression
	position    Position
}

func (e *SequenceExpr) exprNode()     {}
func (e *SequenceExpr) Pos() Position { return e.position }

type CallExpr struct {
	Callee   Expression
	Args     []Expression
	Optional bool
	position Position
}

func (e *CallExpr) exprNode()     {}
func (e *CallExpr) Pos() Position { return e.position }

type NewExpr struct {
	Callee   Expression
	Args     []Expression
	position Position
}

func (e *NewExpr) exprNode()     {}
func (e *NewExpr) Pos() Position { return e.position }

// MemberExpr is dotted access (o.name).
type MemberExpr struct {
	Object   Expression
	Property string
	Optional bool
	position Position
}

func (e *MemberExpr) exprNode()     {}
func (e *MemberExpr) Pos() Position { return e.position }

// IndexExpr is bracketed access (o[expr]).
type IndexExpr struct {
	Object   Expression
	Index    Expression
	Optional bool
	position Position
}

func (e *IndexExpr) exprNode()     {}
func (e *IndexExpr) Pos() Position { return e.position }
