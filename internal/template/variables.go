package template

import (
	"github.com/aymerick/raymond/ast"
	"github.com/aymerick/raymond/parser"
)

const (
	rootDataSegment = "root"
	thisSegment     = "this"
)

var builtinKeys = map[string]struct{}{
	KeyAbsoluteCodePath: {},
	KeySourceTree:       {},
	KeyFiles:            {},
	KeyGitDiff:          {},
	KeyGitDiffBranch:    {},
	KeyGitLogBranch:     {},
	KeyFilePath:         {},
	KeyFileExtension:    {},
	KeyFileCode:         {},
	KeyFileTokenCount:   {},
}

// Block helpers that render their body against the enclosing context.
var contextPreservingHelpers = map[string]struct{}{
	"if":     {},
	"unless": {},
}

var helperNames = map[string]struct{}{
	"if":     {},
	"unless": {},
	"each":   {},
	"with":   {},
	"log":    {},
	"lookup": {},
	"equal":  {},
}

// UndefinedVariables lists, in first-use order, the top-level names text
// reads that are not built-in data keys. References inside {{#if}} and
// {{#unless}} bodies, helper arguments such as {{#with ticket}}, and paths
// that climb back to the top level ({{../name}}, {{@root.name}}) all count.
func UndefinedVariables(text string) ([]string, error) {
	program, parseError := parser.Parse(text)
	if parseError != nil {
		return nil, parseError
	}
	collector := &variableCollector{seen: map[string]struct{}{}}
	collector.program(program, []bool{true})
	return collector.names, nil
}

// variableCollector walks a parsed template. levels holds one entry per
// nested block; an entry is true when that level renders against the top-level data.
type variableCollector struct {
	seen  map[string]struct{}
	names []string
}

func (collector *variableCollector) program(program *ast.Program, levels []bool) {
	if program == nil {
		return
	}
	for _, node := range program.Body {
		switch statement := node.(type) {
		case *ast.MustacheStatement:
			collector.expression(statement.Expression, levels)
		case *ast.BlockStatement:
			collector.block(statement, levels)
		}
	}
}

func (collector *variableCollector) block(block *ast.BlockStatement, levels []bool) {
	collector.expression(block.Expression, levels)

	bodyAtRoot := false
	if len(block.Expression.Params) > 0 {
		if _, preserving := contextPreservingHelpers[helperName(block.Expression)]; preserving {
			bodyAtRoot = levels[len(levels)-1]
		}
	}
	collector.program(block.Program, nest(levels, bodyAtRoot))
	collector.program(block.Inverse, nest(levels, levels[len(levels)-1]))
}

// expression treats a bare path as a value and a path with arguments as a helper call.
func (collector *variableCollector) expression(expression *ast.Expression, levels []bool) {
	if expression == nil {
		return
	}
	if len(expression.Params) == 0 && expression.Hash == nil {
		collector.value(expression.Path, levels)
		return
	}
	for _, parameter := range expression.Params {
		collector.value(parameter, levels)
	}
	if expression.Hash != nil {
		for _, pair := range expression.Hash.Pairs {
			collector.value(pair.Val, levels)
		}
	}
}

func (collector *variableCollector) value(node ast.Node, levels []bool) {
	switch value := node.(type) {
	case *ast.PathExpression:
		collector.path(value, levels)
	case *ast.SubExpression:
		collector.expression(value.Expression, levels)
	}
}

func (collector *variableCollector) path(path *ast.PathExpression, levels []bool) {
	parts := path.Parts
	if path.Data {
		if len(parts) < 2 || parts[0] != rootDataSegment {
			return
		}
		parts = parts[1:]
	} else {
		level := len(levels) - 1 - path.Depth
		if level < 0 {
			level = 0
		}
		if !levels[level] {
			return
		}
		if _, helper := helperNames[path.Original]; helper {
			return
		}
	}
	if len(parts) == 0 || parts[0] == thisSegment {
		return
	}
	collector.add(parts[0])
}

func (collector *variableCollector) add(name string) {
	if _, builtin := builtinKeys[name]; builtin {
		return
	}
	if _, duplicate := collector.seen[name]; duplicate {
		return
	}
	collector.seen[name] = struct{}{}
	collector.names = append(collector.names, name)
}

func helperName(expression *ast.Expression) string {
	if path, isPath := expression.Path.(*ast.PathExpression); isPath {
		return path.Original
	}
	return ""
}

func nest(levels []bool, atRoot bool) []bool {
	nested := make([]bool, len(levels), len(levels)+1)
	copy(nested, levels)
	return append(nested, atRoot)
}
