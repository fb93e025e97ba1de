package core

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// SplitCommandLine splits line at the first space into executable and raw arguments.
func SplitCommandLine(line string) (string, string) {
	line = strings.TrimSpace(line)
	idx := strings.IndexByte(line, ' ')
	if idx < 0 {
		return line, ""
	}
	return line[:idx], strings.TrimSpace(line[idx+1:])
}

// SplitArguments splits a raw argument string into words, honouring quotes
// and backslash escapes. Nothing is expanded: parameters, globs and operators
// reach the child as written. Input that is not a single plain command falls
// back to whitespace splitting.
func SplitArguments(args string) []string {
	if strings.TrimSpace(args) == "" {
		return nil
	}
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash), syntax.KeepComments(true))
	file, err := parser.Parse(strings.NewReader(args), "")
	if err != nil || len(file.Stmts) != 1 || len(file.Last) > 0 {
		return strings.Fields(args)
	}
	stmt := file.Stmts[0]
	call, ok := stmt.Cmd.(*syntax.CallExpr)
	if !ok || len(call.Assigns) > 0 || len(stmt.Redirs) > 0 || len(stmt.Comments) > 0 ||
		stmt.Negated || stmt.Background || stmt.Coprocess {
		return strings.Fields(args)
	}
	words := make([]string, 0, len(call.Args))
	for _, word := range call.Args {
		words = append(words, wordValue(args, word))
	}
	return words
}

func wordValue(src string, word *syntax.Word) string {
	var b strings.Builder
	for _, part := range word.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			b.WriteString(unescapeLit(p.Value))
		case *syntax.SglQuoted:
			b.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, inner := range p.Parts {
				if lit, ok := inner.(*syntax.Lit); ok {
					b.WriteString(lit.Value)
					continue
				}
				b.WriteString(source(src, inner))
			}
		default:
			b.WriteString(source(src, part))
		}
	}
	return b.String()
}

func source(src string, node syntax.Node) string {
	start, end := int(node.Pos().Offset()), int(node.End().Offset())
	if start < 0 || end > len(src) || start > end {
		return ""
	}
	return src[start:end]
}

func unescapeLit(value string) string {
	if !strings.Contains(value, `\`) {
		return value
	}
	var b strings.Builder
	escaped := false
	for _, r := range value {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}
