// Package ninjawriter serialises a cobble project's evaluated products into
// a Ninja build manifest (spec.md §6 "Emitter output"). Grounded on
// _examples/original_source/src/cobble/ninja_syntax.py's Writer and
// output.py's write_ninja_files.
package ninjawriter

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"cobble/cmd/cobble/frozen"
)

const defaultWidth = 78

// Writer emits Ninja syntax to an underlying io.Writer, wrapping long lines
// at width the same way ninja_syntax.py's Writer._line does.
type Writer struct {
	out    *bufio.Writer
	width  int
	indent int
}

// NewWriter wraps w in a Writer using the original's default wrap width.
func NewWriter(w io.Writer) *Writer {
	return &Writer{out: bufio.NewWriter(w), width: defaultWidth}
}

// Newline emits a blank line.
func (w *Writer) Newline() { w.out.WriteByte('\n') }

// Comment emits text as one or more "# "-prefixed lines, word-wrapped at the
// writer's width.
func (w *Writer) Comment(text string) {
	for _, line := range wrapText(text, w.width-2) {
		w.out.WriteString("# ")
		w.out.WriteString(line)
		w.out.WriteByte('\n')
	}
}

// Variable emits "key = value", joining multiple values with spaces. Empty
// values are dropped silently (a rule/build block with no such attribute).
func (w *Writer) Variable(key string, values ...string) {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 {
		return
	}
	w.line(key + " = " + strings.Join(parts, " "))
}

// Pool emits a pool declaration with the given queue depth.
func (w *Writer) Pool(name string, depth string) {
	w.line("pool " + name)
	w.indent++
	w.Variable("depth", depth)
	w.indent--
}

// Rule emits a named rule block. body's recognised keys — command,
// description, depfile, pool, rspfile, rspfile_content, deps, generator,
// restat — mirror ninja_syntax.py's Writer.rule keyword arguments;
// generator/restat are treated as present-if-nonempty flags ("1").
func (w *Writer) Rule(name string, body map[string]string) {
	w.line("rule " + name)
	w.indent++
	w.Variable("command", body["command"])
	w.Variable("description", body["description"])
	w.Variable("depfile", body["depfile"])
	w.Variable("pool", body["pool"])
	w.Variable("rspfile", body["rspfile"])
	w.Variable("rspfile_content", body["rspfile_content"])
	w.Variable("deps", body["deps"])
	if body["generator"] != "" {
		w.Variable("generator", "1")
	}
	if body["restat"] != "" {
		w.Variable("restat", "1")
	}
	w.indent--
}

// Build emits one build edge: outputs, the rule it's built with, its
// explicit inputs, and variables scoped to this edge. Implicit and
// order-only inputs are appended after "|" and "||" respectively, per Ninja
// syntax.
func (w *Writer) Build(outputs []string, rule string, inputs, implicit, orderOnly []string, variables map[string]any) {
	outParts := make([]string, len(outputs))
	for i, o := range outputs {
		outParts[i] = escapePath(o)
	}

	allInputs := make([]string, 0, len(inputs)+len(implicit)+len(orderOnly)+2)
	for _, in := range inputs {
		allInputs = append(allInputs, escapePath(in))
	}
	if len(implicit) > 0 {
		allInputs = append(allInputs, "|")
		for _, in := range implicit {
			allInputs = append(allInputs, escapePath(in))
		}
	}
	if len(orderOnly) > 0 {
		allInputs = append(allInputs, "||")
		for _, in := range orderOnly {
			allInputs = append(allInputs, escapePath(in))
		}
	}

	w.line("build " + strings.Join(outParts, " ") + ": " + rule + " " + strings.Join(allInputs, " "))

	w.indent++
	for _, k := range sortedKeys(variables) {
		w.Variable(k, stringifyVar(variables[k]))
	}
	w.indent--
}

// Include emits an include statement.
func (w *Writer) Include(path string) { w.line("include " + path) }

// Subninja emits a subninja statement.
func (w *Writer) Subninja(path string) { w.line("subninja " + path) }

// Default designates paths as the default build targets.
func (w *Writer) Default(paths []string) {
	w.line("default " + strings.Join(paths, " "))
}

// Flush flushes any buffered output to the underlying writer.
func (w *Writer) Flush() error { return w.out.Flush() }

// escapePath escapes the characters significant in a build/rule definition
// (space and colon), matching ninja_syntax.py's _escape_path. A "$" is
// escaped only where it directly precedes a space; any other "$" is left
// alone.
func escapePath(s string) string {
	s = strings.ReplaceAll(s, "$ ", "$$ ")
	s = strings.ReplaceAll(s, " ", "$ ")
	s = strings.ReplaceAll(s, ":", "$:")
	return s
}

// line writes text indented and word-wrapped at w.width, escaping unescaped
// spaces with a trailing "$" continuation exactly as
// ninja_syntax.py's Writer._line does.
func (w *Writer) line(text string) {
	leading := strings.Repeat("  ", w.indent)
	for len(leading)+len(text) > w.width {
		available := w.width - len(leading) - len(" $")
		space := rfindUnescapedSpace(text, available)
		if space < 0 {
			space = findUnescapedSpaceFrom(text, available-1)
		}
		if space < 0 {
			break
		}
		w.out.WriteString(leading + text[:space] + " $\n")
		text = text[space+1:]
		leading = strings.Repeat("  ", w.indent+2)
	}
	w.out.WriteString(leading + text + "\n")
}

// countDollarsBefore returns the number of '$' characters immediately
// preceding index i in s.
func countDollarsBefore(s string, i int) int {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '$'; j-- {
		n++
	}
	return n
}

func rfindUnescapedSpace(text string, upTo int) int {
	if upTo > len(text) {
		upTo = len(text)
	}
	if upTo < 0 {
		return -1
	}
	for {
		idx := strings.LastIndex(text[:upTo], " ")
		if idx < 0 {
			return -1
		}
		if countDollarsBefore(text, idx)%2 == 0 {
			return idx
		}
		upTo = idx
	}
}

func findUnescapedSpaceFrom(text string, from int) int {
	if from < 0 {
		from = 0
	}
	for {
		rel := strings.IndexByte(text[from:], ' ')
		if rel < 0 {
			return -1
		}
		idx := from + rel
		if countDollarsBefore(text, idx)%2 == 0 {
			return idx
		}
		from = idx + 1
	}
}

// wrapText is a minimal textwrap.wrap equivalent: greedy word-wrap at width
// columns, never splitting a word.
func wrapText(text string, width int) []string {
	if width < 1 {
		width = 1
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	cur := words[0]
	for _, word := range words[1:] {
		if len(cur)+1+len(word) <= width {
			cur += " " + word
			continue
		}
		lines = append(lines, cur)
		cur = word
	}
	lines = append(lines, cur)
	return lines
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func stringifyVar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case frozen.Value:
		if t.Kind() == frozen.KindString {
			return t.Str()
		}
		return t.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
