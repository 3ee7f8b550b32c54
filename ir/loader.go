package ir

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Loader parses one textual LLVM IR (.ll) file into a Module. It is
// modeled directly on lang/ygen's IRParser: a line-oriented scanner that
// strips comments, dispatches on the first token of each logical line, and
// reads nested constructs ("define ... }") until their closing delimiter.
type Loader struct {
	path    string
	scanner *bufio.Scanner
	lineNum int
	line    string
}

var (
	reDefine      = regexp.MustCompile(`^define\s+(?:[\w]+\s+)*?([\w.]+\*?)\s+@([\w.$-]+)\s*\(([^)]*)\)`)
	reLabel       = regexp.MustCompile(`^([\w.$-]+):$`)
	reAssign      = regexp.MustCompile(`^(%[\w.$-]+)\s*=\s*(.*)$`)
	reLabelRef    = regexp.MustCompile(`label\s+%([\w.$-]+)`)
	reCondBranch  = regexp.MustCompile(`^br\s+i1\s+(%[\w.$-]+)`)
	reSwitchValue = regexp.MustCompile(`^switch\s+[\w.]+\s+(%[\w.$-]+)`)
)

// Load reads path and parses it into a Module. Load refuses silent partial
// parses: the first unrecognized or malformed construct fails the whole
// file (spec.md §4.1).
func Load(path string) (*Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IoFailure{Path: path, Err: err}
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	l := &Loader{path: path, scanner: sc}
	return l.parseModule()
}

// SkipInfo records why LoadAll skipped a file.
type SkipInfo struct {
	Path string
	Err  error
}

// LoadAll loads each path, skipping files that fail to parse and recording
// why, per spec.md §4.1's batch form.
func LoadAll(paths []string) (modules []*Module, skipped []SkipInfo) {
	for _, p := range paths {
		m, err := Load(p)
		if err != nil {
			skipped = append(skipped, SkipInfo{Path: p, Err: err})
			continue
		}
		modules = append(modules, m)
	}
	return modules, skipped
}

func (l *Loader) nextLine() bool {
	for l.scanner.Scan() {
		l.lineNum++
		line := strings.TrimSpace(l.scanner.Text())
		if idx := strings.Index(line, ";"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		l.line = line
		return true
	}
	return false
}

func (l *Loader) parseErr(format string, args ...any) error {
	return &ParseFailure{Path: l.path, Line: l.lineNum, Reason: fmt.Sprintf(format, args...)}
}

func (l *Loader) unsupported(detail string) error {
	return &UnsupportedFeature{Path: l.path, Line: l.lineNum, Detail: detail}
}

func (l *Loader) parseModule() (*Module, error) {
	mod := &Module{Name: moduleName(l.path)}

	for l.nextLine() {
		line := l.line
		if line == "" {
			continue
		}

		switch {
		case strings.HasPrefix(line, "target "),
			strings.HasPrefix(line, "source_filename"),
			strings.HasPrefix(line, "attributes "),
			strings.HasPrefix(line, "!"),
			strings.HasPrefix(line, "declare "),
			strings.HasPrefix(line, "@"):
			continue
		case strings.HasPrefix(line, "%") && strings.Contains(line, "= type"):
			continue
		case strings.HasPrefix(line, "define "):
			fn, err := l.parseFunction(line)
			if err != nil {
				return nil, err
			}
			mod.Functions = append(mod.Functions, fn)
		default:
			return nil, l.parseErr("unexpected top-level construct: %q", line)
		}
	}
	return mod, nil
}

func (l *Loader) parseFunction(header string) (*Function, error) {
	m := reDefine.FindStringSubmatch(header)
	if m == nil {
		for _, f := range strings.Fields(header) {
			if isVectorType(f) {
				return nil, l.unsupported("vector types are not supported")
			}
		}
		return nil, l.parseErr("malformed function header: %q", header)
	}
	fn := &Function{
		Name:       m[2],
		ReturnType: m[1],
		Params:     parseParams(m[3]),
		blockIndex: make(map[string]int),
	}

	if !strings.HasSuffix(strings.TrimSpace(header), "{") {
		// Header may end with "{" on its own line; accept either form.
		if !l.nextLine() || strings.TrimSpace(l.line) != "{" {
			return nil, l.parseErr("expected '{' to open function %s", fn.Name)
		}
	}

	entry := &BasicBlock{Name: "entry", Index: 0}
	fn.Blocks = []*BasicBlock{entry}
	fn.blockIndex["entry"] = 0
	cur := entry
	curHasTerm := false

	for l.nextLine() {
		line := l.line
		if line == "" {
			continue
		}
		if line == "}" {
			if !curHasTerm {
				return nil, l.parseErr("function %s: block %s falls off the end without a terminator", fn.Name, cur.Name)
			}
			return fn, nil
		}

		if lm := reLabel.FindStringSubmatch(line); lm != nil {
			name := lm[1]
			if len(cur.Instrs) == 0 && !curHasTerm && len(fn.Blocks) == 1 && cur.Name == "entry" {
				// Rename the synthetic entry block to its real label —
				// the common case where the entry block is labeled
				// explicitly (e.g. "entry:") before any instructions.
				delete(fn.blockIndex, cur.Name)
				cur.Name = name
				fn.blockIndex[name] = 0
				continue
			}
			if !curHasTerm {
				return nil, l.parseErr("function %s: block %s has no terminator before label %q", fn.Name, cur.Name, name)
			}
			if _, dup := fn.blockIndex[name]; dup {
				return nil, l.parseErr("function %s: duplicate block label %q", fn.Name, name)
			}
			nb := &BasicBlock{Name: name, Index: len(fn.Blocks)}
			fn.Blocks = append(fn.Blocks, nb)
			fn.blockIndex[name] = nb.Index
			cur = nb
			curHasTerm = false
			continue
		}

		instr, term, err := l.parseInstructionLine(line)
		if err != nil {
			return nil, err
		}
		if term != nil {
			if curHasTerm {
				return nil, l.parseErr("function %s: block %s has more than one terminator", fn.Name, cur.Name)
			}
			cur.Term = *term
			curHasTerm = true
			continue
		}
		if instr != nil {
			cur.Instrs = append(cur.Instrs, *instr)
		}
	}
	return nil, l.parseErr("function %s: missing closing '}'", fn.Name)
}

func (l *Loader) parseInstructionLine(rawLine string) (*Instruction, *Terminator, error) {
	line := stripMetadata(rawLine)

	if am := reAssign.FindStringSubmatch(line); am != nil {
		rest := strings.Fields(am[2])
		if len(rest) == 0 {
			return nil, nil, l.parseErr("malformed instruction: %q", rawLine)
		}
		opcode := rest[0]
		if opcode == "invoke" || unsupportedOps[opcode] {
			return nil, nil, l.unsupported(fmt.Sprintf("%s is not supported", opcode))
		}
		typ := firstOperandType(rest[1:])
		if isVectorType(typ) {
			return nil, nil, l.unsupported("vector types are not supported")
		}
		operand := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(am[2]), opcode))
		switch opcode {
		case "phi":
			return &Instruction{Class: ClassPhi, Opcode: opcode, Line: l.lineNum, Dest: am[1], Operand: operand}, nil, nil
		case "call", "tail", "musttail", "notail":
			for _, f := range rest {
				if f == "asm" {
					return nil, nil, l.unsupported("inline assembly is not supported")
				}
			}
			return &Instruction{Class: ClassCall, Opcode: "call", Line: l.lineNum, Dest: am[1], Operand: operand}, nil, nil
		}
		return &Instruction{Class: classifyOpcode(opcode, typ), Opcode: opcode, Line: l.lineNum, Dest: am[1], Operand: operand}, nil, nil
	}

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil, nil
	}
	opcode := fields[0]

	switch opcode {
	case "ret":
		return nil, &Terminator{Kind: TermReturn, Line: l.lineNum}, nil
	case "unreachable":
		return nil, &Terminator{Kind: TermUnreachable, Line: l.lineNum}, nil
	case "br":
		return nil, l.parseBranch(line), nil
	case "switch":
		full, err := l.collectBracketed(line)
		if err != nil {
			return nil, nil, err
		}
		targets := reLabelRef.FindAllStringSubmatch(full, -1)
		if len(targets) == 0 {
			return nil, nil, l.parseErr("switch with no targets: %q", full)
		}
		t := &Terminator{Kind: TermSwitch, Line: l.lineNum}
		if vm := reSwitchValue.FindStringSubmatch(full); vm != nil {
			t.Cond = vm[1]
		}
		for _, tm := range targets {
			t.Targets = append(t.Targets, tm[1])
		}
		return nil, t, nil
	case "indirectbr":
		return nil, nil, l.unsupported("indirectbr is not supported")
	case "invoke":
		return nil, nil, l.unsupported("invoke is not supported")
	case "store":
		return &Instruction{Class: ClassMemStore, Opcode: opcode, Line: l.lineNum}, nil, nil
	case "call", "tail", "musttail", "notail":
		for _, f := range fields {
			if f == "asm" {
				return nil, nil, l.unsupported("inline assembly is not supported")
			}
		}
		return &Instruction{Class: ClassCall, Opcode: "call", Line: l.lineNum}, nil, nil
	default:
		if unsupportedOps[opcode] {
			return nil, nil, l.unsupported(fmt.Sprintf("%s is not supported", opcode))
		}
		// A recognized-but-unclassified instruction (fence, atomicrmw,
		// cmpxchg, ...): spec.md §4.4 maps unknown classes to "other"
		// rather than failing the file.
		return &Instruction{Class: ClassOther, Opcode: opcode, Line: l.lineNum}, nil, nil
	}
}

// parseBranch distinguishes "br label %x" (unconditional, one target) from
// "br i1 %cond, label %a, label %b" (conditional, two targets).
func (l *Loader) parseBranch(line string) *Terminator {
	targets := reLabelRef.FindAllStringSubmatch(line, -1)
	t := &Terminator{Line: l.lineNum}
	for _, tm := range targets {
		t.Targets = append(t.Targets, tm[1])
	}
	if len(t.Targets) <= 1 {
		t.Kind = TermUnconditional
	} else {
		t.Kind = TermConditional
		if cm := reCondBranch.FindStringSubmatch(line); cm != nil {
			t.Cond = cm[1]
		}
	}
	return t
}

// collectBracketed joins continuation lines until a line containing "]" has
// been seen — LLVM's -S output sometimes wraps a switch's arm list across
// several lines.
func (l *Loader) collectBracketed(first string) (string, error) {
	sb := strings.Builder{}
	sb.WriteString(first)
	if strings.Contains(first, "]") || !strings.Contains(first, "[") {
		return sb.String(), nil
	}
	for l.nextLine() {
		sb.WriteByte(' ')
		sb.WriteString(l.line)
		if strings.Contains(l.line, "]") {
			return sb.String(), nil
		}
	}
	return "", l.parseErr("unterminated switch arm list")
}

// stripMetadata removes trailing "!dbg !N"-style attachments, which may
// follow a switch's closing "]" or an instruction's operand list directly.
func stripMetadata(line string) string {
	start := 0
	if idx := strings.LastIndex(line, "]"); idx >= 0 {
		start = idx + 1
	}
	if m := strings.Index(line[start:], " !"); m >= 0 {
		return strings.TrimSpace(line[:start+m])
	}
	return line
}

func parseParams(raw string) []Param {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var params []Param
	for i, part := range strings.Split(raw, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			continue
		}
		p := Param{Type: fields[0]}
		last := fields[len(fields)-1]
		if strings.HasPrefix(last, "%") {
			p.Name = last
		} else {
			p.Name = fmt.Sprintf("%%%d", i)
		}
		params = append(params, p)
	}
	return params
}

func moduleName(path string) string {
	i := strings.LastIndexAny(path, "/\\")
	name := path
	if i >= 0 {
		name = path[i+1:]
	}
	return strings.TrimSuffix(name, ".ll")
}
