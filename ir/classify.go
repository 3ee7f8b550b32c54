package ir

import "strings"

// LLVM 17 textual IR uses distinct mnemonics for integer and floating-point
// arithmetic/comparison (add vs fadd, icmp vs fcmp, ...), so classification
// is opcode-driven; the type token is only consulted to reject vector types
// (UnsupportedFeature) and to classify "select", whose mnemonic is shared
// between integer and float results.
var (
	intArithOps = map[string]bool{
		"add": true, "sub": true, "and": true, "or": true, "xor": true,
		"shl": true, "lshr": true, "ashr": true,
	}
	floatArithOps = map[string]bool{
		"fadd": true, "fsub": true, "fneg": true,
	}
	mulOps = map[string]bool{"mul": true, "fmul": true}
	divOps = map[string]bool{
		"udiv": true, "sdiv": true, "fdiv": true,
		"urem": true, "srem": true, "frem": true,
	}
	cmpOps  = map[string]bool{"icmp": true, "fcmp": true}
	castOps = map[string]bool{
		"bitcast": true, "trunc": true, "zext": true, "sext": true,
		"fptrunc": true, "fpext": true, "fptoui": true, "fptosi": true,
		"uitofp": true, "sitofp": true, "ptrtoint": true, "inttoptr": true,
		"getelementptr": true, "addrspacecast": true,
	}

	// flagWords precede the operand type on arithmetic/cast instructions
	// and carry no timing relevance of their own.
	flagWords = map[string]bool{
		"nsw": true, "nuw": true, "exact": true, "fast": true,
		"nnan": true, "ninf": true, "nsz": true, "arcp": true,
		"contract": true, "afn": true, "reassoc": true, "inbounds": true,
		"volatile": true, "inrange": true,
	}

	// unsupportedOps cannot be reasoned about soundly by this analyzer:
	// exception handling and indirect control transfer break the CFG's
	// single-terminator-per-block, statically-resolved-successors model.
	unsupportedOps = map[string]bool{
		"invoke": true, "landingpad": true, "resume": true,
		"indirectbr": true, "catchswitch": true, "catchpad": true,
		"cleanuppad": true, "callbr": true,
	}
)

// classifyOpcode returns the instruction class for a non-terminator,
// non-call, non-phi opcode. typ is the instruction's first non-flag
// operand type token (used only to disambiguate "select").
func classifyOpcode(opcode, typ string) Class {
	switch {
	case opcode == "load":
		return ClassMemLoad
	case opcode == "store":
		return ClassMemStore
	case opcode == "select":
		if isFloatType(typ) {
			return ClassArithFloat
		}
		return ClassArithInt
	case mulOps[opcode]:
		return ClassMul
	case divOps[opcode]:
		return ClassDiv
	case cmpOps[opcode]:
		return ClassCmp
	case castOps[opcode]:
		return ClassCast
	case intArithOps[opcode]:
		return ClassArithInt
	case floatArithOps[opcode]:
		return ClassArithFloat
	default:
		return ClassOther
	}
}

// isFloatType reports whether an LLVM type token names a floating-point
// scalar.
func isFloatType(typ string) bool {
	switch typ {
	case "float", "double", "half", "fp128", "x86_fp80", "ppc_fp128":
		return true
	}
	return false
}

// isVectorType reports a vector operand type, e.g. "<4 x i32>". Callers
// pass whitespace-separated tokens, so a vector type usually arrives as
// its first token ("<4"); a leading "<" that does not open a packed
// struct ("<{") marks it.
func isVectorType(typ string) bool {
	return strings.HasPrefix(typ, "<") && !strings.HasPrefix(typ, "<{")
}

// firstOperandType scans tokens (already past the opcode) for the first
// token that looks like an operand type, skipping flag words.
func firstOperandType(tokens []string) string {
	for _, t := range tokens {
		w := strings.TrimSuffix(t, ",")
		if flagWords[w] {
			continue
		}
		return w
	}
	return ""
}
