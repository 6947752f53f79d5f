package circuit

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const paramPattern = `-?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?|-?pi(?:/\d+)?|-?\d+\*pi(?:/\d+)?`

// Pre-compiled regexps for QASM parsing.
var (
	qregRegex        = regexp.MustCompile(`qreg\s+q\[(\d+)\]`)
	cregRegex        = regexp.MustCompile(`creg\s+c\[(\d+)\]`)
	singleGateRegex  = regexp.MustCompile(`^(\w+)\s+q\[(\d+)\];?$`)
	singleParamRegex = regexp.MustCompile(`^(\w+)\s*\(\s*(` + paramPattern + `)\s*\)\s+q\[(\d+)\];?$`)
	twoQubitRegex    = regexp.MustCompile(`^(\w+)\s+q\[(\d+)\],\s*q\[(\d+)\];?$`)
	twoParamRegex    = regexp.MustCompile(`^(\w+)\s*\(\s*(` + paramPattern + `)\s*\)\s+q\[(\d+)\],\s*q\[(\d+)\];?$`)
	measureRegex     = regexp.MustCompile(`^measure\s+q\[(\d+)\]\s*->\s*c\[(\d+)\];?$`)
)

// ToQASM emits the circuit as OpenQASM 2.0 text, the engine's job
// interchange format.
func (c *Circuit) ToQASM() string {
	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	sb.WriteString(fmt.Sprintf("qreg q[%d];\n", c.NumQubits))
	if c.NumClbits > 0 {
		sb.WriteString(fmt.Sprintf("creg c[%d];\n", c.NumClbits))
	}
	sb.WriteString("\n")
	for _, g := range c.Gates {
		switch g.Type {
		case Phase:
			sb.WriteString(fmt.Sprintf("p(%s) q[%d];\n", formatAngle(g.Theta), g.Target))
		case ControlledPhase:
			sb.WriteString(fmt.Sprintf("cp(%s) q[%d],q[%d];\n", formatAngle(g.Theta), g.Control, g.Target))
		case CNOT:
			sb.WriteString(fmt.Sprintf("cx q[%d],q[%d];\n", g.Control, g.Target))
		case Swap:
			sb.WriteString(fmt.Sprintf("swap q[%d],q[%d];\n", g.Control, g.Target))
		case Measure:
			sb.WriteString(fmt.Sprintf("measure q[%d] -> c[%d];\n", g.Target, g.Cbit))
		default:
			sb.WriteString(fmt.Sprintf("%s q[%d];\n", g.Type, g.Target))
		}
	}
	return sb.String()
}

func formatAngle(theta float64) string {
	return strconv.FormatFloat(theta, 'g', 17, 64)
}

// ParseQASM builds a circuit from OpenQASM 2.0 text. Only the gate set
// emitted by ToQASM is supported; anything else is a parse error.
func ParseQASM(qasm string) (*Circuit, error) {
	if strings.TrimSpace(qasm) == "" {
		return nil, fmt.Errorf("no input qasm")
	}
	c := &Circuit{Gates: []Gate{}}
	for lineNum, rawLine := range strings.Split(qasm, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "//") ||
			strings.HasPrefix(line, "OPENQASM") || strings.HasPrefix(line, "include") {
			continue
		}
		if m := qregRegex.FindStringSubmatch(line); m != nil {
			c.NumQubits, _ = strconv.Atoi(m[1])
			continue
		}
		if m := cregRegex.FindStringSubmatch(line); m != nil {
			c.NumClbits, _ = strconv.Atoi(m[1])
			continue
		}
		if m := measureRegex.FindStringSubmatch(line); m != nil {
			q, _ := strconv.Atoi(m[1])
			b, _ := strconv.Atoi(m[2])
			c.Measure(q, b)
			continue
		}
		if m := twoParamRegex.FindStringSubmatch(line); m != nil {
			theta, err := parseAngle(m[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: %s", lineNum+1, err)
			}
			ctrl, _ := strconv.Atoi(m[3])
			tgt, _ := strconv.Atoi(m[4])
			if m[1] != "cp" {
				return nil, fmt.Errorf("line %d: unsupported gate %q", lineNum+1, m[1])
			}
			c.CP(theta, ctrl, tgt)
			continue
		}
		if m := twoQubitRegex.FindStringSubmatch(line); m != nil {
			a, _ := strconv.Atoi(m[2])
			b, _ := strconv.Atoi(m[3])
			switch m[1] {
			case "cx":
				c.CX(a, b)
			case "swap":
				c.Swap(a, b)
			default:
				return nil, fmt.Errorf("line %d: unsupported gate %q", lineNum+1, m[1])
			}
			continue
		}
		if m := singleParamRegex.FindStringSubmatch(line); m != nil {
			theta, err := parseAngle(m[2])
			if err != nil {
				return nil, fmt.Errorf("line %d: %s", lineNum+1, err)
			}
			tgt, _ := strconv.Atoi(m[3])
			switch m[1] {
			case "p", "u1":
				c.P(theta, tgt)
			default:
				return nil, fmt.Errorf("line %d: unsupported gate %q", lineNum+1, m[1])
			}
			continue
		}
		if m := singleGateRegex.FindStringSubmatch(line); m != nil {
			tgt, _ := strconv.Atoi(m[2])
			switch m[1] {
			case "h":
				c.H(tgt)
			case "x":
				c.X(tgt)
			default:
				return nil, fmt.Errorf("line %d: unsupported gate %q", lineNum+1, m[1])
			}
			continue
		}
		return nil, fmt.Errorf("line %d: failed to parse %q", lineNum+1, line)
	}
	if c.NumQubits == 0 {
		return nil, fmt.Errorf("no qreg declaration")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func parseAngle(s string) (float64, error) {
	s = strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	val, err := parsePositiveAngle(s)
	if err != nil {
		return 0, err
	}
	if neg {
		val = -val
	}
	return val, nil
}

func parsePositiveAngle(s string) (float64, error) {
	if !strings.Contains(s, "pi") {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid angle %q", s)
		}
		return v, nil
	}
	mult := 1.0
	if idx := strings.Index(s, "*pi"); idx >= 0 {
		m, err := strconv.ParseFloat(s[:idx], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid angle %q", s)
		}
		mult = m
		s = "pi" + s[idx+3:]
	}
	div := 1.0
	if idx := strings.Index(s, "/"); idx >= 0 {
		d, err := strconv.ParseFloat(s[idx+1:], 64)
		if err != nil || d == 0 {
			return 0, fmt.Errorf("invalid angle %q", s)
		}
		div = d
		s = s[:idx]
	}
	if s != "pi" {
		return 0, fmt.Errorf("invalid angle %q", s)
	}
	return mult * math.Pi / div, nil
}
