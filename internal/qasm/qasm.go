// Package qasm parses the OpenQASM 2.0 subset the compiler front end
// accepts and lowers it onto the monolithic circuit model. Register
// references are flattened to global qubit indices in declaration order.
package qasm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/entanglab/dqc/internal/circuit"
)

// Pre-compiled regexps for QASM parsing.
var (
	qregRegex       = regexp.MustCompile(`^qreg\s+(\w+)\[(\d+)\];?$`)
	cregRegex       = regexp.MustCompile(`^creg\s+(\w+)\[(\d+)\];?$`)
	singleGateRegex = regexp.MustCompile(`^(\w+)\s+(\w+)\[(\d+)\];?$`)
	paramGateRegex  = regexp.MustCompile(`^(\w+)\s*\(([^)]*)\)\s+(\w+)\[(\d+)\];?$`)
	twoQubitRegex   = regexp.MustCompile(`^(\w+)\s+(\w+)\[(\d+)\],\s*(\w+)\[(\d+)\];?$`)
	measureRegex    = regexp.MustCompile(`^measure\s+(\w+)\[(\d+)\]\s*->\s*(\w+)\[(\d+)\];?$`)
	barrierRegex    = regexp.MustCompile(`^barrier\b`)
)

// Uppercased two-qubit mnemonics, matching the compiler's gate vocabulary.
var twoQubitGates = map[string]string{
	"cx":   "CX",
	"cnot": "CNOT",
	"cz":   "CZ",
	"swap": "SWAP",
}

// Parse lowers QASM source to a monolithic circuit whose gate list starts
// with an Init covering every declared qubit in ascending order. Malformed
// statements are a ConfigurationError naming the line.
func Parse(src string) (*circuit.Circuit, error) {
	qregs := map[string]circuit.Register{}
	cregs := map[string]int{}
	next := 0
	var gates []circuit.GateSpec

	resolve := func(reg string, idx int) (int, error) {
		r, ok := qregs[reg]
		if !ok {
			return 0, circuit.Configf("unknown quantum register %q", reg)
		}
		if idx >= r.Size {
			return 0, circuit.Configf("index %d out of range for register %q of size %d", idx, reg, r.Size)
		}
		return r.StartingIndex + idx, nil
	}

	for lineno, raw := range strings.Split(src, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if strings.HasPrefix(line, "OPENQASM") || strings.HasPrefix(line, "include") {
			continue
		}
		if barrierRegex.MatchString(line) {
			continue
		}

		if m := qregRegex.FindStringSubmatch(line); m != nil {
			size, _ := strconv.Atoi(m[2])
			qregs[m[1]] = circuit.Register{Size: size, StartingIndex: next}
			next += size
			continue
		}
		if m := cregRegex.FindStringSubmatch(line); m != nil {
			size, _ := strconv.Atoi(m[2])
			cregs[m[1]] = size
			continue
		}

		if m := measureRegex.FindStringSubmatch(line); m != nil {
			idx, _ := strconv.Atoi(m[2])
			q, err := resolve(m[1], idx)
			if err != nil {
				return nil, lineErr(lineno, err)
			}
			gates = append(gates, circuit.Measure(circuit.MonolithicNode, q))
			continue
		}

		if m := twoQubitRegex.FindStringSubmatch(line); m != nil {
			instr, ok := twoQubitGates[strings.ToLower(m[1])]
			if !ok {
				return nil, lineErr(lineno, circuit.Configf("unsupported two-qubit gate %q", m[1]))
			}
			qa, err := resolve(m[2], atoi(m[3]))
			if err != nil {
				return nil, lineErr(lineno, err)
			}
			qb, err := resolve(m[4], atoi(m[5]))
			if err != nil {
				return nil, lineErr(lineno, err)
			}
			gates = append(gates, circuit.Two(instr, qa, circuit.MonolithicNode, qb, circuit.MonolithicNode))
			continue
		}

		if m := paramGateRegex.FindStringSubmatch(line); m != nil {
			q, err := resolve(m[3], atoi(m[4]))
			if err != nil {
				return nil, lineErr(lineno, err)
			}
			// The parameter rides along in the mnemonic; the engine owns
			// its interpretation.
			instr := fmt.Sprintf("%s(%s)", strings.ToLower(m[1]), strings.TrimSpace(m[2]))
			gates = append(gates, circuit.Single(instr, q, circuit.MonolithicNode))
			continue
		}

		if m := singleGateRegex.FindStringSubmatch(line); m != nil {
			if strings.ToLower(m[1]) == "reset" {
				q, err := resolve(m[2], atoi(m[3]))
				if err != nil {
					return nil, lineErr(lineno, err)
				}
				gates = append(gates, circuit.Init(circuit.MonolithicNode, q))
				continue
			}
			q, err := resolve(m[2], atoi(m[3]))
			if err != nil {
				return nil, lineErr(lineno, err)
			}
			gates = append(gates, circuit.Single(strings.ToLower(m[1]), q, circuit.MonolithicNode))
			continue
		}

		return nil, lineErr(lineno, circuit.Configf("unrecognized statement %q", line))
	}

	if len(qregs) == 0 {
		return nil, circuit.Configf("no qreg declared")
	}

	c := circuit.New(qregs, cregs)
	c.Stage = circuit.StageMonolithic
	all := make([]int, c.QubitCount())
	for i := range all {
		all[i] = i
	}
	if err := c.Append(circuit.Init(circuit.MonolithicNode, all...)); err != nil {
		return nil, err
	}
	if err := c.Append(gates...); err != nil {
		return nil, err
	}
	return c, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func lineErr(lineno int, err error) error {
	return fmt.Errorf("line %d: %w", lineno+1, err)
}
