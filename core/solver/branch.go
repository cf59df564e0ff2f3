package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/frlm/core/logger"
)

const (
	intTol = 1e-6
	lpTol  = 1e-10
)

// relaxLP solves min cᵀx s.t. Ax = b, x >= 0. It can be overridden in tests
// to simulate solver failures.
var relaxLP = func(c []float64, a mat.Matrix, b []float64) (float64, []float64, error) {
	return lp.Simplex(c, a, b, lpTol, nil)
}

// Option configures a BranchAndBound solver.
type Option func(*BranchAndBound)

// WithLogger sets the solver logger.
func WithLogger(l logger.Logger) Option { return func(s *BranchAndBound) { s.log = l } }

// BranchAndBound solves covering problems by depth-first branch and bound over
// LP relaxations. A greedy cover seeds the incumbent, so a limit always
// returns a feasible selection.
type BranchAndBound struct {
	limits Limits
	log    logger.Logger
	now    func() time.Time
}

// NewBranchAndBound returns a solver honouring the given limits.
func NewBranchAndBound(limits Limits, opts ...Option) *BranchAndBound {
	s := &BranchAndBound{limits: limits, log: logger.Nop{}, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// compiled is a problem indexed by variable position. Variables are sorted by
// id so every tie is broken towards the smallest id.
type compiled struct {
	ids  []int64
	cons [][]int
	need []int
}

func compile(p Problem) (*compiled, error) {
	ids := append([]int64(nil), p.Vars...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	idx := make(map[int64]int, len(ids))
	uniq := ids[:0]
	for _, id := range ids {
		if _, ok := idx[id]; ok {
			continue
		}
		idx[id] = len(uniq)
		uniq = append(uniq, id)
	}
	c := &compiled{ids: uniq}
	seen := make(map[string]struct{}, len(p.Constraints))
	for _, con := range p.Constraints {
		if con.Min <= 0 {
			continue
		}
		vars := make([]int, 0, len(con.Vars))
		in := make(map[int]struct{}, len(con.Vars))
		for _, v := range con.Vars {
			j, ok := idx[v]
			if !ok {
				return nil, fmt.Errorf("constraint %q references unknown variable %d", con.Name, v)
			}
			if _, dup := in[j]; dup {
				continue
			}
			in[j] = struct{}{}
			vars = append(vars, j)
		}
		sort.Ints(vars)
		key := signature(vars, con.Min)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		c.cons = append(c.cons, vars)
		c.need = append(c.need, con.Min)
	}
	c.dropDominated()
	return c, nil
}

func signature(vars []int, min int) string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(min))
	for _, v := range vars {
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(v))
	}
	return sb.String()
}

// dropDominated removes single-cover constraints implied by a constraint over
// a subset of their variables.
func (c *compiled) dropDominated() {
	keep := make([]bool, len(c.cons))
	for i := range keep {
		keep[i] = true
	}
	for i := range c.cons {
		if c.need[i] != 1 {
			continue
		}
		for j := range c.cons {
			if i == j || !keep[j] || c.need[j] != 1 || len(c.cons[j]) > len(c.cons[i]) {
				continue
			}
			if len(c.cons[j]) == len(c.cons[i]) && j > i {
				continue
			}
			if subset(c.cons[j], c.cons[i]) {
				keep[i] = false
				break
			}
		}
	}
	cons, need := c.cons[:0], c.need[:0]
	for i, k := range keep {
		if k {
			cons = append(cons, c.cons[i])
			need = append(need, c.need[i])
		}
	}
	c.cons, c.need = cons, need
}

// subset reports whether sorted a is contained in sorted b.
func subset(a, b []int) bool {
	j := 0
	for _, v := range a {
		for j < len(b) && b[j] < v {
			j++
		}
		if j == len(b) || b[j] != v {
			return false
		}
	}
	return true
}

func (c *compiled) feasible() bool {
	for i, vars := range c.cons {
		if len(vars) < c.need[i] {
			return false
		}
	}
	return true
}

// greedy picks, until every constraint is met, the variable appearing in most
// unmet constraints, then drops selections made redundant by later picks.
func (c *compiled) greedy() []bool {
	chosen := make([]bool, len(c.ids))
	need := append([]int(nil), c.need...)
	for {
		counts := make([]int, len(c.ids))
		open := false
		for i, vars := range c.cons {
			if need[i] <= 0 {
				continue
			}
			open = true
			for _, v := range vars {
				if !chosen[v] {
					counts[v]++
				}
			}
		}
		if !open {
			break
		}
		best := -1
		for v, n := range counts {
			if n > 0 && (best < 0 || n > counts[best]) {
				best = v
			}
		}
		chosen[best] = true
		for i, vars := range c.cons {
			for _, v := range vars {
				if v == best {
					need[i]--
				}
			}
		}
	}
	for v := len(chosen) - 1; v >= 0; v-- {
		if !chosen[v] {
			continue
		}
		chosen[v] = false
		if !c.satisfied(chosen) {
			chosen[v] = true
		}
	}
	return chosen
}

func (c *compiled) satisfied(x []bool) bool {
	for i, vars := range c.cons {
		n := 0
		for _, v := range vars {
			if x[v] {
				n++
			}
		}
		if n < c.need[i] {
			return false
		}
	}
	return true
}

func count(x []bool) int {
	n := 0
	for _, b := range x {
		if b {
			n++
		}
	}
	return n
}

// fixing values: -1 free, 0 or 1 fixed.
type node []int8

type relaxation struct {
	feasible bool
	value    float64
	x        []float64
}

// relax solves the LP relaxation with the fixings of nd applied.
func (c *compiled) relax(nd node) (relaxation, error) {
	x := make([]float64, len(c.ids))
	ones := 0
	for v, f := range nd {
		if f == 1 {
			x[v] = 1
			ones++
		}
	}
	type row struct {
		vars []int
		rhs  int
	}
	var rows []row
	col := make(map[int]int)
	var active []int
	for i, vars := range c.cons {
		r := c.need[i]
		var free []int
		for _, v := range vars {
			switch nd[v] {
			case 1:
				r--
			case -1:
				free = append(free, v)
			}
		}
		if r <= 0 {
			continue
		}
		if len(free) < r {
			return relaxation{}, nil
		}
		for _, v := range free {
			if _, ok := col[v]; !ok {
				col[v] = -1
				active = append(active, v)
			}
		}
		rows = append(rows, row{vars: free, rhs: r})
	}
	if len(rows) == 0 {
		return relaxation{feasible: true, value: float64(ones), x: x}, nil
	}
	sort.Ints(active)
	for i, v := range active {
		col[v] = i
	}

	// Standard form over x (n), surplus s (m) and upper-bound slack t (n):
	//   sum x - s = rhs   for every residual constraint
	//   x + t = 1         for every active variable
	n, m := len(active), len(rows)
	a := mat.NewDense(m+n, 2*n+m, nil)
	b := make([]float64, m+n)
	cost := make([]float64, 2*n+m)
	for i, r := range rows {
		for _, v := range r.vars {
			a.Set(i, col[v], 1)
		}
		a.Set(i, n+i, -1)
		b[i] = float64(r.rhs)
	}
	for k := 0; k < n; k++ {
		a.Set(m+k, k, 1)
		a.Set(m+k, n+m+k, 1)
		b[m+k] = 1
		cost[k] = 1
	}
	opt, sol, err := relaxLP(cost, a, b)
	if errors.Is(err, lp.ErrInfeasible) {
		return relaxation{}, nil
	}
	if err != nil {
		return relaxation{}, fmt.Errorf("lp relaxation: %w", err)
	}
	for k, v := range active {
		x[v] = sol[k]
	}
	return relaxation{feasible: true, value: float64(ones) + opt, x: x}, nil
}

// branchVar returns the free variable whose relaxed value is closest to 0.5,
// or -1 when the relaxation is integral.
func branchVar(nd node, x []float64) int {
	best, bestDist := -1, 0.5
	for v, val := range x {
		if nd[v] != -1 {
			continue
		}
		if val < intTol || val > 1-intTol {
			continue
		}
		if d := math.Abs(val - 0.5); best < 0 || d < bestDist {
			best, bestDist = v, d
		}
	}
	return best
}

func lowerBound(v float64) int { return int(math.Ceil(v - intTol)) }

// Solve implements Solver.
func (s *BranchAndBound) Solve(ctx context.Context, p Problem) (Solution, error) {
	start := s.now()
	c, err := compile(p)
	if err != nil {
		return Solution{}, err
	}
	if !c.feasible() {
		s.log.Warnf("problem %s infeasible: a constraint has fewer variables than required", p.Name)
		return Solution{Status: StatusInfeasible, Elapsed: s.now().Sub(start)}, nil
	}

	incumbent := c.greedy()
	best := count(incumbent)
	var deadline time.Time
	if s.limits.TimeLimit > 0 {
		deadline = start.Add(s.limits.TimeLimit)
	}

	root := make(node, len(c.ids))
	for i := range root {
		root[i] = -1
	}
	stack := []node{root}
	bound := 0
	explored := 0
	status := StatusOptimal

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			if !errors.Is(err, context.DeadlineExceeded) {
				return Solution{}, err
			}
			status = StatusLimit
			break
		}
		if !deadline.IsZero() && !s.now().Before(deadline) {
			status = StatusLimit
			break
		}
		if s.limits.MaxNodes > 0 && explored >= s.limits.MaxNodes {
			status = StatusLimit
			break
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		rel, err := c.relax(nd)
		if err != nil {
			return Solution{}, err
		}
		explored++
		if !rel.feasible {
			continue
		}
		lb := lowerBound(rel.value)
		if explored == 1 {
			bound = lb
		}
		if lb >= best {
			continue
		}
		v := branchVar(nd, rel.x)
		if v < 0 {
			x := make([]bool, len(rel.x))
			for i, val := range rel.x {
				x[i] = val > 1-intTol
			}
			incumbent, best = x, count(x)
			s.log.Debugf("problem %s: incumbent improved to %d after %d nodes", p.Name, best, explored)
		} else {
			zero := append(node(nil), nd...)
			zero[v] = 0
			one := append(node(nil), nd...)
			one[v] = 1
			stack = append(stack, zero, one)
		}
		if best <= bound {
			break
		}
		if s.limits.GapTolerance > 0 && float64(best-bound)/float64(best) <= s.limits.GapTolerance {
			status = StatusLimit
			break
		}
	}
	if status == StatusOptimal {
		bound = best
	}

	sol := Solution{Status: status, Bound: float64(bound), Nodes: explored, Elapsed: s.now().Sub(start)}
	for v, on := range incumbent {
		if on {
			sol.Selected = append(sol.Selected, c.ids[v])
		}
	}
	s.log.Infof("problem %s solved: status=%s objective=%d bound=%d nodes=%d", p.Name, status, best, bound, explored)
	return sol, nil
}
