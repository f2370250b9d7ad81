package timing

import (
	"fmt"
	"strconv"
	"strings"
)

type selectMode int

const (
	selectOne selectMode = iota
	selectFirst
	selectLast
)

// expression is a compiled timing expression.
type expression struct {
	source string
	mode   selectMode
	phases []Phase
	offset float64
}

func (e *expression) Arrival(distance, depth float64) (float64, bool) {
	if len(e.phases) == 0 {
		return e.offset, true
	}
	var (
		best  float64
		found bool
	)
	for _, p := range e.phases {
		tt, ok := p.Arrival(distance, depth)
		if !ok {
			continue
		}
		switch {
		case !found:
			best, found = tt, true
		case e.mode == selectFirst && tt < best:
			best = tt
		case e.mode == selectLast && tt > best:
			best = tt
		}
	}
	if !found {
		return 0, false
	}
	return best + e.offset, true
}

func (e *expression) String() string {
	return e.source
}

// Parse compiles a timing expression against the model.
func (m *Model) Parse(source string) (Func, error) {
	text := strings.TrimSpace(source)
	if text == "" {
		return nil, fmt.Errorf("timing expression is empty")
	}

	if offset, err := strconv.ParseFloat(text, 64); err == nil {
		return &expression{source: source, offset: offset}, nil
	}

	head, offset, err := splitOffset(text)
	if err != nil {
		return nil, fmt.Errorf("timing %q: %w", source, err)
	}

	expr := &expression{source: source, offset: offset}
	names := []string{head}
	switch {
	case strings.HasPrefix(head, "first(") && strings.HasSuffix(head, ")"):
		expr.mode = selectFirst
		names = strings.Split(head[len("first("):len(head)-1], "|")
	case strings.HasPrefix(head, "last(") && strings.HasSuffix(head, ")"):
		expr.mode = selectLast
		names = strings.Split(head[len("last("):len(head)-1], "|")
	}

	for _, name := range names {
		name = strings.TrimSpace(name)
		p, ok := m.Phase(name)
		if !ok {
			return nil, fmt.Errorf("timing %q: unknown phase %q", source, name)
		}
		expr.phases = append(expr.phases, p)
	}
	if expr.mode == selectOne && len(expr.phases) != 1 {
		return nil, fmt.Errorf("timing %q: expected a single phase", source)
	}
	return expr, nil
}

// ParseAll compiles a list of expressions.
func (m *Model) ParseAll(sources []string) ([]Func, error) {
	funcs := make([]Func, 0, len(sources))
	for _, src := range sources {
		f, err := m.Parse(src)
		if err != nil {
			return nil, err
		}
		funcs = append(funcs, f)
	}
	return funcs, nil
}

// splitOffset separates "NAME+12.5" into "NAME" and 12.5. The offset starts
// at the first sign after the phase head, so exponents stay in the number.
// The sign search starts after any closing parenthesis so phase lists are
// left intact.
func splitOffset(text string) (string, float64, error) {
	start := strings.LastIndex(text, ")") + 1
	idx := strings.IndexAny(text[start:], "+-")
	if idx < 0 {
		return text, 0, nil
	}
	idx += start
	head := strings.TrimSpace(text[:idx])
	if head == "" {
		return "", 0, fmt.Errorf("missing phase before offset")
	}
	number := strings.Join(strings.Fields(text[idx:]), "")
	offset, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return "", 0, fmt.Errorf("invalid offset %q", text[idx:])
	}
	return head, offset, nil
}
