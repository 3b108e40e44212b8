package main

import (
	"fmt"
	"strconv"
	"strings"

	"albumscan/pkg/export"
)

// exportEdits are the collection edits given on the command line.
// Item numbers are 1-based.
type exportEdits struct {
	moves      [][2]int
	rotations  [][2]int
	exclude    []int
	skipLowRes bool
	invert     bool
}

func (e exportEdits) apply(c *export.Collection) error {
	for _, m := range e.moves {
		if err := c.Move(m[0]-1, m[1]-1); err != nil {
			return fmt.Errorf("move %d:%d: %w", m[0], m[1], err)
		}
	}
	for _, r := range e.rotations {
		if err := c.Rotate(r[0]-1, r[1]); err != nil {
			return fmt.Errorf("rotate %d: %w", r[0], err)
		}
	}

	excluded := make(map[int]bool, len(e.exclude))
	for _, n := range e.exclude {
		if excluded[n-1] {
			continue
		}
		if err := c.Toggle(n - 1); err != nil {
			return fmt.Errorf("exclude %d: %w", n, err)
		}
		excluded[n-1] = true
	}

	if e.skipLowRes {
		for i := 0; i < c.Len(); i++ {
			if c.LowRes(i) && !excluded[i] {
				if err := c.Toggle(i); err != nil {
					return err
				}
			}
		}
	}

	if e.invert {
		c.Invert()
	}
	return nil
}

// parsePairs parses "a:b" arguments into integer pairs
func parsePairs(args []string) ([][2]int, error) {
	var out [][2]int
	for _, arg := range args {
		a, b, ok := strings.Cut(arg, ":")
		if !ok {
			return nil, fmt.Errorf("%q is not in the form a:b", arg)
		}
		x, err := strconv.Atoi(strings.TrimSpace(a))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", arg, err)
		}
		y, err := strconv.Atoi(strings.TrimSpace(b))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", arg, err)
		}
		out = append(out, [2]int{x, y})
	}
	return out, nil
}
