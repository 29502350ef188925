// Package newick parses Newick-format phylogenetic trees into a binary tree
// carrying cumulative branch lengths, per spec §4.A. Only strictly binary
// topologies are accepted; everything else is rejected as an input-parse
// error naming the offending node.
package newick

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	apperrors "github.com/tanglegram/tangleopt/pkg/errors"
)

// RawNode is a single parsed Newick node: a leaf carries a label and no
// children, an internal node carries exactly two children and no label.
type RawNode struct {
	ID              int
	Label           string
	BranchLength    float64 // math.Inf(1) if absent from the source text
	CumBranchLength float64
	Children        []*RawNode
}

// IsLeaf reports whether n has no children.
func (n *RawNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// Tree is the parsed result of one Newick string.
type Tree struct {
	Root               *RawNode
	MaxCumBranchLength float64
	leaves             []*RawNode // left-to-right order of appearance
}

// Leaves returns the tree's leaves in left-to-right (Newick source) order.
func (t *Tree) Leaves() []*RawNode {
	return t.leaves
}

// Parse parses a Newick string into a Tree. Non-binary internal nodes (any
// node with a child count other than 0 or 2) are rejected.
func Parse(s string) (*Tree, error) {
	p := &parser{src: s}
	p.skipSpace()
	root, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.peekRune() == ';' {
		p.pos++
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, apperrors.Newf(apperrors.CodeInputParse,
			"unexpected trailing input at position %d: %q", p.pos, p.src[p.pos:])
	}
	if root.IsLeaf() {
		return nil, apperrors.New(apperrors.CodeInputParse,
			"root must have two children, got a single leaf")
	}

	t := &Tree{Root: root}
	assignIDs(root)
	computeCumLength(root, 0, &t.MaxCumBranchLength)
	collectLeaves(root, &t.leaves)
	return t, nil
}

// parser is a small hand-rolled recursive-descent Newick reader.
type parser struct {
	src string
	pos int
}

func (p *parser) peekRune() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			p.pos++
			continue
		}
		break
	}
}

// parseNode parses one subtree: either a parenthesized internal node or a
// leaf label, each optionally followed by ":" branch-length.
func (p *parser) parseNode() (*RawNode, error) {
	p.skipSpace()
	n := &RawNode{BranchLength: math.Inf(1)}

	if p.peekRune() == '(' {
		p.pos++
		for {
			p.skipSpace()
			child, err := p.parseNode()
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
			p.skipSpace()
			c := p.peekRune()
			if c == ',' {
				p.pos++
				continue
			}
			if c == ')' {
				p.pos++
				break
			}
			return nil, apperrors.Newf(apperrors.CodeInputParse,
				"expected ',' or ')' at position %d, got %q", p.pos, string(c))
		}
		if len(n.Children) != 2 {
			return nil, apperrors.Newf(apperrors.CodeInputParse,
				"internal node at position %d has %d children, tree must be strictly binary",
				p.pos, len(n.Children))
		}
	} else {
		label, err := p.parseLabel()
		if err != nil {
			return nil, err
		}
		if label == "" {
			return nil, apperrors.Newf(apperrors.CodeInputParse,
				"expected a leaf label at position %d", p.pos)
		}
		n.Label = label
	}

	p.skipSpace()
	if p.peekRune() == ':' {
		p.pos++
		p.skipSpace()
		bl, err := p.parseBranchLength()
		if err != nil {
			return nil, err
		}
		n.BranchLength = bl
	}
	return n, nil
}

// parseLabel reads an unquoted token up to the next structural character, or
// a single-quoted label that may contain any of those characters literally.
func (p *parser) parseLabel() (string, error) {
	if p.peekRune() == '\'' {
		p.pos++
		start := p.pos
		for p.pos < len(p.src) && p.src[p.pos] != '\'' {
			p.pos++
		}
		if p.pos >= len(p.src) {
			return "", apperrors.New(apperrors.CodeInputParse, "unterminated quoted label")
		}
		label := p.src[start:p.pos]
		p.pos++ // consume closing quote
		return label, nil
	}

	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '(' || c == ')' || c == ',' || c == ':' || c == ';' ||
			c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			break
		}
		p.pos++
	}
	label := strings.ReplaceAll(p.src[start:p.pos], "_", " ")
	return label, nil
}

func (p *parser) parseBranchLength() (float64, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+' || c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		break
	}
	raw := p.src[start:p.pos]
	if raw == "" {
		return 0, apperrors.Newf(apperrors.CodeInputParse, "expected a branch length at position %d", p.pos)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInputParse, fmt.Sprintf("invalid branch length %q", raw), err)
	}
	return v, nil
}

// assignIDs implements spec §4.A's id scheme: leaves get fresh ids in
// left-to-right order, each internal node's id is right_child.id + 1,
// assigned only once both children have ids.
func assignIDs(n *RawNode) {
	next := 0
	var walk func(*RawNode)
	walk = func(n *RawNode) {
		if n.IsLeaf() {
			n.ID = next
			next++
			return
		}
		walk(n.Children[0])
		walk(n.Children[1])
		n.ID = n.Children[1].ID + 1
	}
	walk(n)
}

func computeCumLength(n *RawNode, parentCum float64, max *float64) {
	cum := parentCum
	if !math.IsInf(n.BranchLength, 1) {
		cum = parentCum + n.BranchLength
	} else {
		cum = math.Inf(1)
	}
	n.CumBranchLength = cum
	if cum > *max {
		*max = cum
	}
	for _, c := range n.Children {
		computeCumLength(c, cum, max)
	}
}

func collectLeaves(n *RawNode, out *[]*RawNode) {
	if n.IsLeaf() {
		*out = append(*out, n)
		return
	}
	for _, c := range n.Children {
		collectLeaves(c, out)
	}
}
