// Package parse reads the line-oriented text format of spec.md §6.1 into a
// *crn.Network and initial state: species-initialisation lines, reaction
// lines, comments, and blank lines, across one or more concatenated
// sources. Grounded on the line-classification shape of a bufio.Scanner
// plus regexp, the pattern other_examples/ and the pack's parser-style
// files use for small line-oriented formats rather than a full grammar/
// parser-combinator library.
package parse

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/tausplit/tausplit/crn"
)

var (
	speciesLineRe  = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(\d+)$`)
	reactionLineRe = regexp.MustCompile(`^(.*?)->(.*?),\s*([0-9]*\.?[0-9]+(?:[eE][+-]?[0-9]+)?)$`)
	termRe         = regexp.MustCompile(`^(?:(\d+)\s+)?([A-Za-z_][A-Za-z0-9_]*)$`)
)

// Result holds the network and initial state produced by parsing one or
// more input sources.
type Result struct {
	Network *crn.Network
	Initial crn.State
}

// builder accumulates species and reactions across however many sources are
// fed to it via Parse before Build is called.
type builder struct {
	order     []string
	index     map[string]crn.SpeciesIndex
	initial   []int64
	reactions []*crn.Reaction
}

func newBuilder() *builder {
	return &builder{index: make(map[string]crn.SpeciesIndex)}
}

// Parse reads every source in order, concatenating them as if they were one
// file (spec.md §6.1 "multiple input files compose by concatenation"), and
// returns the resulting network and initial state. Line numbers in errors
// are per-source, 1-based, matching spec.md §7's ParseError shape.
func Parse(sources ...io.Reader) (*Result, error) {
	b := newBuilder()
	for _, src := range sources {
		if err := b.readSource(src); err != nil {
			return nil, err
		}
	}
	return b.build()
}

func (b *builder) readSource(src io.Reader) error {
	scanner := bufio.NewScanner(src)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "#"):
			continue
		default:
			if err := b.parseLine(lineNo, line); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("parse: reading input: %w", err)
	}
	return nil
}

func (b *builder) parseLine(lineNo int, line string) error {
	if m := speciesLineRe.FindStringSubmatch(line); m != nil {
		return b.declareSpecies(lineNo, line, m[1], m[2])
	}
	if m := reactionLineRe.FindStringSubmatch(line); m != nil {
		return b.declareReaction(lineNo, line, m[1], m[2], m[3])
	}
	return &crn.ParseError{Line: lineNo, Text: line, Reason: "matches neither a species declaration (IDENT = NAT) nor a reaction (LHS -> RHS, RATE)"}
}

func (b *builder) declareSpecies(lineNo int, line, name, countText string) error {
	if _, exists := b.index[name]; exists {
		return &crn.ParseError{Line: lineNo, Text: line, Reason: fmt.Sprintf("species %q declared more than once", name)}
	}
	count, err := strconv.ParseInt(countText, 10, 64)
	if err != nil || count < 0 {
		return &crn.ParseError{Line: lineNo, Text: line, Reason: fmt.Sprintf("invalid initial count %q", countText)}
	}
	b.index[name] = crn.SpeciesIndex(len(b.order))
	b.order = append(b.order, name)
	b.initial = append(b.initial, count)
	return nil
}

func (b *builder) declareReaction(lineNo int, line, lhs, rhs, rateText string) error {
	reactants, err := b.parseTerms(lineNo, line, lhs)
	if err != nil {
		return err
	}
	products, err := b.parseTerms(lineNo, line, rhs)
	if err != nil {
		return err
	}
	rate, err := strconv.ParseFloat(rateText, 64)
	if err != nil || rate <= 0 {
		return &crn.NumericError{ReactionIndex: len(b.reactions), Reason: fmt.Sprintf("rate %q is not a positive finite number", rateText)}
	}
	b.reactions = append(b.reactions, crn.NewReaction(reactants, products, rate))
	return nil
}

func (b *builder) parseTerms(lineNo int, line, side string) ([]crn.Term, error) {
	side = strings.TrimSpace(side)
	if side == "" {
		return nil, nil
	}
	var terms []crn.Term
	for _, raw := range strings.Split(side, "+") {
		text := strings.TrimSpace(raw)
		m := termRe.FindStringSubmatch(text)
		if m == nil {
			return nil, &crn.ParseError{Line: lineNo, Text: line, Reason: fmt.Sprintf("malformed term %q", text)}
		}
		coeff := uint64(1)
		if m[1] != "" {
			parsed, err := strconv.ParseUint(m[1], 10, 64)
			if err != nil || parsed == 0 {
				return nil, &crn.ParseError{Line: lineNo, Text: line, Reason: fmt.Sprintf("invalid coefficient %q", m[1])}
			}
			coeff = parsed
		}
		idx, ok := b.index[m[2]]
		if !ok {
			return nil, &crn.UndeclaredSpeciesError{Line: lineNo, Name: m[2]}
		}
		terms = append(terms, crn.Term{Species: idx, Coeff: coeff})
	}
	return terms, nil
}

func (b *builder) build() (*Result, error) {
	species := make([]crn.Species, len(b.order))
	for i, name := range b.order {
		species[i] = crn.Species{Name: name, Index: crn.SpeciesIndex(i)}
	}
	network := crn.NewNetwork(species, b.reactions)
	return &Result{Network: network, Initial: crn.State(b.initial)}, nil
}

// Serialize writes network and initial back out in the same line-oriented
// format Parse reads, species declarations first in declaration order, then
// reactions in declaration order. Used by the round-trip test of spec.md
// §8: Parse(Serialize(r)) must reproduce an equivalent network.
func Serialize(w io.Writer, network *crn.Network, initial crn.State) error {
	bw := bufio.NewWriter(w)
	for _, sp := range network.Species {
		if _, err := fmt.Fprintf(bw, "%s = %d\n", sp.Name, initial[sp.Index]); err != nil {
			return err
		}
	}
	for _, rxn := range network.Reactions {
		lhs := serializeTerms(network.Species, rxn.Reactants)
		rhs := serializeTerms(network.Species, rxn.Products)
		if _, err := fmt.Fprintf(bw, "%s -> %s, %s\n", lhs, rhs, strconv.FormatFloat(rxn.Rate, 'g', -1, 64)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func serializeTerms(species []crn.Species, terms []crn.Term) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		if t.Coeff == 1 {
			parts[i] = species[t.Species].Name
		} else {
			parts[i] = fmt.Sprintf("%d %s", t.Coeff, species[t.Species].Name)
		}
	}
	return strings.Join(parts, " + ")
}
