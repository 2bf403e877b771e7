// Package voice turns a spoken sentence into a transaction proposal.
//
// Parsing is a fixed-priority cascade: explicit income phrasings first, then
// explicit expense phrasings, then a generic fallback that only needs a
// number somewhere in the sentence. The first stage that matches wins.
package voice

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"lawnledger/internal/core"
)

// ErrUnrecognizedUtterance is matched by every *ParseError.
var ErrUnrecognizedUtterance = errors.New("unrecognized utterance")

// ParseError reports a transcript the parser could not turn into a proposal.
// The transcript is kept so the caller can offer it back for correction.
type ParseError struct {
	Transcript string
}

func (e *ParseError) Error() string {
	return ErrUnrecognizedUtterance.Error()
}

func (e *ParseError) Unwrap() error {
	return ErrUnrecognizedUtterance
}

// Proposal is a parsed but not yet recorded transaction.
type Proposal struct {
	Amount      core.Money `json:"amount"`
	Description string     `json:"description"`
	Kind        core.Kind  `json:"type"`
}

// Rule maps a keyword to the kind it implies. The order of a rule table is
// its priority order.
type Rule struct {
	Keyword string
	Kind    core.Kind
}

// DefaultRules is the English keyword table.
var DefaultRules = []Rule{
	{Keyword: "made", Kind: core.Income},
	{Keyword: "earned", Kind: core.Income},
	{Keyword: "income", Kind: core.Income},
	{Keyword: "spent", Kind: core.Expense},
	{Keyword: "paid", Kind: core.Expense},
	{Keyword: "expense", Kind: core.Expense},
}

const numberPattern = `\d+(?:\.\d+)?`

var (
	numberRe     = regexp.MustCompile(numberPattern)
	whitespaceRe = regexp.MustCompile(`\s+`)

	// Words that carry no description meaning in the fallback stage.
	fillerWords = []string{"i", "of", "for", "from", "on", "dollar", "dollars", "bucks"}
)

type matcher struct {
	re   *regexp.Regexp
	kind core.Kind
}

// Parser is safe for concurrent use.
type Parser struct {
	matchers        []matcher
	expenseKeywords map[string]struct{}
	stripWords      map[string]struct{}
}

// Option configures a Parser.
type Option func(*[]Rule)

// WithRules appends rules after the existing ones. Within each kind, rules
// keep the order they were given in.
func WithRules(rules ...Rule) Option {
	return func(rs *[]Rule) {
		*rs = append(*rs, rules...)
	}
}

// NewParser compiles the rule table. Income rules are always tried before
// expense rules regardless of their position in the table.
func NewParser(opts ...Option) *Parser {
	rules := append([]Rule(nil), DefaultRules...)
	for _, opt := range opts {
		opt(&rules)
	}

	p := &Parser{
		expenseKeywords: map[string]struct{}{},
		stripWords:      map[string]struct{}{},
	}
	for _, w := range fillerWords {
		p.stripWords[w] = struct{}{}
	}
	for _, kind := range []core.Kind{core.Income, core.Expense} {
		for _, r := range rules {
			if r.Kind != kind {
				continue
			}
			kw := strings.ToLower(strings.TrimSpace(r.Keyword))
			if kw == "" {
				continue
			}
			p.matchers = append(p.matchers, matcher{re: compileRule(kw), kind: kind})
			p.stripWords[kw] = struct{}{}
			if kind == core.Expense {
				p.expenseKeywords[kw] = struct{}{}
			}
		}
	}
	return p
}

// compileRule builds the full-sentence pattern for one keyword, e.g.
// "made 50", "i earned 20 dollars from lawn mowing", "expense of 12.5 for gas".
func compileRule(keyword string) *regexp.Regexp {
	return regexp.MustCompile(`^(?:i )?` + regexp.QuoteMeta(keyword) +
		` (?:of )?(` + numberPattern + `)(?: (?:dollars?|bucks))?(?: (?:for|from) (.+))?$`)
}

// Parse converts an utterance into a proposal or returns a *ParseError.
func (p *Parser) Parse(text string) (Proposal, error) {
	norm := normalize(text)
	fail := &ParseError{Transcript: text}

	for _, m := range p.matchers {
		sub := m.re.FindStringSubmatch(norm)
		if sub == nil {
			continue
		}
		amount, err := parseAmount(sub[1])
		if err != nil {
			return Proposal{}, fail
		}
		desc := strings.TrimSpace(sub[2])
		if desc == "" {
			desc = m.kind.String()
		}
		return Proposal{Amount: amount, Description: desc, Kind: m.kind}, nil
	}

	return p.fallback(norm, fail)
}

func (p *Parser) fallback(norm string, fail *ParseError) (Proposal, error) {
	loc := numberRe.FindStringIndex(norm)
	if loc == nil {
		return Proposal{}, fail
	}
	amount, err := parseAmount(norm[loc[0]:loc[1]])
	if err != nil {
		return Proposal{}, fail
	}

	rest := strings.Fields(norm[:loc[0]] + " " + norm[loc[1]:])
	kind := core.Income
	words := rest[:0]
	for _, w := range rest {
		if _, ok := p.expenseKeywords[w]; ok {
			kind = core.Expense
		}
		if _, ok := p.stripWords[w]; ok || !hasWordChar(w) {
			continue
		}
		words = append(words, w)
	}
	desc := strings.Join(words, " ")
	if desc == "" {
		desc = kind.String()
	}

	prop := Proposal{Amount: amount, Description: desc, Kind: kind}
	if prop.Description == "" || !prop.Kind.Valid() || prop.Amount.Validate() != nil {
		return Proposal{}, fail
	}
	return prop, nil
}

// normalize lower-cases, trims, collapses whitespace and drops trailing
// sentence punctuation that recognizers like to append.
func normalize(text string) string {
	s := whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), " ")
	return strings.TrimSpace(strings.TrimRight(s, ".!?"))
}

// hasWordChar reports whether w has a letter or digit. Stray symbols such
// as "$" or "-" are not part of a description.
func hasWordChar(w string) bool {
	return strings.IndexFunc(w, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsNumber(r)
	}) >= 0
}

func parseAmount(token string) (core.Money, error) {
	d, err := decimal.NewFromString(token)
	if err != nil {
		return core.Money{}, err
	}
	return core.MoneyFromDecimal(d)
}
