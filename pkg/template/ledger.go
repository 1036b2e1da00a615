package template

import (
	"fmt"

	"github.com/vango-dev/vtemplate/pkg/dom"
	"golang.org/x/net/html"
)

// Ledger records what Apply changed on one node so that Revert can restore
// it. Ledgers form a tree mirroring the applied definition.
type Ledger struct {
	isText    bool
	priorText string

	priorAttributes map[attrName]*string
	attrOrder       []attrName

	children  []*Ledger
	teardowns [][]func()

	journal *journal
}

type attrName struct {
	ns   string
	name string
}

// journal holds every teardown group of a ledger tree in activation order.
type journal struct {
	groups [][]func()
}

func newLedger(j *journal) *Ledger {
	if j == nil {
		j = &journal{}
	}
	return &Ledger{priorAttributes: make(map[attrName]*string), journal: j}
}

func (l *Ledger) child() *Ledger {
	c := newLedger(l.journal)
	l.children = append(l.children, c)
	return c
}

// snapshotText records the prior text of a text node.
func (l *Ledger) snapshotText(text string) {
	l.isText = true
	l.priorText = text
}

// snapshotAttribute records the prior value of an attribute the first time
// it is touched. A nil value means the attribute was absent.
func (l *Ledger) snapshotAttribute(node *html.Node, ns, name string) {
	key := attrName{ns: ns, name: name}
	if _, ok := l.priorAttributes[key]; ok {
		return
	}
	var prior *string
	if v, ok := dom.GetAttribute(node, ns, name); ok {
		prior = &v
	}
	l.priorAttributes[key] = prior
	l.attrOrder = append(l.attrOrder, key)
}

// push records one teardown group.
func (l *Ledger) push(teardowns ...func()) {
	if len(teardowns) == 0 {
		return
	}
	l.teardowns = append(l.teardowns, teardowns)
	l.journal.groups = append(l.journal.groups, teardowns)
}

// PriorText returns the text recorded for a text node.
func (l *Ledger) PriorText() (string, bool) {
	return l.priorText, l.isText
}

// PriorAttribute returns the recorded value of an attribute. present is
// false when the attribute did not exist before Apply, recorded is false
// when Apply never touched it.
func (l *Ledger) PriorAttribute(ns, name string) (value string, present, recorded bool) {
	prior, recorded := l.priorAttributes[attrName{ns: ns, name: name}]
	if !recorded || prior == nil {
		return "", false, recorded
	}
	return *prior, true, true
}

// Children returns the ledgers of the applied children, in order.
func (l *Ledger) Children() []*Ledger { return l.children }

// Teardowns returns the number of teardown groups recorded on this node.
func (l *Ledger) Teardowns() int { return len(l.teardowns) }

// check verifies that node still has the structure it had when applied.
func (l *Ledger) check(node *html.Node) error {
	if node == nil {
		return fmt.Errorf("%w: node is gone", ErrStructuralMismatch)
	}
	if l.isText {
		if node.Type != html.TextNode {
			return fmt.Errorf("%w: expected a text node", ErrStructuralMismatch)
		}
		return nil
	}
	if node.Type != html.ElementNode {
		return fmt.Errorf("%w: expected an element", ErrStructuralMismatch)
	}
	if n := dom.ChildCount(node); n != len(l.children) {
		return fmt.Errorf("%w: <%s> has %d children, %d were applied", ErrStructuralMismatch, node.Data, n, len(l.children))
	}
	i := 0
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if err := l.children[i].check(c); err != nil {
			return err
		}
		i++
	}
	return nil
}

// teardown runs every teardown of the tree in activation order.
func (l *Ledger) teardown() {
	groups := l.journal.groups
	l.journal.groups = nil
	for _, group := range groups {
		for _, fn := range group {
			fn()
		}
	}
}

// restore puts back the recorded text or attributes, then recurses into
// the children positionally.
func (l *Ledger) restore(doc *dom.Document, node *html.Node) {
	if l.isText {
		if node.Data != l.priorText {
			doc.SetTextContent(node, l.priorText)
		}
		return
	}
	for _, key := range l.attrOrder {
		prior := l.priorAttributes[key]
		current, present := dom.GetAttribute(node, key.ns, key.name)
		switch {
		case prior == nil && present:
			doc.RemoveAttribute(node, key.ns, key.name)
		case prior != nil && (!present || current != *prior):
			doc.SetAttribute(node, key.ns, key.name, *prior)
		}
	}
	i := 0
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		l.children[i].restore(doc, c)
		i++
	}
}
