// Package errors provides coded, categorized error messages for the
// vtemplate command line.
//
// Library packages (pkg/template, pkg/view, pkg/templatefile) return plain
// sentinel errors wrapped with %w. The CLI converts them at the edge:
//
//   - template: definition, apply and revert failures (T001-T019)
//   - view: view and collection misuse (T020-T039)
//   - config: vtemplate.json problems (C001-C019)
//   - cli: command usage and input problems (X001-X019)
//
// # Usage
//
//	err := errors.FromTemplate(t.Apply(doc, node)).
//	    WithLocation("toolbar.yaml", 0, 0).
//	    WithSuggestion("Apply the definition to a node with the same shape")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR T002: Structural mismatch
//	//
//	//   toolbar.yaml
//	//
//	//   template: structural mismatch: <nav> has 1 children, definition has 2
//	//
//	//   The definition does not line up with the node it was applied to.
//	//
//	//   Hint: Apply the definition to a node with the same shape
//
// A Printer writes any error in one of three styles: the full report
// above, a compact one-line form, or JSON for log pipelines.
//
//	p := &errors.Printer{Out: os.Stderr, Style: errors.StyleCompact}
//	p.Print(err)
//	// toolbar.yaml: T002: Structural mismatch
//	//   hint: Apply the definition to a node with the same shape
package errors
