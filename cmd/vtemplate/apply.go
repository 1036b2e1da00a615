package main

import (
	"bytes"
	"os"

	"github.com/spf13/cobra"
	"github.com/vango-dev/vtemplate/internal/errors"
	"github.com/vango-dev/vtemplate/pkg/dom"
)

func applyCmd() *cobra.Command {
	var (
		input  string
		target string
		sets   []string
		revert bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "apply <template.yaml>",
		Short: "Apply a template onto existing markup",
		Long: `Apply a template onto an element of an existing HTML page and print
the resulting document.

The target element must have the same shape as the template: the same
number of children at every level. Bound attributes are merged into the
existing ones.

With --revert the template is applied, then reverted, and the command
fails unless the page is back to its original markup.

Examples:
  vtemplate apply toolbar.yaml --input page.html --target "#toolbar"
  vtemplate apply toolbar.yaml --input page.html --target nav --revert`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(input)
			if err != nil {
				return errors.New("X004").WithLocation(input, 0, 0).Wrap(err)
			}
			doc, err := dom.ParseDocument(bytes.NewReader(data))
			if err != nil {
				return errors.New("X004").WithLocation(input, 0, 0).Wrap(err)
			}
			node, err := doc.Query(target)
			if err != nil {
				return errors.New("X003").Wrap(err)
			}
			if node == nil {
				return errors.New("X003").WithDetail("No element of " + input + " matches " + target)
			}

			v, err := buildView(doc, args[0], sets)
			if err != nil {
				return err
			}
			before := doc.String()
			if err := v.ApplyTo(node); err != nil {
				return errors.FromTemplate(err).WithLocation(args[0], 0, 0)
			}
			applied := doc.String()

			if !revert {
				return writeOutput(cmd, output, applied)
			}

			// Destroy reverts an applied view.
			if err := v.Destroy(); err != nil {
				return errors.FromTemplate(err).WithLocation(args[0], 0, 0)
			}
			if after := doc.String(); after != before {
				return errors.New("T004").
					WithDetail("The page differs from its original markup after revert.").
					WithExample(after)
			}
			success(cmd.ErrOrStderr(), "Applied and reverted %s on %s", args[0], target)
			info(cmd.ErrOrStderr(), "%d DOM writes", doc.Writes())
			return writeOutput(cmd, output, applied)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "HTML page to apply the template to")
	cmd.Flags().StringVarP(&target, "target", "t", "body > *", "CSS selector of the element to apply onto")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Override a model value (name=value)")
	cmd.Flags().BoolVar(&revert, "revert", false, "Revert after applying and verify the page is restored")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write HTML to a file instead of stdout")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}
