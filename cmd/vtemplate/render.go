package main

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vango-dev/vtemplate/internal/errors"
	"github.com/vango-dev/vtemplate/pkg/dom"
	"github.com/vango-dev/vtemplate/pkg/template"
	"github.com/vango-dev/vtemplate/pkg/templatefile"
	"github.com/vango-dev/vtemplate/pkg/view"
	"gopkg.in/yaml.v3"
)

func renderCmd() *cobra.Command {
	var (
		sets       []string
		dispatches []string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "render <template.yaml>",
		Short: "Render a template to HTML",
		Long: `Render a template into a fresh element and print its HTML.

Model values can be overridden with --set; values are parsed as YAML
scalars, so --set bold=true sets a boolean. Events can be dispatched
after rendering with --dispatch selector:event to inspect the result of
listeners.

Examples:
  vtemplate render toolbar.yaml
  vtemplate render toolbar.yaml --set label=Italic --set active=true
  vtemplate render toolbar.yaml --dispatch button:click -o out.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := buildView(dom.NewDocument(), args[0], sets)
			if err != nil {
				return err
			}
			defer v.Destroy()

			if err := v.Render(); err != nil {
				return errors.FromTemplate(err).WithLocation(args[0], 0, 0)
			}
			for _, d := range dispatches {
				if err := dispatch(v, d); err != nil {
					return err
				}
			}
			return writeOutput(cmd, output, dom.Render(v.Element()))
		},
	}

	cmd.Flags().StringArrayVar(&sets, "set", nil, "Override a model value (name=value)")
	cmd.Flags().StringArrayVar(&dispatches, "dispatch", nil, "Dispatch an event after rendering (selector:event)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write HTML to a file instead of stdout")

	return cmd
}

// loadTemplate reads a template file, converting failures to coded errors.
func loadTemplate(path string) (*templatefile.File, error) {
	f, err := templatefile.Load(path)
	switch {
	case err == nil:
		return f, nil
	case stderrors.Is(err, fs.ErrNotExist):
		return nil, errors.New("X001").WithLocation(path, 0, 0).Wrap(err)
	case stderrors.Is(err, template.ErrMalformedDefinition):
		return nil, errors.FromTemplate(err).WithLocation(path, 0, 0)
	default:
		return nil, errors.New("X002").WithLocation(path, 0, 0).Wrap(err)
	}
}

// buildView loads path into an unrendered view of doc and applies the
// --set overrides.
func buildView(doc *dom.Document, path string, sets []string) (*view.View, error) {
	f, err := loadTemplate(path)
	if err != nil {
		return nil, err
	}
	values, err := parseSets(sets)
	if err != nil {
		return nil, err
	}
	v, err := f.NewView(doc)
	if err != nil {
		return nil, errors.FromTemplate(err).WithLocation(path, 0, 0)
	}
	v.SetAll(values)
	return v, nil
}

func parseSets(sets []string) (map[string]any, error) {
	values := make(map[string]any, len(sets))
	for _, s := range sets {
		name, raw, ok := strings.Cut(s, "=")
		if !ok || name == "" {
			return nil, errors.Newf(errors.CategoryCLI, "invalid --set %q", s).
				WithSuggestion("Use --set name=value")
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return nil, errors.Newf(errors.CategoryCLI, "invalid --set %q", s).Wrap(err)
		}
		if value == nil {
			value = raw
		}
		values[name] = value
	}
	return values, nil
}

// dispatch fires "selector:event" at the first match under the view.
func dispatch(v *view.View, arg string) error {
	i := strings.LastIndex(arg, ":")
	if i <= 0 || i == len(arg)-1 {
		return errors.Newf(errors.CategoryCLI, "invalid --dispatch %q", arg).
			WithSuggestion("Use --dispatch selector:event, e.g. button:click")
	}
	selector, event := arg[:i], arg[i+1:]
	target, err := dom.Query(v.Element(), selector)
	if err != nil {
		return errors.New("X003").Wrap(err)
	}
	if target == nil {
		return errors.New("X003").WithDetail("No element matches " + selector)
	}
	v.Document().Dispatch(target, event, nil)
	return nil
}

func writeOutput(cmd *cobra.Command, path, content string) error {
	if path == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), content)
		return err
	}
	if err := os.WriteFile(path, []byte(content+"\n"), 0644); err != nil {
		return errors.Newf(errors.CategoryCLI, "write %s", path).Wrap(err)
	}
	success(cmd.ErrOrStderr(), "Wrote %s", path)
	return nil
}
