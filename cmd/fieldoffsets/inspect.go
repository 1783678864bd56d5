package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/fieldoffsets/errors"
	"github.com/wippyai/fieldoffsets/generator"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	nameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

var (
	inspectArch string
	interactive bool
)

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [packages]",
		Short: "Show the fields and layout of selected structs",
		Long: `inspect lists the fields of every selected struct with the offset, size and
alignment go/types computes for --goarch. This is a preview taken without
building the package; the generated method reports what the compiler decides.`,
		RunE: runInspect,
	}
	cmd.Flags().StringVar(&inspectArch, "goarch", runtime.GOARCH, "Target architecture for the layout preview")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Browse structs in a terminal UI")
	return cmd
}

// structView is one selected struct with the package it came from
type structView struct {
	pkgPath string
	s       *generator.Struct
}

func (v structView) title() string {
	return v.pkgPath + "." + v.s.Receiver()
}

// rows renders the layout of v for goarch as table rows. Generic structs
// have no layout, so their offsets are left blank.
func (v structView) rows(goarch string) ([][]string, string, error) {
	layout, size, err := v.s.Layout(goarch)
	if err != nil {
		rows := make([][]string, len(v.s.Fields))
		for i, f := range v.s.Fields {
			rows[i] = []string{f.Name, f.Type, "-", "-", "-"}
		}
		return rows, "-", err
	}

	rows := make([][]string, len(layout))
	for i, f := range layout {
		rows[i] = []string{
			f.Name,
			f.Type,
			strconv.FormatInt(f.Offset, 10),
			strconv.FormatInt(f.Size, 10),
			strconv.FormatInt(f.Align, 10),
		}
	}
	return rows, strconv.FormatInt(size, 10), nil
}

func collectViews(targets []generator.Target) []structView {
	var views []structView
	for _, t := range targets {
		for _, s := range t.Structs {
			views = append(views, structView{pkgPath: t.Package.PkgPath, s: s})
		}
	}
	return views
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	g := generator.New(generator.Options{Types: typeNames, Method: method, Tags: buildTags})
	targets, err := g.Targets(ctx, packagePatterns(args)...)
	if err != nil {
		return err
	}
	views := collectViews(targets)

	if interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
			return errors.InvalidInput(errors.PhaseConfig, "interactive mode needs a terminal")
		}
		return runInteractive(views, inspectArch)
	}

	writeViews(cmd.OutOrStdout(), views, inspectArch, isTerminal(cmd.OutOrStdout()))
	return nil
}

func writeViews(w io.Writer, views []structView, goarch string, styled bool) {
	for i, v := range views {
		if i > 0 {
			fmt.Fprintln(w)
		}
		rows, size, err := v.rows(goarch)

		heading := fmt.Sprintf("%s  %s:%d  size %s on %s", v.title(), v.s.Pos.Filename, v.s.Pos.Line, size, goarch)
		if styled {
			heading = titleStyle.Render(v.title()) + helpStyle.Render(fmt.Sprintf("  %s:%d  size %s on %s", v.s.Pos.Filename, v.s.Pos.Line, size, goarch))
		}
		fmt.Fprintln(w, heading)
		if err != nil {
			fmt.Fprintln(w, "  "+err.Error())
		}
		fmt.Fprintln(w, layoutTable(rows, styled))
	}
}

// layoutTable renders rows with a rounded border on a terminal and as
// borderless aligned columns otherwise.
func layoutTable(rows [][]string, styled bool) string {
	t := table.New().
		Headers("FIELD", "TYPE", "OFFSET", "SIZE", "ALIGN").
		Rows(rows...)

	if !styled {
		return strings.TrimRight(t.Border(lipgloss.HiddenBorder()).
			BorderTop(false).BorderBottom(false).BorderLeft(false).BorderRight(false).
			BorderHeader(false).BorderColumn(false).
			StyleFunc(func(row, col int) lipgloss.Style {
				return lipgloss.NewStyle().PaddingRight(2)
			}).String(), "\n")
	}

	return t.Border(lipgloss.RoundedBorder()).
		BorderStyle(helpStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return cellStyle.Foreground(nameStyle.GetForeground())
			case col == 1:
				return cellStyle.Foreground(typeStyle.GetForeground())
			}
			return cellStyle.Align(lipgloss.Right)
		}).String()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
