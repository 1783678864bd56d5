package main

import (
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/spf13/cobra"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/fieldoffsets/errors"
	"github.com/wippyai/fieldoffsets/generator"
	"github.com/wippyai/fieldoffsets/witabi"
)

var (
	checkArch  string
	witPath    string
	recordFlag string
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check --wit file.wit [packages]",
		Short: "Compare struct layouts with WebAssembly records",
		Long: `check compares each selected struct, as go/types lays it out for --goarch,
with the Canonical ABI layout of a WIT record. The record defaults to the
kebab-case form of the Go type name. Field offsets, sizes and primitive kinds
must agree, as must the total size, for the struct to be copied into guest
memory byte for byte.`,
		RunE: runCheck,
	}
	cmd.Flags().StringVar(&witPath, "wit", "", "WIT file declaring the records")
	cmd.Flags().StringVar(&recordFlag, "record", "", "Record to compare with (default: kebab-case of each type name)")
	cmd.Flags().StringVar(&checkArch, "goarch", "wasm", "Target architecture of the Go side")
	_ = cmd.MarkFlagRequired("wit")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	data, err := os.ReadFile(witPath)
	if err != nil {
		return errors.Wrap(errors.PhaseParse, errors.KindNotFound, err, "read WIT file")
	}
	defs, err := witabi.ParseRecords(string(data))
	if err != nil {
		return err
	}

	g := generator.New(generator.Options{Types: typeNames, Method: method, Tags: buildTags})
	targets, err := g.Targets(ctx, packagePatterns(args)...)
	if err != nil {
		return err
	}

	views := collectViews(targets)
	failed := 0
	for _, v := range views {
		if err := checkStruct(v.s, defs); err != nil {
			failed++
			reportCheck(cmd.OutOrStdout(), v, err)
			continue
		}
		reportCheck(cmd.OutOrStdout(), v, nil)
	}

	if failed > 0 {
		return errors.New(errors.PhaseCheck, errors.KindLayoutMismatch).
			Detail("%d of %d struct(s) do not match their record on %s", failed, len(views), checkArch).
			Build()
	}
	return nil
}

// checkStruct compares the go/types layout of s with its record
func checkStruct(s *generator.Struct, defs []*wit.TypeDef) error {
	name := recordFlag
	if name == "" {
		name = witabi.KebabCase(s.Name)
	}
	rec, err := witabi.FindRecord(defs, name)
	if err != nil {
		return err
	}

	layout, size, err := s.Layout(checkArch)
	if err != nil {
		return err
	}

	fields := make([]witabi.GoField, len(layout))
	for i, f := range layout {
		fields[i] = witabi.GoField{
			Name:   f.Name,
			Tag:    reflect.StructTag(s.Underlying.Tag(i)).Get("wit"),
			Offset: uint64(f.Offset),
			Size:   uint64(f.Size),
			Kind:   f.Kind,
		}
	}

	logger.Debug("checking struct",
		zap.String("type", s.Name),
		zap.String("record", name),
		zap.String("goarch", checkArch))
	return witabi.CheckLayout(s.Name, fields, uint64(size), rec)
}

func reportCheck(w io.Writer, v structView, err error) {
	styled := isTerminal(w)
	if err == nil {
		status := "ok  "
		if styled {
			status = okStyle.Render(status)
		}
		fmt.Fprintf(w, "%s%s\n", status, v.title())
		return
	}

	status := "FAIL"
	msg := err.Error()
	if styled {
		status = errorStyle.Render(status)
		msg = errorStyle.Render(msg)
	}
	fmt.Fprintf(w, "%s %s\n  %s\n", status, v.title(), msg)
}
