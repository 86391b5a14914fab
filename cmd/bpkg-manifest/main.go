// Command bpkg-manifest is a thin driver over the manifest package: it
// parses a manifest (or list of manifests) from stdin and re-serializes it
// to stdout, or round-trips a single version constraint. It is glue, not
// part of the core contract.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/build2/libbpkg-sub000/bpkgerror"
	"github.com/build2/libbpkg-sub000/constraint"
	"github.com/build2/libbpkg-sub000/manifest"
)

const libraryVersion = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		parsePackages    bool
		parseDirPackages bool
		parseGitPackages bool
		parsePkgRepos    bool
		parseDirRepos    bool
		parseGitRepos    bool
		parseSignature   bool
		listContext      bool

		parsePackage bool
		complete     bool
		ignoreUnknown bool

		effectiveConstraint string

		printVersion bool
	)

	root := &cobra.Command{
		Use:          "bpkg-manifest",
		Short:        "parse and re-serialize bpkg manifests",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case printVersion:
				fmt.Println(libraryVersion)
				return nil

			case effectiveConstraint != "":
				return runEffectiveConstraint(effectiveConstraint)

			case parsePackage:
				return runParsePackage(complete, ignoreUnknown, listContext)

			case parsePackages || parseDirPackages || parseGitPackages:
				return runParsePackageList()

			case parsePkgRepos || parseDirRepos || parseGitRepos:
				return runParseRepositoryList()

			case parseSignature:
				return runParseSignature()

			default:
				return fmt.Errorf("no operation specified")
			}
		},
	}

	flags := root.Flags()
	flags.BoolVar(&parsePackages, "pp", false, "parse a pkg package list manifest")
	flags.BoolVar(&parseDirPackages, "dp", false, "parse a dir package list manifest")
	flags.BoolVar(&parseGitPackages, "gp", false, "parse a git package list manifest")
	flags.BoolVar(&parsePkgRepos, "pr", false, "parse a pkg repository list manifest")
	flags.BoolVar(&parseDirRepos, "dr", false, "parse a dir repository list manifest")
	flags.BoolVar(&parseGitRepos, "gr", false, "parse a git repository list manifest")
	flags.BoolVar(&parseSignature, "s", false, "parse a signature manifest")
	flags.BoolVar(&listContext, "l", false, "list context (validate location/sha256sum)")

	flags.BoolVar(&parsePackage, "p", false, "parse a single package manifest")
	flags.BoolVar(&complete, "c", false, "complete dependency constraints against the package version")
	flags.BoolVar(&ignoreUnknown, "i", false, "accepted with -p; has no effect (description files are not loaded)")

	flags.StringVar(&effectiveConstraint, "ec", "", "round-trip a version constraint and print it (no effective-form completion)")

	flags.BoolVar(&printVersion, "v", false, "print library version")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitCodeForError(err)
	}
	return 0
}

// exitCodeForError maps a *bpkgerror.Error's Parse/Validation/Value kinds to
// exit code 1 (malformed or invalid input); anything else — an unrecognized
// error type, a Logic-kind error, plain I/O failure — is exit code 2.
func exitCodeForError(err error) int {
	e, ok := err.(*bpkgerror.Error)
	if !ok {
		return 2
	}
	switch e.Kind {
	case bpkgerror.Parse, bpkgerror.Validation, bpkgerror.Value:
		return 1
	default:
		return 2
	}
}

func runEffectiveConstraint(text string) error {
	c, err := constraint.Parse(text)
	if err != nil {
		return err
	}
	fmt.Println(c.String())
	return nil
}

func runParsePackage(complete, ignoreUnknown, listContext bool) error {
	flags := manifest.PackageFlags{CompleteDepends: complete}
	if listContext {
		flags.RequireLocation = true
		flags.RequireSHA256Sum = true
		flags.ForbidFile = true
	}

	p, err := manifest.ParsePackage(os.Stdin, flags)
	if err != nil {
		return err
	}
	_ = ignoreUnknown
	return p.Serialize(os.Stdout)
}

func runParsePackageList() error {
	header, packages, err := manifest.ParsePackageList(os.Stdin)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, ": 1\nsha256sum: %s\n\n", header.SHA256Sum)
	for _, p := range packages {
		if err := p.Serialize(os.Stdout); err != nil {
			return err
		}
	}
	return nil
}

func runParseRepositoryList() error {
	list, err := manifest.ParseRepositoryList(os.Stdin)
	if err != nil {
		return err
	}
	for _, r := range list {
		if err := r.Serialize(os.Stdout); err != nil {
			return err
		}
	}
	return nil
}

func runParseSignature() error {
	s, err := manifest.ParseSignature(os.Stdin)
	if err != nil {
		return err
	}
	return s.Serialize(os.Stdout)
}
