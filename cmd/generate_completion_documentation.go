//go:build tools

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/norikmb/nifcloud-sdk-go/cmd/nifcloud/commands"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

const usage = `Usage of %s:

   completion DIRECTORY
     Create completions files in a structured hierarchy in DIRECTORY.
   man DIRECTORY
     Create man pages files in a structured hierarchy in DIRECTORY.
`

func main() {
	if len(os.Args) < 3 {
		log.Fatalf(usage, os.Args[0])
	}
	a, err := commands.New()
	if err != nil {
		log.Fatalf("Couldn't create new command: %v", err)
	}

	cmds := []cobra.Command{a.RootCmd()}
	dir := filepath.Join(os.Args[2], "usr", "share")
	switch os.Args[1] {
	case "completion":
		genCompletions(cmds, dir)
	case "man":
		genManPages(cmds, dir)
	default:
		log.Fatalf(usage, os.Args[0])
	}
}

// genCompletions for bash, zsh and fish directories.
func genCompletions(cmds []cobra.Command, dir string) {
	bashCompDir := filepath.Join(dir, "bash-completion", "completions")
	zshCompDir := filepath.Join(dir, "zsh", "site-functions")
	fishCompDir := filepath.Join(dir, "fish", "vendor_completions.d")
	for _, d := range []string{bashCompDir, zshCompDir, fishCompDir} {
		if err := cleanDirectory(filepath.Dir(d)); err != nil {
			log.Fatalln(err)
		}
		if err := os.MkdirAll(d, 0750); err != nil {
			log.Fatalf("Couldn't create completion directory: %v", err)
		}
	}

	for _, cmd := range cmds {
		if err := cmd.GenBashCompletionFileV2(filepath.Join(bashCompDir, cmd.Name()), true); err != nil {
			log.Fatalf("Couldn't create bash completion for %s: %v", cmd.Name(), err)
		}
		if err := cmd.GenZshCompletionFile(filepath.Join(zshCompDir, "_"+cmd.Name())); err != nil {
			log.Fatalf("Couldn't create zsh completion for %s: %v", cmd.Name(), err)
		}
		if err := cmd.GenFishCompletionFile(filepath.Join(fishCompDir, cmd.Name()+".fish"), true); err != nil {
			log.Fatalf("Couldn't create fish completion for %s: %v", cmd.Name(), err)
		}
	}
}

func genManPages(cmds []cobra.Command, dir string) {
	manBaseDir := filepath.Join(dir, "man")
	if err := cleanDirectory(manBaseDir); err != nil {
		log.Fatalln(err)
	}

	out := filepath.Join(manBaseDir, "man1")
	if err := os.MkdirAll(out, 0750); err != nil {
		log.Fatalf("Couldn't create man pages directory: %v", err)
	}

	for _, cmd := range cmds {
		// Run ExecuteC to install completion and help commands
		_, _ = cmd.ExecuteC()
		opts := doc.GenManTreeOptions{
			Header: &doc.GenManHeader{
				Title: fmt.Sprintf("NIFCLOUD: %s", cmd.Name()),
			},
			Path: out,
		}
		if err := genManTreeFromOpts(&cmd, opts); err != nil {
			log.Fatalf("Couldn't generate man pages for %s: %v", cmd.Name(), err)
		}
	}
}

// genManTreeFromOpts generates a man page for the command and all descendants, hidden ones included.
func genManTreeFromOpts(cmd *cobra.Command, opts doc.GenManTreeOptions) error {
	header := opts.Header
	if header == nil {
		header = &doc.GenManHeader{}
	}
	for _, c := range cmd.Commands() {
		if (!c.IsAvailableCommand() && !c.Hidden) || c.IsAdditionalHelpTopicCommand() {
			continue
		}
		if err := genManTreeFromOpts(c, opts); err != nil {
			return err
		}
	}
	section := "1"
	if header.Section != "" {
		section = header.Section
	}

	basename := strings.ReplaceAll(cmd.CommandPath(), " ", "_")
	f, err := os.Create(filepath.Join(opts.Path, basename+"."+section))
	if err != nil {
		return err
	}
	defer f.Close()

	headerCopy := *header
	return doc.GenMan(cmd, &headerCopy, f)
}

// cleanDirectory removes a directory and recreates it.
func cleanDirectory(p string) error {
	if err := os.RemoveAll(p); err != nil {
		return fmt.Errorf("couldn't delete %q: %w", p, err)
	}
	if err := os.MkdirAll(p, 0750); err != nil {
		return fmt.Errorf("couldn't create %q: %w", p, err)
	}
	return nil
}
