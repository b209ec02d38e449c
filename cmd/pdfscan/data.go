package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/fatih/color"

	"pdfscan/internal/config"
	"pdfscan/internal/db"
	"pdfscan/internal/models"
	"pdfscan/internal/validation"
)

func importCmd(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected exactly one keyword file")
	}

	var src io.Reader = os.Stdin
	if name := fs.Arg(0); name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}

	lines, err := validation.ParseKeywordLines(src)
	if err != nil {
		return fmt.Errorf("read keywords: %w", err)
	}
	var valid []string
	for _, line := range lines {
		if ok, msg := validation.ValidateKeyword(line); !ok {
			color.Yellow("skipping %q: %s", line, msg)
			continue
		}
		valid = append(valid, line)
	}
	if len(valid) == 0 {
		return errors.New("no keywords to import")
	}

	database, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	result, err := database.ImportKeywords(ctx, valid)
	if err != nil {
		return err
	}
	color.Green("✓ Imported %d keywords, %d already existed", len(result.Added), len(result.Existing))
	return nil
}

func searchCmd(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	keyword := fs.String("keyword", "", "only matches of this keyword")
	file := fs.String("file", "", "only matches in this file name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	database, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	var filter models.MatchFilter
	filter.FileName = *file
	if *keyword != "" {
		k, err := database.GetKeywordByText(ctx, validation.NormalizeKeyword(*keyword))
		if err != nil {
			if errors.Is(err, db.ErrKeywordNotFound) {
				return fmt.Errorf("keyword %q not found", *keyword)
			}
			return err
		}
		filter.KeywordID = &k.ID
	}

	matches, err := database.ListMatches(ctx, filter)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		color.Yellow("No matches")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KEYWORD\tFILE\tPAGE\tCONTEXT")
	for _, m := range matches {
		page := "-"
		if m.PageNumber != nil {
			page = fmt.Sprint(*m.PageNumber)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Keyword, m.FileName, page, oneLine(m.Content, 80))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	color.Green("%d matches", len(matches))
	return nil
}

// oneLine flattens whitespace and shortens s to at most n runes.
func oneLine(s string, n int) string {
	out := make([]rune, 0, n)
	for _, r := range s {
		if len(out) == n {
			out[n-1] = '…'
			break
		}
		switch r {
		case '\n', '\r', '\t':
			r = ' '
		}
		out = append(out, r)
	}
	return string(out)
}

func migrateCmd(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	database, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return err
	}
	color.Green("✓ Migrations applied")
	return nil
}
