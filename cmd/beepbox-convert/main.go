package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chiptrack/beepbox"
	"github.com/chiptrack/beepbox/summary"
	"github.com/chiptrack/beepbox/version"
)

const shareURL = "https://www.beepbox.co/#"

func main() {
	safe := flag.Bool("n", false, "Never overwrite files; if file already exists and would be overwritten, give an error.")
	list := flag.Bool("l", false, "Do not write files; just list files that would change instead.")
	stdout := flag.Bool("s", false, "Do not write files; write to standard output instead.")
	help := flag.Bool("h", false, "Show help.")
	jsonOut := flag.Bool("j", false, "Output the song as .json file.")
	yamlOut := flag.Bool("y", false, "Output the song as .yml file.")
	compactOut := flag.Bool("c", false, "Output the song as a compact string in a .txt file.")
	urlOut := flag.Bool("u", false, "Output the song as a share URL in a .url file.")
	summaryOut := flag.String("t", "", "Output a summary of the song using this template name, e.g. summary.txt or markdown.md. The extension of the name is used for the output file.")
	tmplDir := flag.String("d", "", "When summarizing, use the templates in this directory (or this single file) instead of the standard templates.")
	outPath := flag.String("o", "", "Directory where to write the output. Directory and its parents are created if needed. By default, everything is placed in the working directory.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() == 0 || *help {
		flag.Usage()
		os.Exit(0)
	}
	if !*jsonOut && !*yamlOut && !*compactOut && !*urlOut && *summaryOut == "" {
		*summaryOut = summary.DefaultTemplate
		*stdout = true
	}
	var summarizer *summary.Summarizer
	if *summaryOut != "" {
		var err error
		if *tmplDir != "" {
			summarizer, err = summary.NewFromTemplates(*tmplDir)
		} else {
			summarizer, err = summary.New()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "error creating templates: %v\n", err)
			os.Exit(1)
		}
	}
	output := func(filename string, extension string, contents []byte) error {
		if *stdout {
			fmt.Print(string(contents))
			return nil
		}
		_, name := filepath.Split(filename)
		dir := *outPath
		if dir == "" {
			var err error
			dir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("could not get working directory, specify the output directory explicitly: %w", err)
			}
		}
		name = strings.TrimSuffix(name, filepath.Ext(name)) + extension
		f := filepath.Join(dir, name)
		original, err := os.ReadFile(f)
		if err == nil {
			if bytes.Equal(original, contents) {
				return nil // no need to update
			}
			if !*list && *safe {
				return fmt.Errorf("file %v would be overwritten", f)
			}
		}
		if *list {
			fmt.Println(f)
			return nil
		}
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return fmt.Errorf("could not create output directory %v: %w", dir, err)
		}
		if err := os.WriteFile(f, contents, 0644); err != nil {
			return fmt.Errorf("could not write file %v: %w", f, err)
		}
		return nil
	}
	process := func(filename string) error {
		inputBytes, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("could not read file %v: %w", filename, err)
		}
		song, err := beepbox.Parse(inputBytes)
		if err != nil {
			return fmt.Errorf("could not parse %v: %w", filename, err)
		}
		if *jsonOut {
			contents, err := song.ToJSON()
			if err != nil {
				return fmt.Errorf("could not encode JSON: %w", err)
			}
			if err := output(filename, ".json", contents); err != nil {
				return fmt.Errorf("error outputting .json file: %w", err)
			}
		}
		if *yamlOut {
			contents, err := song.ToYAML()
			if err != nil {
				return fmt.Errorf("could not encode YAML: %w", err)
			}
			if err := output(filename, ".yml", contents); err != nil {
				return fmt.Errorf("error outputting .yml file: %w", err)
			}
		}
		if *compactOut {
			if err := output(filename, ".txt", []byte(song.ToCompactString()+"\n")); err != nil {
				return fmt.Errorf("error outputting .txt file: %w", err)
			}
		}
		if *urlOut {
			if err := output(filename, ".url", []byte(shareURL+song.ToCompactString()+"\n")); err != nil {
				return fmt.Errorf("error outputting .url file: %w", err)
			}
		}
		if *summaryOut != "" {
			title := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
			contents, err := summarizer.String(*summaryOut, song, title)
			if err != nil {
				return err
			}
			if err := output(filename, filepath.Ext(*summaryOut), []byte(contents)); err != nil {
				return fmt.Errorf("error outputting summary: %w", err)
			}
		}
		return nil
	}
	retval := 0
	for _, param := range flag.Args() {
		if err := process(param); err != nil {
			fmt.Fprintf(os.Stderr, "could not process file %v: %v\n", param, err)
			retval = 1
		}
	}
	os.Exit(retval)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "BeepBox command line utility for converting songs between compact strings, share URLs, .json and .yml, and for summarizing them.\nUsage: %s [flags] [path ...]\n", os.Args[0])
	flag.PrintDefaults()
}
