// Command templatecsv writes skeleton CSV files for every registered import
// kind, one file per kind, into the output directory.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"ligacli/internal/importer"
)

func main() {
	outDir := flag.String("out", ".", "directory to write the template files into")
	flag.Parse()

	if err := run(*outDir); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(outDir string) error {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	registry := importer.DefaultRegistry()
	for _, kind := range registry.Kinds() {
		spec, err := registry.Get(kind)
		if err != nil {
			return err
		}

		path := filepath.Join(outDir, fmt.Sprintf("plantilla_%s.csv", kind))
		if err := writeTemplate(path, spec); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Printf("wrote %s\n", path)
	}
	return nil
}

func writeTemplate(path string, spec *importer.KindSpec) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(spec.TemplateHeaders()); err != nil {
		return err
	}
	if err := w.Write(spec.TemplateExample()); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
