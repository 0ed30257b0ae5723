package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/casekit/formfill/internal/mapping"
	"github.com/casekit/formfill/internal/pdf"
)

var (
	outputFormat = flag.String("format", "text", "Output format: text, json")
	tableForm    = flag.String("table", "", "Audit the template against a form's mapping table (e.g. I-589)")
	help         = flag.Bool("help", false, "Show help message")
)

func main() {
	flag.Parse()

	if *help {
		printHelp()
		return
	}

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: PDF file path required\n\n")
		printUsage()
		os.Exit(1)
	}

	pdfPath := flag.Arg(0)
	if _, err := os.Stat(pdfPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: File not found: %s\n", pdfPath)
		os.Exit(1)
	}

	result, err := inspect(pdfPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error inspecting template: %v\n", err)
		os.Exit(1)
	}

	if err := outputResults(result); err != nil {
		fmt.Fprintf(os.Stderr, "Error outputting results: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("PDF List Fields - inspect the fillable widgets of a blank form template")
	fmt.Println()
	fmt.Println("Lists every AcroForm field with its kind and, for checkboxes and radio")
	fmt.Println("groups, the selectable states. With -table, also diffs the template")
	fmt.Println("against a form's field mapping table so a table revision can be checked")
	fmt.Println("before it ships.")
	fmt.Println()
	printUsage()
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -format   Output format: text (default), json")
	fmt.Println("  -table    Audit against a form's mapping table (e.g. I-589, I-765)")
	fmt.Println("  -help     Show this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  pdf_list_fields templates/i589.pdf")
	fmt.Println("  pdf_list_fields -format json templates/i589.pdf")
	fmt.Println("  pdf_list_fields -table I-589 templates/i589.pdf")
	fmt.Println()
	fmt.Printf("KNOWN MAPPING TABLES: %s\n", strings.Join(mapping.Forms(), ", "))
}

func printUsage() {
	fmt.Println("USAGE:")
	fmt.Println("  pdf_list_fields [OPTIONS] <pdf_file>")
}

// inspectResult is the complete output of one template inspection.
type inspectResult struct {
	FilePath   string           `json:"file_path"`
	FieldCount int              `json:"field_count"`
	Fields     []pdf.Field      `json:"fields"`
	Table      string           `json:"table,omitempty"`
	Audit      *pdf.AuditReport `json:"audit,omitempty"`
}

func inspect(pdfPath string) (*inspectResult, error) {
	absPath, err := filepath.Abs(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	template, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}
	fields, err := pdf.ListFields(template)
	if err != nil {
		return nil, err
	}

	result := &inspectResult{
		FilePath:   absPath,
		FieldCount: len(fields),
		Fields:     fields,
	}

	if *tableForm != "" {
		tbl, err := mapping.ForForm(*tableForm)
		if err != nil {
			return nil, err
		}
		result.Table = tbl.Form
		result.Audit = pdf.Audit(fields, tbl)
	}

	return result, nil
}

func outputResults(result *inspectResult) error {
	switch *outputFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case "text":
		outputText(result)
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", *outputFormat)
	}
}

func outputText(result *inspectResult) {
	if result.FieldCount == 0 {
		fmt.Println("No form fields detected in the PDF")
		return
	}

	fmt.Printf("Found %d form fields\n\n", result.FieldCount)
	for i, field := range result.Fields {
		fmt.Printf("[%d] %s\n", i+1, field.Name)
		fmt.Printf("    Kind: %s\n", field.Kind)
		if len(field.Options) > 0 {
			fmt.Printf("    Options: %v\n", field.Options)
		}
		if field.ReadOnly {
			fmt.Printf("    Properties: [ReadOnly]\n")
		}
		fmt.Println()
	}

	if result.Audit != nil {
		printAudit(result.Table, result.Audit)
	}
}

func printAudit(form string, audit *pdf.AuditReport) {
	fmt.Printf("AUDIT AGAINST %s MAPPING TABLE\n", form)
	fmt.Println("==============================")

	if audit.Clean() {
		fmt.Println("Table and template agree on every widget")
		return
	}

	if len(audit.Missing) > 0 {
		fmt.Println("\nMapped widgets absent from the template:")
		for _, f := range audit.Missing {
			fmt.Printf("  %s (%s): %s\n", f.Widget, f.Kind, f.Detail)
		}
	}
	if len(audit.Mismatched) > 0 {
		fmt.Println("\nMapped widgets with a different kind in the template:")
		for _, f := range audit.Mismatched {
			fmt.Printf("  %s (%s): %s\n", f.Widget, f.Kind, f.Detail)
		}
	}
	if len(audit.Unmapped) > 0 {
		fmt.Println("\nTemplate fields no table entry covers:")
		for _, name := range audit.Unmapped {
			fmt.Printf("  %s\n", name)
		}
	}
}

func init() {
	flag.Usage = printHelp
}
