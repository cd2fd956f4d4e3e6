package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/restfold/restfold/internal/schema"
	"github.com/restfold/restfold/internal/schema/derive"
)

var describeCmd = &cobra.Command{
	Use:   "describe [resource]",
	Short: "Print registered resources and their derived schemas",
	Long:  "Show each resource's field catalog, relationships, and the fields accepted or returned by its creation, update, and response schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := buildRegistry()
		if err != nil {
			return err
		}

		names := registry.List()
		if len(args) == 1 {
			if _, ok := registry.Get(args[0]); !ok {
				return fmt.Errorf("unknown resource %q", args[0])
			}
			names = []string{args[0]}
		}

		for i, name := range names {
			if i > 0 {
				fmt.Println()
			}
			describeResource(registry, name)
		}
		return nil
	},
}

var (
	titleColor  = color.New(color.Bold, color.FgCyan)
	headerColor = color.New(color.Bold)
	dimColor    = color.New(color.FgHiBlack)
	roColor     = color.New(color.FgYellow)
	woColor     = color.New(color.FgRed)
)

func describeResource(registry *schema.Registry, name string) {
	res, _ := registry.Get(name)
	cat, _ := registry.Catalog(name)

	titleColor.Printf("%s", name)
	dimColor.Printf("  (table: %s)\n", res.TableName)

	headerColor.Println("  Fields:")
	cat.Each(func(d *schema.FieldDescriptor) {
		marker := ""
		switch {
		case d.ReadOnly():
			marker = roColor.Sprint(" [read-only]")
		case d.WriteOnly():
			marker = woColor.Sprint(" [write-only]")
		}
		required := ""
		if d.Required {
			required = " required"
		}
		alias := ""
		if d.Alias != "" {
			alias = dimColor.Sprintf(" (alias: %s)", d.Alias)
		}
		fmt.Fprintf(os.Stdout, "    %-14s %s%s%s%s\n", d.Name, d.Type, required, marker, alias)
	})

	if len(res.Relationships) > 0 {
		headerColor.Println("  Relationships:")
		relNames := make([]string, 0, len(res.Relationships))
		for relName := range res.Relationships {
			relNames = append(relNames, relName)
		}
		sort.Strings(relNames)
		for _, relName := range relNames {
			rel := res.Relationships[relName]
			fmt.Printf("    %-14s -> %s (%s, fk: %s)\n", rel.Name, rel.Target, rel.Cardinality, rel.ForeignKey)
		}
	}

	headerColor.Println("  Variants:")
	printVariant("create", derive.CreationSchema(cat))
	printVariant("update", derive.UpdateSchema(cat))
	printVariant("response", derive.ResponseSchema(cat))
}

func printVariant(label string, v *derive.Variant) {
	names := make([]string, 0, len(v.Fields()))
	for _, f := range v.Fields() {
		names = append(names, f.ExternalName())
	}
	fmt.Printf("    %-9s %s\n", label, strings.Join(names, ", "))
}
