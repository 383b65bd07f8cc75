// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/spark-engine/internal/ingest"
	"github.com/pdiddy/spark-engine/pkg/types"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Manage extraction schemas (validate, describe, init)",
	Long: `Schema manages the JSON files that drive extraction. A schema names the
entities to extract, describes each one, and carries a labeled example
document used for few-shot prompting.`,
}

// --- validate subcommand ---

var schemaValidateCmd = &cobra.Command{
	Use:   "validate <schema-file>",
	Short: "Check a schema file for structural errors",
	Long: `Validate loads a schema file and reports the first structural problem:
missing context, entities without names, or duplicate entity names.`,
	Args: cobra.ExactArgs(1),
	RunE: runSchemaValidate,
}

func runSchemaValidate(cmd *cobra.Command, args []string) error {
	schema, err := ingest.LoadSchema(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Schema OK: %d entities (%s)\n",
		len(schema.Entities), strings.Join(schema.EntityNames(), ", "))
	return nil
}

// --- describe subcommand ---

var schemaDescribeCmd = &cobra.Command{
	Use:   "describe <schema-file>",
	Short: "Print the generated prompt description for a schema",
	Long: `Describe prints the instruction block that extraction prompts embed for
this schema. With --write, the regenerated description is also saved
back into the schema file, replacing any stale one.`,
	Args: cobra.ExactArgs(1),
	RunE: runSchemaDescribe,
}

func runSchemaDescribe(cmd *cobra.Command, args []string) error {
	path := args[0]
	schema, err := ingest.LoadSchema(path)
	if err != nil {
		return err
	}

	fmt.Println(ingest.BuildPromptDescription(schema))

	if write, _ := cmd.Flags().GetBool("write"); write {
		if err := ingest.SaveSchema(path, schema); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Updated %s\n", path)
	}
	return nil
}

// --- init subcommand ---

var schemaInitCmd = &cobra.Command{
	Use:   "init <schema-file>",
	Short: "Write a starter schema file to edit",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchemaInit,
}

func runSchemaInit(cmd *cobra.Command, args []string) error {
	path := args[0]
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", path)
	}

	starter := &types.Schema{
		Context: "Title: Dexamethasone in Hospitalized Patients with Covid-19.\n\n" +
			"Abstract: Coronavirus disease 2019 (Covid-19) is associated with diffuse lung damage. " +
			"In this controlled, open-label trial comparing a range of possible treatments, we " +
			"randomly assigned patients to receive oral or intravenous dexamethasone for up to " +
			"10 days or to receive usual care alone.",
		Entities: []types.Entity{
			{
				Name:        "Disease",
				Description: "Any disease or medical condition studied in the paper",
				Examples:    []string{"Covid-19", "Coronavirus disease 2019", "lung damage"},
			},
			{
				Name:        "Intervention",
				Description: "Any treatment, drug, or intervention evaluated in the paper",
				Examples:    []string{"dexamethasone", "usual care"},
			},
		},
	}

	if err := ingest.SaveSchema(path, starter); err != nil {
		return err
	}
	fmt.Printf("Wrote starter schema to %s\n", path)
	return nil
}

func init() {
	schemaDescribeCmd.Flags().Bool("write", false, "save the regenerated description into the schema file")

	schemaCmd.AddCommand(schemaValidateCmd)
	schemaCmd.AddCommand(schemaDescribeCmd)
	schemaCmd.AddCommand(schemaInitCmd)

	rootCmd.AddCommand(schemaCmd)
}
