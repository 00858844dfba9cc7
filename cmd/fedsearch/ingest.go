package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/candig/fedsearch/pkg/schema"
	"github.com/candig/fedsearch/pkg/types"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load records from a YAML manifest",
	Long: `Load clinical records into the local registry from a YAML manifest.

The manifest names a dataset and an entity, then lists records with
their attributes. Unknown attributes are rejected so typos do not end
up as invisible fields.

Example manifest:

  apiVersion: fedsearch/v1
  kind: Records
  metadata:
    dataset: mohccn
    entity: patient
  records:
    - name: PATIENT_0001
      attributes:
        otherIds: "ICGC-4412"
        dateOfBirth: "1968-04-19"
        gender: female

Example:
  fedsearch ingest -f patients.yaml`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringP("file", "f", "", "YAML manifest to load (required)")
	ingestCmd.Flags().String("data-dir", "./fedsearch-data", "Data directory of the registry")
	_ = ingestCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(ingestCmd)
}

// recordManifest is the on-disk ingest format.
type recordManifest struct {
	APIVersion string           `yaml:"apiVersion"`
	Kind       string           `yaml:"kind"`
	Metadata   manifestMetadata `yaml:"metadata"`
	Records    []manifestRecord `yaml:"records"`
}

type manifestMetadata struct {
	Dataset string `yaml:"dataset"`
	Entity  string `yaml:"entity"`
}

type manifestRecord struct {
	ID          string         `yaml:"id,omitempty"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Attributes  map[string]any `yaml:"attributes,omitempty"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var manifest recordManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	if manifest.Kind != "Records" {
		return fmt.Errorf("unsupported manifest kind: %s", manifest.Kind)
	}

	entity, ok := schema.EntityByName(manifest.Metadata.Entity)
	if !ok {
		return fmt.Errorf("unknown entity %q", manifest.Metadata.Entity)
	}

	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	ds, err := store.GetDatasetByName(manifest.Metadata.Dataset)
	if err != nil {
		return fmt.Errorf("dataset %q not found (create it first with 'fedsearch dataset create')", manifest.Metadata.Dataset)
	}

	now := time.Now()
	for i, mr := range manifest.Records {
		for field := range mr.Attributes {
			if _, ok := entity.Field(field); !ok {
				return fmt.Errorf("record %d: unknown %s field %q", i, entity.Name, field)
			}
		}

		rec := &types.Record{
			ID:          mr.ID,
			Name:        mr.Name,
			DatasetID:   ds.ID,
			Entity:      entity.Name,
			Description: mr.Description,
			Created:     now,
			Updated:     now,
			Fields:      mr.Attributes,
		}
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		if existing, err := store.GetRecord(entity.Name, rec.ID); err == nil {
			rec.Created = existing.Created
		}
		if err := store.PutRecord(rec); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}

	fmt.Printf("✓ Ingested %d %s records into dataset %s\n",
		len(manifest.Records), entity.Name, ds.Name)
	return nil
}
