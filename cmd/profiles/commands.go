package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"supplement-safety/backend/internal/catalog"
	"supplement-safety/backend/internal/scoring"
	"supplement-safety/backend/internal/store"
)

type importFile struct {
	Users []struct {
		UID         string `yaml:"uid"`
		Name        string `yaml:"name"`
		Age         int    `yaml:"age"`
		Gender      string `yaml:"gender"`
		Diseases    []any  `yaml:"diseases"`
		Medications []any  `yaml:"medications"`
		Allergies   []any  `yaml:"allergies"`
	} `yaml:"users"`
}

func openStore() (*store.Database, func(), error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data directory: %w", err)
		}
	}
	db, err := store.Open(dbPath, true)
	if err != nil {
		return nil, nil, err
	}
	return db, func() {
		if cerr := db.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("close database")
		}
	}, nil
}

func loadCatalog() (*catalog.Catalog, error) {
	if strings.TrimSpace(catalogPath) == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(catalogPath)
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(value)
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Create or replace profiles listed in a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			var file importFile
			if err := yaml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("parse import file: %w", err)
			}
			if len(file.Users) == 0 {
				return errors.New("import file lists no users")
			}

			db, done, err := openStore()
			if err != nil {
				return err
			}
			defer done()

			for i, entry := range file.Users {
				if strings.TrimSpace(entry.UID) == "" {
					return fmt.Errorf("user %d: uid is required", i+1)
				}
				user := &store.UserProfile{
					UID:    entry.UID,
					Name:   strings.TrimSpace(entry.Name),
					Age:    entry.Age,
					Gender: strings.TrimSpace(entry.Gender),
				}
				user.SetDiseases(entry.Diseases)
				user.SetMedications(entry.Medications)
				user.SetAllergies(entry.Allergies)
				if err := db.SaveUser(user); err != nil {
					return fmt.Errorf("save user %s: %w", entry.UID, err)
				}
				logrus.WithField("uid", user.UID).Debug("imported profile")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d profiles\n", len(file.Users))
			return nil
		},
	}
}

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get UID",
		Short: "Print a stored profile as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, done, err := openStore()
			if err != nil {
				return err
			}
			defer done()

			user, err := db.GetUser(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"uid":         user.UID,
				"name":        user.Name,
				"age":         user.Age,
				"gender":      user.Gender,
				"diseases":    user.RawDiseases(),
				"medications": user.RawMedications(),
				"allergies":   user.RawAllergies(),
			})
		},
	}
}

func newAssessCmd() *cobra.Command {
	var (
		uid      string
		diseases []string
	)
	cmd := &cobra.Command{
		Use:   "assess SUPPLEMENT",
		Short: "Run the safety check for a supplement against a profile or a disease list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog()
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[0])
			if _, ok := cat.Index(name); !ok {
				label, matched := cat.MatchAlias(name)
				if !matched {
					return fmt.Errorf("unknown supplement %q", name)
				}
				name = label.Name
			}

			conditions := diseases
			if strings.TrimSpace(uid) != "" {
				db, done, err := openStore()
				if err != nil {
					return err
				}
				defer done()
				user, err := db.GetUser(uid)
				if err != nil {
					return fmt.Errorf("load %s: %w", uid, err)
				}
				conditions = append(user.Diseases(), diseases...)
			}
			return writeJSON(cmd.OutOrStdout(), scoring.Assess(cat, name, conditions))
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "", "Read diseases from this stored profile")
	cmd.Flags().StringSliceVar(&diseases, "disease", nil, "Disease to check against (repeatable)")
	return cmd
}

func newPopularCmd() *cobra.Command {
	var (
		uid        string
		limit      int
		outputPath string
	)
	cmd := &cobra.Command{
		Use:   "popular",
		Short: "List the most frequently recognised supplements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, done, err := openStore()
			if err != nil {
				return err
			}
			defer done()

			rows, err := db.PopularSupplements(uid, limit)
			if err != nil {
				return err
			}
			if outputPath != "" {
				file, err := os.Create(outputPath)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer file.Close()
				if err := writeJSON(file, rows); err != nil {
					return err
				}
				logrus.WithFields(logrus.Fields{"path": outputPath, "rows": len(rows)}).Info("wrote popular supplements")
				return nil
			}
			out := cmd.OutOrStdout()
			for _, row := range rows {
				fmt.Fprintf(out, "%-20s %d\n", row.SupplementName, row.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&uid, "uid", "", "Restrict to one user")
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum rows")
	cmd.Flags().StringVar(&outputPath, "output", "", "Write JSON to this path instead of stdout")
	return cmd
}
