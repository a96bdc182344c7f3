package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jovyan/nbtemplates/internal/config"
	"github.com/jovyan/nbtemplates/internal/contents"
)

var (
	storeImportDBPath string
	storeImportDest   string
)

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeImportCmd)

	storeImportCmd.Flags().StringVar(&storeImportDBPath, "db", "", "store database path (default: store.path from config)")
	storeImportCmd.Flags().StringVar(&storeImportDest, "dest", "", "destination prefix inside the store")
}

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the content-store backend",
}

var storeImportCmd = &cobra.Command{
	Use:   "import DIR",
	Short: "Import notebooks from a local directory into the store",
	Long: `Import copies every notebook under DIR into the content store,
preserving the directory layout below the --dest prefix. Use it to provision
a store for installations that serve templates with local_files disabled.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := storeImportDBPath
		if dbPath == "" {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			dbPath = cfg.Store.Path
		}
		if dbPath == "" {
			return fmt.Errorf("no store database path: pass --db or set store.path")
		}

		store, err := contents.OpenSQLite(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()

		logger := newLogger()
		src := args[0]
		imported := 0

		err = filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || filepath.Ext(p) != ".ipynb" {
				return nil
			}

			rel, err := filepath.Rel(src, p)
			if err != nil {
				return err
			}
			dest := path.Join(storeImportDest, filepath.ToSlash(rel))

			data, err := os.ReadFile(p)
			if err != nil {
				return fmt.Errorf("read %s: %w", p, err)
			}
			if err := store.Put(cmd.Context(), dest, contents.TypeNotebook, data); err != nil {
				return err
			}

			logger.Debug().Str("src", p).Str("dest", dest).Msg("imported notebook")
			imported++
			return nil
		})
		if err != nil {
			return err
		}

		logger.Info().Int("notebooks", imported).Str("db", dbPath).Msg("import complete")
		return nil
	},
}
