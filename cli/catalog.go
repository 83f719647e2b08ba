package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/kvesta/portvuln/config"
	"github.com/kvesta/portvuln/internal"
	"github.com/kvesta/portvuln/internal/report"
	"github.com/kvesta/portvuln/pkg/vulnlib"
	"github.com/spf13/cobra"
)

var (
	upgradeall bool
	importFile string
	sigFile    string
	keyFile    string
)

// loadCatalog loads the catalog selected by the settings and flags.
func loadCatalog(ctx context.Context) (*vulnlib.Catalog, error) {
	applyFlags()

	p, err := internal.NewCatalogProvider(settings.Catalog)
	if err != nil {
		return nil, err
	}
	return p.Load(ctx)
}

func catalog() {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the CVE catalog",
		Long: `Examples:
  # Fetch CVEs from NVD into the local database
  $ portvuln catalog update

  # Import a signed csv catalog into the local database
  $ portvuln catalog import -f cve_database.csv --sig cve_database.csv.asc --key catalog.pub

  # Export the local database to csv
  $ portvuln catalog export --source db -o cve_database.csv

  # Search the catalog
  $ portvuln catalog search openssh`,
		Args: NoArgs,
	}

	// Upgrade vulnerability database
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Fetch CVEs from NVD into the local database",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			cli, services := internal.NewNVDClient(settings)
			if err := cli.Update(ctx, services, upgradeall); err != nil {
				log.Printf("Updating vulnerability database failed, error: %v", err)
				return err
			}

			log.Printf(config.Green("Updating vulnerability database success"))
			return nil
		},
	}

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import a csv catalog into the local database",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if importFile == "" {
				return fmt.Errorf("--file is required")
			}

			p := &vulnlib.CSVProvider{Path: importFile}
			if sigFile != "" {
				if keyFile == "" {
					return fmt.Errorf("--key is required to check %s", sigFile)
				}
				v, err := vulnlib.NewVerifier(keyFile)
				if err != nil {
					return err
				}
				p.Verifier = v
				p.Signature = sigFile
			}

			c, err := p.Load(context.Background())
			if err != nil {
				return err
			}

			cli := vulnlib.NewClient(settings.Catalog.Store, "", 0)
			if err = cli.Init(); err != nil {
				return err
			}
			defer cli.Close()

			inserted, err := cli.Insert(c.Records())
			if err != nil {
				return err
			}

			log.Printf(config.Green("Imported %d new CVEs from %s"), inserted, importFile)
			return nil
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the catalog to csv",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outfile == "" {
				return fmt.Errorf("--output is required")
			}

			c, err := loadCatalog(context.Background())
			if err != nil {
				return err
			}

			if err = vulnlib.SaveCSV(outfile, c.Records()); err != nil {
				return err
			}

			log.Printf("Exported %d CVEs to %s", c.Len(), config.Yellow(outfile))
			return nil
		},
	}

	searchCmd := &cobra.Command{
		Use:   "search <service>",
		Short: "List the CVEs of a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadCatalog(context.Background())
			if err != nil {
				return err
			}

			records := c.Lookup(args[0])
			report.ResolveCatalogData(os.Stdout, records)

			if len(records) == 0 {
				if hint := c.Suggest(args[0]); hint != "" {
					fmt.Printf("Did you mean %s?\n", config.Yellow(hint))
				}
			}
			return nil
		},
	}

	updateCmd.Flags().BoolVarP(&upgradeall, "all", "a", false, "Reset the database")

	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "csv catalog to import")
	importCmd.Flags().StringVar(&sigFile, "sig", "", "detached OpenPGP signature of the catalog")
	importCmd.Flags().StringVar(&keyFile, "key", "", "public key to check the signature with")

	exportCmd.Flags().StringVar(&sourceFlag, "source", "", "catalog source, csv or db")
	exportCmd.Flags().StringVar(&catalogPath, "catalog", "", "path of the CVE catalog csv")
	exportCmd.Flags().StringVarP(&outfile, "output", "o", "", "output file location")

	searchCmd.Flags().StringVar(&sourceFlag, "source", "", "catalog source, csv or db")
	searchCmd.Flags().StringVar(&catalogPath, "catalog", "", "path of the CVE catalog csv")

	catalogCmd.AddCommand(updateCmd)
	catalogCmd.AddCommand(importCmd)
	catalogCmd.AddCommand(exportCmd)
	catalogCmd.AddCommand(searchCmd)

	rootCmd.AddCommand(catalogCmd)
}
