package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/kvesta/portvuln/config"
	"github.com/kvesta/portvuln/internal"
	"github.com/kvesta/portvuln/internal/report"
	"github.com/kvesta/portvuln/pkg/discovery"
	"github.com/kvesta/portvuln/pkg/portscan"
	"github.com/spf13/cobra"
)

var (
	portsFlag    string
	provider     string
	catalogPath  string
	sourceFlag   string
	outputFormat string
	outfile      string

	nameSpace  string
	kubeconfig string
	server     string
	token      string
	insecure   bool
)

func disclaimer() {
	fmt.Println(config.Red("\n!!!  ETHICAL USE DISCLAIMER !!!"))
	fmt.Println("This tool should only be used on systems you own or have permission to test.")
	fmt.Println("Unauthorized scanning may be illegal in your jurisdiction.")
	fmt.Println()
}

// applyFlags lays the command line over the loaded settings.
func applyFlags() {
	if provider != "" {
		settings.Scanner.Provider = provider
	}
	if sourceFlag != "" {
		settings.Catalog.Source = sourceFlag
	}
	if catalogPath != "" {
		settings.Catalog.Path = catalogPath
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// newPipeline builds the pipeline from settings, the returned func closes
// the scanner.
func newPipeline() (*internal.Pipeline, func(), error) {
	catalog, err := internal.NewCatalogProvider(settings.Catalog)
	if err != nil {
		return nil, nil, err
	}

	scanner, closer, err := internal.NewScanProvider(settings.Scanner)
	if err != nil {
		return nil, nil, err
	}

	return internal.NewPipeline(settings, catalog, scanner), closer, nil
}

// DoScan runs one scan and reports it.
func DoScan(target string, ports []int) error {
	p, closer, err := newPipeline()
	if err != nil {
		return err
	}
	defer closer()

	ctx, cancel := signalContext()
	defer cancel()

	disclaimer()
	log.Printf(config.Green("Start scanning %s"), target)

	r := p.Run(ctx, target, ports)

	if err := report.Save([]*internal.Result{r}, outputFormat, outfile); err != nil {
		return err
	}
	if !r.Success {
		return r.Err
	}
	return nil
}

// DoScanInKubernetes scans every service with a cluster IP.
func DoScanInKubernetes() error {
	k, err := discovery.New(discovery.Options{
		Kubeconfig: kubeconfig,
		Server:     server,
		Token:      token,
		Insecure:   insecure,
	})
	if err != nil {
		return err
	}

	p, closer, err := newPipeline()
	if err != nil {
		return err
	}
	defer closer()

	ctx, cancel := signalContext()
	defer cancel()

	targets, err := k.Targets(ctx, nameSpace)
	if err != nil {
		return fmt.Errorf("cannot list kubernetes services: %w", err)
	}

	disclaimer()
	results := internal.ScanTargets(ctx, p, targets)

	return report.Save(results, outputFormat, outfile)
}

// localTarget defaults to 127.0.0.1 and only accepts loopback addresses.
func localTarget(args []string) (string, error) {
	target := "127.0.0.1"
	if len(args) > 0 {
		target = args[0]
	}

	if err := portscan.CheckLoopback(target); err != nil {
		return "", fmt.Errorf("%w, use 'portvuln scan host' for remote targets", err)
	}
	return target, nil
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&catalogPath, "catalog", "", "path of the CVE catalog csv")
	cmd.Flags().StringVar(&sourceFlag, "source", "", "catalog source, csv or db")
	cmd.Flags().StringVar(&outputFormat, "format", "console", "output format, console, json or csv")
	cmd.Flags().StringVarP(&outfile, "output", "o", "", "output file location")
}

func scan() {
	scanCmd := &cobra.Command{
		Use:   "scan [OPTIONS]",
		Short: `Port scan`,
		Long: `Examples:
  # Scan the default ports of a host
  $ portvuln scan host 192.168.1.10

  # Scan specific ports and save the result
  $ portvuln scan host 192.168.1.10 -p 22,80,443 --format json -o results.json

  # Run nmap inside a docker container
  $ portvuln scan host 192.168.1.10 --provider docker

  # Check the listening sockets of this machine
  $ portvuln scan local

  # Scan the services of a kubernetes namespace
  $ portvuln scan k8s -n default

DISCLAIMER: This tool is for authorized security testing only.`,
		Args: NoArgs,
	}

	hostCheck := &cobra.Command{
		Use:   "host <ip>",
		Short: "scan a host with nmap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			applyFlags()

			ports, err := checkPorts(portsFlag, settings.Scanner.Ports)
			if err != nil {
				return err
			}
			if err := checkOutput(outputFormat, outfile); err != nil {
				return err
			}

			return DoScan(args[0], ports)
		},
	}

	localCheck := &cobra.Command{
		Use:   "local [loopback ip]",
		Short: "check the listening sockets of this machine",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider = "local"
			applyFlags()

			ports, err := checkPorts(portsFlag, settings.Scanner.Ports)
			if err != nil {
				return err
			}
			if err := checkOutput(outputFormat, outfile); err != nil {
				return err
			}

			target, err := localTarget(args)
			if err != nil {
				return err
			}

			return DoScan(target, ports)
		},
	}

	kubernetesCheck := &cobra.Command{
		Use:   "k8s",
		Short: "scan the services of kubernetes",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			applyFlags()

			if err := checkOutput(outputFormat, outfile); err != nil {
				return err
			}

			return DoScanInKubernetes()
		},
	}

	addOutputFlags(hostCheck)
	hostCheck.Flags().StringVarP(&portsFlag, "ports", "p", "", "comma separated ports, e.g. 22,80,8000-8010")
	hostCheck.Flags().StringVar(&provider, "provider", "", "port scanner, nmap or docker")

	addOutputFlags(localCheck)
	localCheck.Flags().StringVarP(&portsFlag, "ports", "p", "", "comma separated ports, e.g. 22,80,8000-8010")

	addOutputFlags(kubernetesCheck)
	kubernetesCheck.Flags().StringVar(&provider, "provider", "", "port scanner, nmap or docker")
	kubernetesCheck.Flags().StringVarP(&nameSpace, "ns", "n", "", "specific namespace, all when empty")
	kubernetesCheck.Flags().StringVar(&kubeconfig, "kubeconfig", "", "specific configure file")
	kubernetesCheck.Flags().StringVar(&server, "server", "", "kubernetes api server")
	kubernetesCheck.Flags().StringVar(&token, "token", "", "bearer token")
	kubernetesCheck.Flags().BoolVar(&insecure, "insecure", false, "skip tls verification")

	scanCmd.AddCommand(hostCheck)
	scanCmd.AddCommand(localCheck)
	scanCmd.AddCommand(kubernetesCheck)

	rootCmd.AddCommand(scanCmd)
}
