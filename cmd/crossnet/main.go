package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/LdDl/crossnet"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	configFile  string
	networkFile string
	tagStr      string
	rowsFile    string
	out         string
	geomFormat  string
	routeStart  int
	verbose     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "crossnet",
		Short:         "Place traffic cross sections on a road network",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&networkFile, "network", "", "Filename of *.osm or *.osm.pbf file with road network (overrides configuration)")
	rootCmd.PersistentFlags().StringVar(&tagStr, "tags", "", "Set of `highway` tags turned into links (separated by commas)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Print progress information")

	placeCmd := &cobra.Command{
		Use:   "place",
		Short: "Import cross sections from ';'-separated rows 'name;x;y;type' (lon/lat when --network is set) and export the result",
		RunE:  runPlace,
	}
	placeCmd.Flags().StringVar(&rowsFile, "rows", "", "Filename of rows to import")
	placeCmd.Flags().StringVar(&out, "out", "crossnet.csv", "Output filename. E.g.: if file name is 'map.csv' then 'map_cross_sections.csv', 'map_links.csv' and 'map_route.csv' will be produced")
	placeCmd.Flags().StringVar(&geomFormat, "geomf", "wkt", "Format of output geometry. Expected values: wkt / geojson")
	_ = placeCmd.MarkFlagRequired("rows")

	routeCmd := &cobra.Command{
		Use:   "route",
		Short: "Print main route of the network",
		RunE:  runRoute,
	}
	routeCmd.Flags().IntVar(&routeStart, "start", 0, "ID of link the route starts at (smallest ID if omitted)")
	routeCmd.Flags().StringVar(&geomFormat, "geomf", "wkt", "Format of output geometry. Expected values: wkt / geojson")

	rootCmd.AddCommand(placeCmd, routeCmd)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func prepareConfiguration() (*crossnet.Configuration, error) {
	cfg := crossnet.DefaultConfiguration()
	if configFile != "" {
		var err error
		cfg, err = crossnet.LoadConfiguration(configFile)
		if err != nil {
			return nil, err
		}
	}
	if networkFile != "" {
		cfg.Network = networkFile
	}
	if tagStr != "" {
		cfg.Tags = strings.Split(tagStr, ",")
	}
	if verbose {
		cfg.Verbose = true
	}
	if routeStart > 0 {
		cfg.RouteStart = &routeStart
	}
	return cfg, cfg.Validate()
}

func prepareService(ctx context.Context, cfg *crossnet.Configuration) (*crossnet.PlacementService, func(), error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	var sim crossnet.Simulator = crossnet.NewMemorySimulator()
	if cfg.Network != "" {
		network, err := crossnet.ReadOSMNetwork(ctx, cfg.Network, cfg.Tags, cfg.Verbose)
		if err != nil {
			return nil, nil, errors.Wrap(err, "Can't read network")
		}
		sim, err = crossnet.NewMemoryTopologySimulator(network)
		if err != nil {
			return nil, nil, errors.Wrap(err, "Can't prepare simulator")
		}
	}
	options := cfg.ServiceOptions(logger)
	closer := func() {}
	if cfg.MetadataDB != "" {
		store, err := crossnet.NewSQLiteMetadataStore(cfg.MetadataDB)
		if err != nil {
			return nil, nil, err
		}
		options = append(options, crossnet.WithMetadataStore(store))
		closer = func() { store.Close() }
	}
	svc := crossnet.NewPlacementService(sim, options...)
	if cfg.Verbose {
		fmt.Println(svc)
	}
	if err := svc.Load(ctx); err != nil {
		closer()
		return nil, nil, errors.Wrap(err, "Can't load placement service")
	}
	return svc, closer, nil
}

func runPlace(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := prepareConfiguration()
	if err != nil {
		return err
	}
	svc, closer, err := prepareService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer()

	file, err := os.Open(rowsFile)
	if err != nil {
		return errors.Wrap(err, "Can't open rows file")
	}
	defer file.Close()
	rows, err := crossnet.ParseImportRows(file)
	if err != nil {
		return err
	}
	if cfg.Network != "" {
		// OSM networks are kept in EPSG:3857 while rows are given as lon/lat
		rows = crossnet.EuclideanRows(rows)
	}
	accepted, rejected, err := svc.ImportBulk(ctx, rows)
	fmt.Printf("Accepted: %d\nRejected: %d\n", accepted, rejected)
	if err != nil {
		return errors.Wrap(err, "Import interrupted")
	}

	if strings.ToLower(geomFormat) == "geojson" {
		fnamePart := strings.Split(out, ".csv")
		b, err := crossnet.CrossSectionsGeoJSON(svc.CrossSections())
		if err != nil {
			return err
		}
		return os.WriteFile(fnamePart[0]+"_cross_sections.geojson", b, 0644)
	}
	return svc.ExportToCSV(out)
}

func runRoute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := prepareConfiguration()
	if err != nil {
		return err
	}
	svc, closer, err := prepareService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer()

	route, err := svc.GetRoute()
	if err != nil {
		return err
	}
	if cfg.Verbose {
		fmt.Println(route)
	}
	if cfg.Network != "" {
		route = route.Geographic()
	}
	if strings.ToLower(geomFormat) == "geojson" {
		b, err := route.GeoJSON()
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	}
	fmt.Println(route.WKT())
	return nil
}
