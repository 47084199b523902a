package crossnet

import (
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Configuration describes placement service setup loaded from YAML
type Configuration struct {
	// Path to OSM extract (*.osm / *.osm.pbf). Empty value means flat simulator without topology
	Network string   `yaml:"network"`
	Tags    []string `yaml:"tags"`

	MergeRadius         float64 `yaml:"merge_radius" validate:"gt=0"`
	ProjectionTolerance float64 `yaml:"projection_tolerance" validate:"gte=0"`
	// Locations are WGS84 (lon, lat) and proximity is evaluated with haversine distance.
	// Not allowed together with Network: OSM networks and their rows are kept in EPSG:3857 meters
	Geographic bool `yaml:"geographic" validate:"excluded_with=Network"`

	// Path to sqlite database with cross section metadata. Empty value disables persistence
	MetadataDB      string `yaml:"metadata_db"`
	RouteStart      *int   `yaml:"route_start" validate:"omitempty,gt=0"`
	ReconcileOnMove bool   `yaml:"reconcile_on_move"`
	Verbose         bool   `yaml:"verbose"`
}

func DefaultConfiguration() *Configuration {
	return &Configuration{
		MergeRadius:         DefaultMergeRadius,
		ProjectionTolerance: DefaultProjectionTolerance,
	}
}

// LoadConfiguration reads YAML file on top of defaults
func LoadConfiguration(fname string) (*Configuration, error) {
	cfg := DefaultConfiguration()
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, errors.Wrap(err, "Can't read configuration")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "Can't parse configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Configuration) Validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		return errors.Wrap(err, "Bad configuration")
	}
	return nil
}

// ServiceOptions converts configuration into placement service options
func (cfg *Configuration) ServiceOptions(logger *slog.Logger) []func(*PlacementService) {
	options := []func(*PlacementService){
		WithMergeRadius(cfg.MergeRadius),
		WithProjectionTolerance(cfg.ProjectionTolerance),
		WithReconcileOnMove(cfg.ReconcileOnMove),
		WithVerbose(cfg.Verbose),
	}
	if logger != nil {
		options = append(options, WithLogger(logger))
	}
	if cfg.Geographic {
		options = append(options, WithDistance(HaversineDistance))
	}
	if cfg.RouteStart != nil {
		options = append(options, WithRouteStart(NetworkLinkID(*cfg.RouteStart)))
	}
	return options
}
