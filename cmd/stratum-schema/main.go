// Package main implements the stratum-schema binary, the command line
// tool for inspecting and evolving table schemas.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/stratumdb/stratum/internal/catalog"
	"github.com/stratumdb/stratum/internal/config"
	"github.com/stratumdb/stratum/internal/schema"
	"github.com/stratumdb/stratum/internal/schemaio"
	"github.com/stratumdb/stratum/internal/storage"
)

var (
	version = "dev"
	commit  = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, "stratum-schema - schema inspection and evolution for stratum tables\n\n")
	fmt.Fprintf(os.Stderr, "Usage: stratum-schema <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  init         Create an initial schema from column definitions\n")
	fmt.Fprintf(os.Stderr, "  show         Show the current schema version\n")
	fmt.Fprintf(os.Stderr, "  history      List all registered schema versions\n")
	fmt.Fprintf(os.Stderr, "  add-column   Add a column to the current schema\n")
	fmt.Fprintf(os.Stderr, "  drop-column  Drop a column from the current schema\n")
	fmt.Fprintf(os.Stderr, "  project      Project the current schema onto a path\n")
	fmt.Fprintf(os.Stderr, "  version      Show version information\n\n")
	fmt.Fprintf(os.Stderr, "Global options (every command):\n")
	fmt.Fprintf(os.Stderr, "  --config     Path to configuration file (YAML or JSON)\n")
	fmt.Fprintf(os.Stderr, "  --data-dir   Base directory for local data files\n\n")
	fmt.Fprintf(os.Stderr, "Environment Variables:\n")
	fmt.Fprintf(os.Stderr, "  STRATUM_DATA_DIR      Base directory for data files\n")
	fmt.Fprintf(os.Stderr, "  STRATUM_TABLE_PREFIX  Object-store prefix for the table\n")
	fmt.Fprintf(os.Stderr, "  STRATUM_STORAGE_TYPE  Storage type (local, s3)\n")
	fmt.Fprintf(os.Stderr, "  STRATUM_S3_BUCKET     S3 bucket name\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	// .env is optional; absence is not an error.
	_ = godotenv.Load()

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "init":
		runInit(args)
	case "show":
		runShow(args)
	case "history":
		runHistory(args)
	case "add-column":
		runAddColumn(args)
	case "drop-column":
		runDropColumn(args)
	case "project":
		runProject(args)
	case "version":
		fmt.Printf("stratum-schema version %s (commit: %s)\n", version, commit)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", command)
		usage()
		os.Exit(2)
	}
}

// env holds the wired-up dependencies a command needs.
type env struct {
	cfg    *config.Config
	store  storage.ObjectStore
	cat    *catalog.VersionStore
	writer *schemaio.Writer
	reader *schemaio.Reader
}

func commonFlags(fs *flag.FlagSet) (configFile, dataDir *string) {
	configFile = fs.String("config", "", "Path to configuration file (YAML or JSON)")
	dataDir = fs.String("data-dir", "", "Base directory for local data files")
	return configFile, dataDir
}

func setup(configFile, dataDir string) (*env, error) {
	var cfg *config.Config
	var err error

	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}
	config.LoadFromEnv(cfg)
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	var store storage.ObjectStore
	switch cfg.Storage.Type {
	case "s3":
		store, err = storage.NewS3Store(context.Background(), cfg.Storage.S3.Bucket, storage.S3Config{
			Region:       cfg.Storage.S3.Region,
			Endpoint:     cfg.Storage.S3.Endpoint,
			UsePathStyle: cfg.Storage.S3.UsePathStyle,
		})
	default:
		store, err = storage.NewLocalStore(cfg.Storage.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create object store: %w", err)
	}

	cat, err := catalog.Open(cfg.CatalogPath())
	if err != nil {
		return nil, err
	}

	return &env{
		cfg:    cfg,
		store:  store,
		cat:    cat,
		writer: schemaio.NewWriter(store, cfg.TablePrefix),
		reader: schemaio.NewReader(store, cfg.TablePrefix),
	}, nil
}

func (e *env) close() {
	if err := e.cat.Close(); err != nil {
		log.Printf("failed to close catalog: %v", err)
	}
}

// register records the schema in the catalog and writes a snapshot to
// the object store under the new version.
func (e *env) register(ctx context.Context, sc *schema.Schema) (int, error) {
	v, err := e.cat.Register(ctx, sc)
	if err != nil {
		return 0, err
	}
	if _, err := e.writer.Write(ctx, sc, v); err != nil {
		return 0, err
	}
	return v, nil
}

func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configFile, dataDir := commonFlags(fs)
	columns := fs.String("columns", "", "Comma-separated column definitions, e.g. 'id UInt64, name String'")
	fs.Parse(args)

	if *columns == "" {
		log.Fatal("init requires --columns")
	}
	fields, err := parseFieldList(*columns)
	if err != nil {
		log.Fatalf("Failed to parse columns: %v", err)
	}

	e, err := setup(*configFile, *dataDir)
	if err != nil {
		log.Fatalf("Failed to set up: %v", err)
	}
	defer e.close()
	ctx := context.Background()

	if v, err := e.cat.CurrentVersion(ctx); err != nil {
		log.Fatalf("Failed to check catalog: %v", err)
	} else if v != 0 {
		log.Fatalf("Catalog already has schema version %d; use add-column/drop-column to evolve it", v)
	}

	sc, err := schema.New(fields)
	if err != nil {
		log.Fatalf("Failed to build schema: %v", err)
	}
	v, err := e.register(ctx, sc)
	if err != nil {
		log.Fatalf("Failed to register schema: %v", err)
	}
	log.Printf("Registered schema version %d with %d fields", v, sc.NumFields())
	printSchema(sc)
}

func runShow(args []string) {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	configFile, dataDir := commonFlags(fs)
	versionFlag := fs.Int("version", 0, "Schema version to show (0 = current)")
	fs.Parse(args)

	e, err := setup(*configFile, *dataDir)
	if err != nil {
		log.Fatalf("Failed to set up: %v", err)
	}
	defer e.close()
	ctx := context.Background()

	var record *catalog.VersionRecord
	if *versionFlag > 0 {
		record, err = e.cat.Get(ctx, *versionFlag)
	} else {
		record, err = e.cat.Current(ctx)
	}
	if err != nil {
		log.Fatalf("Failed to load schema: %v", err)
	}

	fmt.Printf("Version:     %d\n", record.Version)
	fmt.Printf("Fingerprint: %s\n", record.Fingerprint)
	fmt.Printf("Created:     %s\n", record.CreatedAt.Format("2006-01-02 15:04:05"))
	printSchema(record.Schema)
}

func runHistory(args []string) {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	configFile, dataDir := commonFlags(fs)
	fs.Parse(args)

	e, err := setup(*configFile, *dataDir)
	if err != nil {
		log.Fatalf("Failed to set up: %v", err)
	}
	defer e.close()

	records, err := e.cat.List(context.Background())
	if err != nil {
		log.Fatalf("Failed to list versions: %v", err)
	}
	if len(records) == 0 {
		fmt.Println("No schema versions registered.")
		return
	}
	for _, r := range records {
		fmt.Printf("v%-4d %s  fields=%d  next_column_id=%d  %s\n",
			r.Version, r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Schema.NumFields(), r.Schema.NextColumnID(), r.Fingerprint[:16])
	}
}

func runAddColumn(args []string) {
	fs := flag.NewFlagSet("add-column", flag.ExitOnError)
	configFile, dataDir := commonFlags(fs)
	name := fs.String("name", "", "Column name")
	typeExpr := fs.String("type", "", "Column type, e.g. UInt64, Nullable(String), Array(Float64)")
	fs.Parse(args)

	if *name == "" || *typeExpr == "" {
		log.Fatal("add-column requires --name and --type")
	}
	typ, err := parseTypeExpr(*typeExpr)
	if err != nil {
		log.Fatalf("Failed to parse type: %v", err)
	}

	e, err := setup(*configFile, *dataDir)
	if err != nil {
		log.Fatalf("Failed to set up: %v", err)
	}
	defer e.close()
	ctx := context.Background()

	record, err := e.cat.Current(ctx)
	if err != nil {
		log.Fatalf("Failed to load current schema: %v", err)
	}
	evolved, err := record.Schema.AddColumns([]schema.Field{schema.NewField(*name, typ)})
	if err != nil {
		log.Fatalf("Failed to add column: %v", err)
	}
	v, err := e.register(ctx, evolved)
	if err != nil {
		log.Fatalf("Failed to register schema: %v", err)
	}
	log.Printf("Added column %s as version %d", *name, v)
	printSchema(evolved)
}

func runDropColumn(args []string) {
	fs := flag.NewFlagSet("drop-column", flag.ExitOnError)
	configFile, dataDir := commonFlags(fs)
	name := fs.String("name", "", "Column name")
	fs.Parse(args)

	if *name == "" {
		log.Fatal("drop-column requires --name")
	}

	e, err := setup(*configFile, *dataDir)
	if err != nil {
		log.Fatalf("Failed to set up: %v", err)
	}
	defer e.close()
	ctx := context.Background()

	record, err := e.cat.Current(ctx)
	if err != nil {
		log.Fatalf("Failed to load current schema: %v", err)
	}
	evolved, err := record.Schema.DropColumn(*name)
	if err != nil {
		log.Fatalf("Failed to drop column: %v", err)
	}
	v, err := e.register(ctx, evolved)
	if err != nil {
		log.Fatalf("Failed to register schema: %v", err)
	}
	log.Printf("Dropped column %s as version %d", *name, v)
	printSchema(evolved)
}

func runProject(args []string) {
	fs := flag.NewFlagSet("project", flag.ExitOnError)
	configFile, dataDir := commonFlags(fs)
	path := fs.String("path", "", "Dot-separated path indices, e.g. 0.1.0")
	fs.Parse(args)

	if *path == "" {
		log.Fatal("project requires --path")
	}
	indices, err := parsePath(*path)
	if err != nil {
		log.Fatalf("Failed to parse path: %v", err)
	}

	e, err := setup(*configFile, *dataDir)
	if err != nil {
		log.Fatalf("Failed to set up: %v", err)
	}
	defer e.close()

	record, err := e.cat.Current(context.Background())
	if err != nil {
		log.Fatalf("Failed to load current schema: %v", err)
	}
	projected, err := record.Schema.InnerProject(map[int][]int{0: indices})
	if err != nil {
		log.Fatalf("Failed to project: %v", err)
	}
	printSchema(projected)
}

func printSchema(sc *schema.Schema) {
	for _, f := range sc.Fields() {
		fmt.Printf("  %-4d %-24s %s\n", f.ColumnID, f.Name, f.Type.String())
	}
}

func parsePath(s string) ([]int, error) {
	parts := strings.Split(s, ".")
	indices := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid path element %q", p)
		}
		indices[i] = n
	}
	return indices, nil
}
