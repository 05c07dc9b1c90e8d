package cliapp

import "flag"

const versionString = "1.0.0"
const defaultConfigPath = "./unravel.toml"

type cliOptions struct {
	configPath  string
	once        bool
	watch       bool
	unresolved  bool
	entrypoints bool
	jsonOut     bool
	verbose     bool
	version     bool
	args        []string
}

func parseOptions(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("unravel", flag.ContinueOnError)

	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "Path to config file")
	fs.BoolVar(&opts.once, "once", false, "Run single analysis and exit")
	fs.BoolVar(&opts.watch, "watch", false, "Watch for changes and re-analyze")
	fs.BoolVar(&opts.unresolved, "unresolved", false, "Print unresolved references as TSV and exit")
	fs.BoolVar(&opts.entrypoints, "entrypoints", false, "Print detected entry points as TSV and exit")
	fs.BoolVar(&opts.jsonOut, "json", false, "Print the full analysis report as JSON and exit")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}

	opts.args = fs.Args()
	return opts, nil
}
