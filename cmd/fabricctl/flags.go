package main

import (
	"github.com/danmuck/fabricctl/internal/config"
	"github.com/danmuck/fabricctl/internal/routing"
	"github.com/spf13/pflag"
)

// fabricFlags lets offline commands describe a fabric without a config
// file; explicit flags win over the file.
type fabricFlags struct {
	configPath    string
	fanout        int
	depth         int
	network       int
	flatThreshold uint64
}

func (f *fabricFlags) register(fs *pflag.FlagSet) {
	d := config.Default().Fabric
	fs.StringVarP(&f.configPath, "config", "c", "", "fabricctl config file")
	fs.IntVar(&f.fanout, "fanout", d.Fanout, "switches per parent")
	fs.IntVar(&f.depth, "depth", d.Depth, "tree levels including the root")
	fs.IntVar(&f.network, "network", d.Network, "first address segment of every host")
	fs.Uint64Var(&f.flatThreshold, "flat-threshold", d.FlatThreshold, "datapath ids above this are flat core switches")
}

func (f *fabricFlags) load(fs *pflag.FlagSet) (config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if fs.Changed("fanout") {
		cfg.Fabric.Fanout = f.fanout
	}
	if fs.Changed("depth") {
		cfg.Fabric.Depth = f.depth
	}
	if fs.Changed("network") {
		cfg.Fabric.Network = f.network
	}
	if fs.Changed("flat-threshold") {
		cfg.Fabric.FlatThreshold = f.flatThreshold
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (f *fabricFlags) engine(fs *pflag.FlagSet) (*routing.Engine, error) {
	cfg, err := f.load(fs)
	if err != nil {
		return nil, err
	}
	return routing.NewEngine(cfg.Routing())
}
