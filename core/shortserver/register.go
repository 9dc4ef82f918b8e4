package shortserver

import (
	"fmt"

	"github.com/apex/log"
	"github.com/caddyserver/caddy"
	"github.com/caddyserver/caddy/caddyfile"
)

// ServerType is the name of the caddy server type implemented by this
// package
const ServerType = "shortaddr"

// DefaultConfigFile is the name of the configuration file loaded if
// none is specified
const DefaultConfigFile = "Shortfile"

func init() {
	caddy.RegisterServerType(ServerType, caddy.ServerType{
		Directives: func() []string { return Directives },
		DefaultInput: func() caddy.Input {
			return caddy.CaddyfileInput{
				Filepath:       DefaultConfigFile,
				Contents:       []byte{},
				ServerTypeName: ServerType,
			}
		},
		NewContext: newContext,
	})
}

func newContext(i *caddy.Instance) caddy.Context {
	return &shortContext{
		keyToConfig: make(map[string]*Config),
	}
}

type shortContext struct {
	configs     []*Config
	keyToConfig map[string]*Config
}

func (c *shortContext) addConfig(key string, cfg *Config) {
	c.configs = append(c.configs, cfg)
	c.keyToConfig[key] = cfg
}

// InspectServerBlocks creates a Config for each server block key. Only a
// single coordinator is supported per instance
func (c *shortContext) InspectServerBlocks(sourceFile string, serverBlocks []caddyfile.ServerBlock) ([]caddyfile.ServerBlock, error) {
	for si, s := range serverBlocks {
		for ki, k := range s.Keys {
			if k == "" {
				return nil, fmt.Errorf("%s: missing coordinator name in server block %d", sourceFile, si)
			}

			if len(c.configs) > 0 {
				return nil, fmt.Errorf("%s: coordinator %q: only one coordinator per instance is supported (already configured %q)", sourceFile, k, c.configs[0].Name)
			}

			cfg := newConfig(k)
			cfg.logger = log.WithField("coordinator", k)

			c.addConfig(keyForConfig(si, ki), cfg)
		}
	}

	return serverBlocks, nil
}

// MakeServers opens the lease database of each coordinator and returns
// the servers that keep them running
func (c *shortContext) MakeServers() ([]caddy.Server, error) {
	for _, cfg := range c.configs {
		if err := openDatabase(cfg); err != nil {
			return nil, fmt.Errorf("failed to open lease database for %s: %w", cfg.Name, err)
		}

		buildHandlerChain(cfg)
	}

	var servers []caddy.Server
	for _, cfg := range c.configs {
		servers = append(servers, NewServer(cfg))
	}

	return servers, nil
}
