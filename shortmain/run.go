// Package shortmain starts NextShort using caddy
package shortmain

import (
	"os"

	"github.com/caddyserver/caddy"
	"github.com/nextdhcp/nextshort/core/shortserver"

	// Include all built-in directives
	_ "github.com/nextdhcp/nextshort/core"
)

// Version is the version of NextShort
const Version = "v0.1.0"

// conf is the path of the Shortfile to load. An empty value loads
// caddy.DefaultConfigFile, "-" or "stdin" read the configuration from
// stdin
var conf string

func init() {
	caddy.DefaultConfigFile = shortserver.DefaultConfigFile
	caddy.Quiet = false

	caddy.RegisterCaddyfileLoader("flag", caddy.LoaderFunc(configLoader))
	caddy.SetDefaultCaddyfileLoader("default", caddy.LoaderFunc(defaultLoader))

	caddy.AppName = "NextShort"
	caddy.AppVersion = Version
}

// Run starts NextShort with the configuration at path and blocks until
// the coordinator stopped
func Run(path string) error {
	conf = path
	caddy.TrapSignals()

	shortfile, err := caddy.LoadCaddyfile(shortserver.ServerType)
	if err != nil {
		return err
	}

	instance, err := caddy.Start(shortfile)
	if err != nil {
		return err
	}

	instance.Wait()
	return nil
}

// Validate parses the configuration at path and executes all directives
// without starting the coordinator
func Validate(path string) error {
	conf = path

	shortfile, err := caddy.LoadCaddyfile(shortserver.ServerType)
	if err != nil {
		return err
	}

	return caddy.ValidateAndExecuteDirectives(shortfile, nil, true)
}

func configLoader(serverType string) (caddy.Input, error) {
	if conf == "" {
		return nil, nil
	}

	if conf == "stdin" || conf == "-" {
		return caddy.CaddyfileFromPipe(os.Stdin, serverType)
	}

	file, err := os.ReadFile(conf)
	if err != nil {
		return nil, err
	}

	return caddy.CaddyfileInput{
		Contents:       file,
		Filepath:       conf,
		ServerTypeName: serverType,
	}, nil
}

func defaultLoader(serverType string) (caddy.Input, error) {
	conf = caddy.DefaultConfigFile
	return configLoader(serverType)
}
